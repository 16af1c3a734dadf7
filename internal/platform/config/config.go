package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	defaultEnvFile            = ".env"
	defaultPort               = "8080"
	defaultReadTimeout        = 15 * time.Second
	defaultWriteTimeout       = 30 * time.Second
	defaultIdleTimeout        = 120 * time.Second
	defaultEnvironment        = "local"
	defaultRulesCollection    = "discounts"
	defaultCatalogCollection  = "menuItems"
	defaultSettlementTopic    = "discount-settlements"
	defaultTimezone           = "UTC"
	defaultRuleCacheTTL       = 30 * time.Second
	defaultPreviewRatePerMin  = 120
	defaultMaxRequestBodySize = 64 << 10
	defaultBasePath           = "/api/v1"
	defaultProbeTimeout       = 1500 * time.Millisecond
	defaultDialTimeout        = 10 * time.Second
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Environment string
	Server      ServerConfig
	Firebase    FirebaseConfig
	Firestore   FirestoreConfig
	PubSub      PubSubConfig
	Discounts   DiscountsConfig
	RateLimits  RateLimitConfig
	Features    FeatureFlags
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestBody int64
	BasePath       string
	// ProbeTimeout bounds each readiness dependency check.
	ProbeTimeout   time.Duration
}

// FirebaseConfig stores the Firebase project the restaurant data lives in.
type FirebaseConfig struct {
	ProjectID string
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
	DialTimeout  time.Duration
}

// PubSubConfig names where settlement events go.
type PubSubConfig struct {
	ProjectID       string
	SettlementTopic string
}

// DiscountsConfig describes where rules and catalog items are read from and which clock the
// restaurant runs on. When RulesFile is set the YAML source replaces Firestore.
type DiscountsConfig struct {
	RulesCollection   string
	CatalogCollection string
	RulesFile         string
	CatalogFile       string
	Timezone          string
	Location          *time.Location
	RuleCacheTTL      time.Duration
}

// RateLimitConfig controls request throttling.
type RateLimitConfig struct {
	PreviewPerMinute int
}

// FeatureFlags toggle optional behaviour without redeploying.
type FeatureFlags struct {
	EnableAutomaticDiscounts bool
	EnableSettlementEvents   bool
}

// UsesFirestore reports whether rules are read from Firestore rather than a local file.
func (c Config) UsesFirestore() bool {
	return strings.TrimSpace(c.Discounts.RulesFile) == ""
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env overrides,
// environment variables and explicit overrides, in increasing order of precedence.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Environment: strings.ToLower(stringWithDefault(lookup, "API_ENVIRONMENT", defaultEnvironment)),
		Server: ServerConfig{
			Port:           stringWithDefault(lookup, "API_SERVER_PORT", defaultPort),
			ReadTimeout:    durationWithDefault(lookup, "API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:   durationWithDefault(lookup, "API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:    durationWithDefault(lookup, "API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			MaxRequestBody: int64(intWithDefault(lookup, "API_SERVER_MAX_BODY_BYTES", defaultMaxRequestBodySize)),
			BasePath:       stringWithDefault(lookup, "API_SERVER_BASE_PATH", defaultBasePath),
			ProbeTimeout:   durationWithDefault(lookup, "API_SERVER_PROBE_TIMEOUT", defaultProbeTimeout),
		},
		Firebase: FirebaseConfig{
			ProjectID: stringWithDefault(lookup, "API_FIREBASE_PROJECT_ID", ""),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "API_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "API_FIRESTORE_EMULATOR_HOST", ""),
			DialTimeout:  durationWithDefault(lookup, "API_FIRESTORE_DIAL_TIMEOUT", defaultDialTimeout),
		},
		PubSub: PubSubConfig{
			ProjectID:       stringWithDefault(lookup, "API_PUBSUB_PROJECT_ID", ""),
			SettlementTopic: stringWithDefault(lookup, "API_PUBSUB_SETTLEMENT_TOPIC", defaultSettlementTopic),
		},
		Discounts: DiscountsConfig{
			RulesCollection:   stringWithDefault(lookup, "API_DISCOUNTS_RULES_COLLECTION", defaultRulesCollection),
			CatalogCollection: stringWithDefault(lookup, "API_DISCOUNTS_CATALOG_COLLECTION", defaultCatalogCollection),
			RulesFile:         stringWithDefault(lookup, "API_DISCOUNTS_RULES_FILE", ""),
			CatalogFile:       stringWithDefault(lookup, "API_DISCOUNTS_CATALOG_FILE", ""),
			Timezone:          stringWithDefault(lookup, "API_DISCOUNTS_TIMEZONE", defaultTimezone),
			RuleCacheTTL:      durationWithDefault(lookup, "API_DISCOUNTS_RULE_CACHE_TTL", defaultRuleCacheTTL),
		},
		RateLimits: RateLimitConfig{
			PreviewPerMinute: intWithDefault(lookup, "API_RATELIMIT_PREVIEW_PER_MIN", defaultPreviewRatePerMin),
		},
		Features: FeatureFlags{
			EnableAutomaticDiscounts: boolWithDefault(lookup, "API_FEATURE_AUTOMATIC_DISCOUNTS", true),
			EnableSettlementEvents:   boolWithDefault(lookup, "API_FEATURE_SETTLEMENT_EVENTS", false),
		},
	}

	// Firestore and Pub/Sub default to the Firebase project when unspecified.
	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = cfg.Firebase.ProjectID
	}
	if cfg.PubSub.ProjectID == "" {
		cfg.PubSub.ProjectID = cfg.Firestore.ProjectID
	}

	if loc, err := time.LoadLocation(cfg.Discounts.Timezone); err == nil {
		cfg.Discounts.Location = loc
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Server.MaxRequestBody <= 0 {
		missing = append(missing, "Server.MaxRequestBody")
	}
	if !strings.HasPrefix(cfg.Server.BasePath, "/") {
		missing = append(missing, "Server.BasePath")
	}
	if cfg.Server.ProbeTimeout <= 0 {
		missing = append(missing, "Server.ProbeTimeout")
	}
	if cfg.UsesFirestore() {
		if cfg.Firestore.ProjectID == "" {
			missing = append(missing, "Firestore.ProjectID")
		}
		if strings.TrimSpace(cfg.Discounts.RulesCollection) == "" {
			missing = append(missing, "Discounts.RulesCollection")
		}
		if strings.TrimSpace(cfg.Discounts.CatalogCollection) == "" {
			missing = append(missing, "Discounts.CatalogCollection")
		}
	}
	if cfg.Discounts.Location == nil {
		missing = append(missing, "Discounts.Timezone")
	}
	if cfg.Discounts.RuleCacheTTL < 0 {
		missing = append(missing, "Discounts.RuleCacheTTL")
	}
	if cfg.RateLimits.PreviewPerMinute < 0 {
		missing = append(missing, "RateLimits.PreviewPerMinute")
	}
	if cfg.Features.EnableSettlementEvents {
		if cfg.PubSub.ProjectID == "" {
			missing = append(missing, "PubSub.ProjectID")
		}
		if strings.TrimSpace(cfg.PubSub.SettlementTopic) == "" {
			missing = append(missing, "PubSub.SettlementTopic")
		}
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
