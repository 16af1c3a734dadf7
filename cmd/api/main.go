package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/CaoNhatLinh/squareup-sub002/internal/di"
	"github.com/CaoNhatLinh/squareup-sub002/internal/handlers"
	"github.com/CaoNhatLinh/squareup-sub002/internal/platform/config"
	"github.com/CaoNhatLinh/squareup-sub002/internal/platform/observability"
	"github.com/CaoNhatLinh/squareup-sub002/internal/services"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	cfg, err := config.Load()
	if err != nil {
		var invalid *config.ValidationError
		if errors.As(err, &invalid) {
			fmt.Fprintf(os.Stderr, "invalid configuration: %s\n", strings.Join(invalid.Fields(), ", "))
		} else {
			fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		}
		os.Exit(1)
	}

	baseLogger, err := observability.NewLogger(cfg.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	registry, err := di.NewRegistry(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialise rule sources", zap.Error(err))
	}
	source := "firestore"
	if !cfg.UsesFirestore() {
		source = "file"
	}

	metrics, err := observability.NewDiscountMetrics()
	if err != nil {
		logger.Fatal("failed to register discount metrics", zap.Error(err))
	}

	containerOpts := []di.Option{
		di.WithMetrics(metrics),
		di.WithBuildInfo(buildInfoFromEnv(cfg, startedAt)),
	}
	var stopPublisher func() error
	if cfg.Features.EnableSettlementEvents {
		publisher, stop, err := di.NewSettlementPublisher(ctx, cfg)
		if err != nil {
			logger.Fatal("failed to initialise settlement publisher", zap.Error(err))
		}
		stopPublisher = stop
		containerOpts = append(containerOpts, di.WithSettlementPublisher(publisher))
	}

	container, err := di.NewContainer(ctx, cfg, registry, containerOpts...)
	if err != nil {
		logger.Fatal("failed to build services", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Warn("repository close error", zap.Error(err))
		}
	}()
	defer func() {
		if stopPublisher == nil {
			return
		}
		if err := stopPublisher(); err != nil {
			logger.Warn("settlement publisher close error", zap.Error(err))
		}
	}()

	router := newRouter(cfg, logger, container, buildInfoFromEnv(cfg, startedAt))
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(
		zap.String("addr", server.Addr),
		zap.String("ruleSource", source),
		zap.String("timezone", cfg.Discounts.Timezone),
		zap.Bool("automaticDiscounts", cfg.Features.EnableAutomaticDiscounts),
		zap.Bool("settlementEvents", cfg.Features.EnableSettlementEvents),
	)
	go func() {
		serverLogger.Info("discount api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newRouter(cfg config.Config, logger *zap.Logger, container *di.Container, build services.BuildInfo) http.Handler {
	projectID := traceProjectID(cfg)
	middlewares := []func(http.Handler) http.Handler{
		observability.ClientIPMiddleware,
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware,
	}

	healthOpts := []handlers.HealthOption{handlers.WithHealthBuildInfo(build)}
	if container.Services.System != nil {
		healthOpts = append(healthOpts, handlers.WithHealthSystemService(container.Services.System))
	}

	discountHandlers := handlers.NewDiscountHandlers(container.Services.Discounts,
		handlers.WithDiscountBodyLimit(cfg.Server.MaxRequestBody),
		handlers.WithPreviewRateLimit(cfg.RateLimits.PreviewPerMinute, time.Now),
	)
	menuHandlers := handlers.NewMenuHandlers(container.Services.Menu)

	return handlers.NewRouter(
		handlers.WithBasePath(cfg.Server.BasePath),
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(healthOpts...)),
		handlers.WithPublicRoutes(menuHandlers.Routes),
		handlers.WithDiscountRoutes(discountHandlers.Routes),
	)
}

func buildInfoFromEnv(cfg config.Config, started time.Time) services.BuildInfo {
	version := strings.TrimSpace(os.Getenv("API_BUILD_VERSION"))
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(os.Getenv("API_BUILD_COMMIT_SHA"))
	if commit == "" {
		commit = "unknown"
	}
	return services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: cfg.Environment,
		StartedAt:   started,
	}
}

func traceProjectID(cfg config.Config) string {
	if id := strings.TrimSpace(cfg.Firebase.ProjectID); id != "" {
		return id
	}
	return strings.TrimSpace(cfg.Firestore.ProjectID)
}
