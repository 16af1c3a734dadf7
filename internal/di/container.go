package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CaoNhatLinh/squareup-sub002/internal/platform/config"
	"github.com/CaoNhatLinh/squareup-sub002/internal/platform/observability"
	"github.com/CaoNhatLinh/squareup-sub002/internal/repositories"
	"github.com/CaoNhatLinh/squareup-sub002/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon.
type Services struct {
	Discounts services.DiscountService
	Menu      services.MenuService
	System    services.SystemService
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// Option customises NewContainer.
type Option func(*containerOptions)

type containerOptions struct {
	publisher services.SettlementPublisher
	metrics   *observability.DiscountMetrics
	clock     func() time.Time
	build     services.BuildInfo
}

// WithSettlementPublisher sets where settled carts are published. Without it settlement events are
// not emitted.
func WithSettlementPublisher(publisher services.SettlementPublisher) Option {
	return func(o *containerOptions) {
		o.publisher = publisher
	}
}

// WithMetrics records engine metrics on m.
func WithMetrics(m *observability.DiscountMetrics) Option {
	return func(o *containerOptions) {
		o.metrics = m
	}
}

// WithClock overrides the wall clock, mostly for tests.
func WithClock(clock func() time.Time) Option {
	return func(o *containerOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithBuildInfo sets the metadata reported by health endpoints.
func WithBuildInfo(build services.BuildInfo) Option {
	return func(o *containerOptions) {
		o.build = build
	}
}

// NewContainer constructs the runtime dependencies. Tests can supply in-memory registries.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, opts ...Option) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}
	options := containerOptions{clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	svc, err := buildServices(ctx, reg, cfg, options)
	if err != nil {
		return nil, err
	}
	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(_ context.Context, reg repositories.Registry, cfg config.Config, opts containerOptions) (Services, error) {
	var svc Services
	disabled := !cfg.Features.EnableAutomaticDiscounts

	publisher := opts.publisher
	if !cfg.Features.EnableSettlementEvents {
		publisher = nil
	}
	discountSvc, err := services.NewDiscountService(services.DiscountServiceDeps{
		Rules:        reg.DiscountRules(),
		Publisher:    publisher,
		Metrics:      opts.metrics,
		Clock:        opts.clock,
		Location:     cfg.Discounts.Location,
		RuleCacheTTL: cfg.Discounts.RuleCacheTTL,
		Disabled:     disabled,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build discount service: %w", err)
	}
	svc.Discounts = discountSvc

	menuSvc, err := services.NewMenuService(services.MenuServiceDeps{
		Catalog:      reg.Catalog(),
		Rules:        reg.DiscountRules(),
		Metrics:      opts.metrics,
		Clock:        opts.clock,
		Location:     cfg.Discounts.Location,
		RuleCacheTTL: cfg.Discounts.RuleCacheTTL,
		Disabled:     disabled,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build menu service: %w", err)
	}
	svc.Menu = menuSvc

	if healthRepo := reg.Health(); healthRepo != nil {
		build := opts.build
		if build.Environment == "" {
			build.Environment = cfg.Environment
		}
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: healthRepo,
			Clock:            opts.clock,
			Build:            build,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build system service: %w", err)
		}
		svc.System = systemSvc
	}
	return svc, nil
}
