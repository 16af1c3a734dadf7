package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/CaoNhatLinh/squareup-sub002/internal/platform/httpx"
)

// RouteRegistrar registers a set of routes against the provided router.
type RouteRegistrar func(r chi.Router)

type routerConfig struct {
	basePath    string
	middlewares []func(http.Handler) http.Handler
	health      *HealthHandlers

	public    RouteRegistrar
	discounts RouteRegistrar
}

// Option customises the router configuration before construction.
type Option func(*routerConfig)

const (
	defaultAPIPrefix = "/api/v1"
	defaultTimeout   = 30 * time.Second
)

// NewRouter constructs the chi router with shared middleware and the API route groups. Groups
// without a registrar answer 503 so a half-wired process is visible rather than silent.
func NewRouter(opts ...Option) chi.Router {
	cfg := routerConfig{
		basePath: defaultAPIPrefix,
		middlewares: []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Timeout(defaultTimeout),
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.health == nil {
		cfg.health = NewHealthHandlers()
	}

	r := chi.NewRouter()
	for _, mw := range cfg.middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError(httpx.CodeNotFound, fmt.Sprintf("no route for %s", req.URL.Path), http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError(httpx.CodeMethodNotAllowed, fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
	})

	r.Get("/healthz", cfg.health.Healthz)
	r.Get("/readyz", cfg.health.Readyz)

	r.Route(cfg.basePath, func(api chi.Router) {
		api.Route("/public", func(group chi.Router) {
			if cfg.public != nil {
				cfg.public(group)
				return
			}
			registerUnavailable(group, "public")
		})
		if cfg.discounts != nil {
			cfg.discounts(api)
		} else {
			registerUnavailableRoute(api, "/cart/discounts:preview", "discounts")
			registerUnavailableRoute(api, "/checkout/discounts:settle", "discounts")
		}
	})
	return r
}

// WithBasePath overrides the API prefix.
func WithBasePath(path string) Option {
	return func(cfg *routerConfig) {
		if path != "" {
			cfg.basePath = path
		}
	}
}

// WithMiddlewares appends additional global middleware to the router.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithHealthHandlers overrides the handlers used for /healthz and /readyz endpoints.
func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.health = h
	}
}

// WithPublicRoutes configures the registrar responsible for the /public group.
func WithPublicRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.public = reg
	}
}

// WithDiscountRoutes configures the registrar for cart preview and checkout settlement.
func WithDiscountRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.discounts = reg
	}
}

func unavailableHandler(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError(httpx.CodeUnavailable, fmt.Sprintf("%s routes are not configured", name), http.StatusServiceUnavailable))
	}
}

func registerUnavailable(r chi.Router, name string) {
	handler := unavailableHandler(name)
	r.HandleFunc("/*", handler)
	r.HandleFunc("/", handler)
}

func registerUnavailableRoute(r chi.Router, path, name string) {
	r.HandleFunc(path, unavailableHandler(name))
}
