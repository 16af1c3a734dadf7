package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/CaoNhatLinh/squareup-sub002/internal/platform/httpx"
	"github.com/CaoNhatLinh/squareup-sub002/internal/platform/observability"
	"github.com/CaoNhatLinh/squareup-sub002/internal/services"
)

const (
	defaultDiscountBodyLimit = 64 << 10
	maxOrderReferenceLength  = 128
)

// DiscountHandlers exposes cart preview and checkout settlement.
type DiscountHandlers struct {
	discounts services.DiscountService
	bodyLimit int64
	limiter   rateLimiter
}

// DiscountOption customises DiscountHandlers.
type DiscountOption func(*DiscountHandlers)

// WithDiscountBodyLimit caps request bodies in bytes.
func WithDiscountBodyLimit(limit int64) DiscountOption {
	return func(h *DiscountHandlers) {
		if limit > 0 {
			h.bodyLimit = limit
		}
	}
}

// WithPreviewRateLimit limits previews per client IP per minute. Zero disables limiting.
func WithPreviewRateLimit(perMinute int, clock func() time.Time) DiscountOption {
	return func(h *DiscountHandlers) {
		h.limiter = newFixedWindowLimiter(perMinute, time.Minute, clock)
	}
}

// NewDiscountHandlers builds the discount endpoints.
func NewDiscountHandlers(svc services.DiscountService, opts ...DiscountOption) *DiscountHandlers {
	h := &DiscountHandlers{
		discounts: svc,
		bodyLimit: defaultDiscountBodyLimit,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the endpoints relative to the API base path.
func (h *DiscountHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.With(limitByClientIP(h.limiter)).Post("/cart/discounts:preview", h.previewCart)
	r.Post("/checkout/discounts:settle", h.settleCart)
}

type previewCartRequest struct {
	Lines []services.CartLineInput `json:"lines"`
}

type settleCartRequest struct {
	Lines          []services.CartLineInput `json:"lines"`
	OrderReference string                   `json:"orderReference"`
}

func (h *DiscountHandlers) previewCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.discounts == nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "discount service is unavailable", http.StatusServiceUnavailable))
		return
	}
	var req previewCartRequest
	if decodeErr := httpx.DecodeJSON(w, r, h.bodyLimit, &req); decodeErr != nil {
		httpx.WriteError(ctx, w, *decodeErr)
		return
	}

	result, err := h.discounts.PreviewCart(ctx, services.PreviewCartCommand{Lines: req.Lines})
	if err != nil {
		writeDiscountError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}

func (h *DiscountHandlers) settleCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.discounts == nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "discount service is unavailable", http.StatusServiceUnavailable))
		return
	}
	var req settleCartRequest
	if decodeErr := httpx.DecodeJSON(w, r, h.bodyLimit, &req); decodeErr != nil {
		httpx.WriteError(ctx, w, *decodeErr)
		return
	}
	reference := strings.TrimSpace(req.OrderReference)
	if len(reference) > maxOrderReferenceLength {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, "orderReference is too long", http.StatusBadRequest))
		return
	}

	result, err := h.discounts.SettleCart(ctx, services.SettleCartCommand{Lines: req.Lines, OrderReference: reference})
	if err != nil {
		writeDiscountError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}

func writeDiscountError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrDiscountInvalidInput):
		message := strings.TrimPrefix(err.Error(), services.ErrDiscountInvalidInput.Error()+": ")
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, message, http.StatusBadRequest))
	case errors.Is(err, services.ErrDiscountRuleRepositoryMissing):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "discount rules are not configured", http.StatusServiceUnavailable))
	default:
		observability.FromContext(ctx).Error("discount computation failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInternal, "failed to compute discounts", http.StatusInternalServerError))
	}
}
