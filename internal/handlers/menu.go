package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/CaoNhatLinh/squareup-sub002/internal/platform/httpx"
	"github.com/CaoNhatLinh/squareup-sub002/internal/platform/observability"
	"github.com/CaoNhatLinh/squareup-sub002/internal/services"
)

const (
	menuCacheControl     = "public, max-age=30"
	maxCategoryParamSize = 128
)

// MenuHandlers exposes the public storefront menu.
type MenuHandlers struct {
	menu services.MenuService
}

// NewMenuHandlers builds the menu endpoints.
func NewMenuHandlers(svc services.MenuService) *MenuHandlers {
	return &MenuHandlers{menu: svc}
}

// Routes registers the endpoints on the /public group.
func (h *MenuHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/menu", h.listMenu)
}

type menuResponse struct {
	Items []services.AnnotatedMenuItem `json:"items"`
}

func (h *MenuHandlers) listMenu(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.menu == nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "menu service is unavailable", http.StatusServiceUnavailable))
		return
	}

	query := r.URL.Query()
	filter := services.MenuFilter{CategoryID: strings.TrimSpace(query.Get("category"))}
	if len(filter.CategoryID) > maxCategoryParamSize {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, "category is too long", http.StatusBadRequest))
		return
	}
	if raw := strings.TrimSpace(query.Get("available")); raw != "" {
		onlyAvailable, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, "available must be a boolean", http.StatusBadRequest))
			return
		}
		filter.OnlyAvailable = onlyAvailable
	}

	items, err := h.menu.AnnotatedMenu(ctx, filter)
	if err != nil {
		if errors.Is(err, services.ErrMenuCatalogUnavailable) {
			observability.FromContext(ctx).Warn("menu catalog unavailable", zap.Error(err))
			httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "menu is temporarily unavailable", http.StatusServiceUnavailable))
			return
		}
		observability.FromContext(ctx).Error("menu listing failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInternal, "failed to load menu", http.StatusInternalServerError))
		return
	}
	if items == nil {
		items = []services.AnnotatedMenuItem{}
	}
	w.Header().Set("Cache-Control", menuCacheControl)
	httpx.WriteJSON(w, http.StatusOK, menuResponse{Items: items})
}
