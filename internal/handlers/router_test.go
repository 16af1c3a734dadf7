package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	domain "github.com/CaoNhatLinh/squareup-sub002/internal/domain"
	"github.com/CaoNhatLinh/squareup-sub002/internal/services"
)

func TestNewRouterDefaultMounts(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	health := NewHealthHandlers(
		WithHealthSystemService(&stubSystemService{report: services.SystemHealthReport{
			Status: domain.HealthStatusOK,
			Checks: map[string]domain.SystemHealthCheck{"firestore": {Status: domain.HealthStatusOK}},
		}}),
		WithHealthClock(func() time.Time { return now }),
	)
	router := NewRouter(WithHealthHandlers(health))

	cases := []struct {
		name   string
		method string
		path   string
		status int
		code   string
	}{
		{name: "healthz", method: http.MethodGet, path: "/healthz", status: http.StatusOK},
		{name: "readyz", method: http.MethodGet, path: "/readyz", status: http.StatusOK},
		{name: "unwired public group", method: http.MethodGet, path: "/api/v1/public/menu", status: http.StatusServiceUnavailable, code: "service_unavailable"},
		{name: "unwired preview", method: http.MethodPost, path: "/api/v1/cart/discounts:preview", status: http.StatusServiceUnavailable, code: "service_unavailable"},
		{name: "unknown route", method: http.MethodGet, path: "/nope", status: http.StatusNotFound, code: "not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
			if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
				t.Fatalf("expected json content type, got %q", ct)
			}
			if tc.code == "" {
				return
			}
			var body map[string]any
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["error"] != tc.code {
				t.Fatalf("expected error %s, got %v", tc.code, body["error"])
			}
			if body["request_id"] == nil {
				t.Fatalf("expected request_id in envelope")
			}
		})
	}
}

func TestNewRouterMountsRegistrars(t *testing.T) {
	menu := &stubMenuService{}
	discounts := &stubDiscountService{}
	router := NewRouter(
		WithPublicRoutes(NewMenuHandlers(menu).Routes),
		WithDiscountRoutes(NewDiscountHandlers(discounts).Routes),
	)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/public/menu?category=starters", nil))
	if rr.Code != http.StatusOK || menu.filter.CategoryID != "starters" {
		t.Fatalf("expected menu route, got %d %+v", rr.Code, menu.filter)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/discounts:settle", strings.NewReader(`{"lines":[],"orderReference":"A1"}`))
	req.Header.Set("Content-Type", "application/json")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || discounts.settleCmd.OrderReference != "A1" {
		t.Fatalf("expected settle route, got %d %+v", rr.Code, discounts.settleCmd)
	}
}

func TestNewRouterHonoursBasePath(t *testing.T) {
	menu := &stubMenuService{}
	router := NewRouter(
		WithBasePath("/storefront/v2"),
		WithPublicRoutes(NewMenuHandlers(menu).Routes),
	)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/storefront/v2/public/menu", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected menu under custom base path, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/public/menu", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected default prefix to be gone, got %d", rr.Code)
	}
}
