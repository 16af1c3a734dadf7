package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/CaoNhatLinh/squareup-sub002/internal/services"
)

type stubDiscountService struct {
	previewCmd services.PreviewCartCommand
	settleCmd  services.SettleCartCommand
	result     services.CartDiscountResult
	err        error
}

func (s *stubDiscountService) PreviewCart(_ context.Context, cmd services.PreviewCartCommand) (services.CartDiscountResult, error) {
	s.previewCmd = cmd
	return s.result, s.err
}

func (s *stubDiscountService) SettleCart(_ context.Context, cmd services.SettleCartCommand) (services.CartDiscountResult, error) {
	s.settleCmd = cmd
	return s.result, s.err
}

var _ services.DiscountService = (*stubDiscountService)(nil)

func newDiscountRouter(h *DiscountHandlers) chi.Router {
	r := chi.NewRouter()
	r.Route("/api/v1", h.Routes)
	return r
}

func postJSON(router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestDiscountHandlersPreview(t *testing.T) {
	evaluatedAt := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	svc := &stubDiscountService{result: services.CartDiscountResult{
		Subtotal:      decimal.RequireFromString("25"),
		TotalDiscount: decimal.RequireFromString("2.5"),
		Total:         decimal.RequireFromString("22.5"),
		AppliedRules: []services.AppliedDiscount{{
			RuleID: "noodle-tuesday", Name: "Noodle Tuesday", Kind: "flat",
			DiscountAmount: decimal.RequireFromString("2.5"), LineKeys: []string{"l1"},
		}},
		PerLineDiscount: map[string]services.LineDiscountView{},
		EvaluatedAt:     evaluatedAt,
	}}
	router := newDiscountRouter(NewDiscountHandlers(svc))

	rr := postJSON(router, "/api/v1/cart/discounts:preview",
		`{"lines":[{"lineKey":"l1","itemId":"pho-bo","categoryId":"noodles","unitPrice":"12.50","quantity":2}]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(svc.previewCmd.Lines) != 1 || svc.previewCmd.Lines[0].Quantity != 2 || !svc.previewCmd.Lines[0].UnitPrice.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected command %+v", svc.previewCmd)
	}

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["totalDiscount"] != "2.5" || body["total"] != "22.5" {
		t.Fatalf("unexpected totals %v", body)
	}
	if _, ok := body["settlementId"]; ok {
		t.Fatalf("preview must not expose settlementId")
	}
	applied, ok := body["appliedRules"].([]any)
	if !ok || len(applied) != 1 {
		t.Fatalf("unexpected appliedRules %v", body["appliedRules"])
	}
	if rule := applied[0].(map[string]any); rule["ruleId"] != "noodle-tuesday" || rule["kind"] != "flat" {
		t.Fatalf("unexpected applied rule %v", rule)
	}
}

func TestDiscountHandlersSettle(t *testing.T) {
	settledAt := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	published := true
	svc := &stubDiscountService{result: services.CartDiscountResult{
		SettlementID: "01HSETTLEMENT",
		SettledAt:    &settledAt,
		Published:    &published,
		EvaluatedAt:  settledAt,
	}}
	router := newDiscountRouter(NewDiscountHandlers(svc))

	rr := postJSON(router, "/api/v1/checkout/discounts:settle",
		`{"lines":[{"lineKey":"l1","itemId":"pho-bo","unitPrice":12.5,"quantity":1}],"orderReference":" ord-1 "}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if svc.settleCmd.OrderReference != "ord-1" || len(svc.settleCmd.Lines) != 1 {
		t.Fatalf("unexpected command %+v", svc.settleCmd)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["settlementId"] != "01HSETTLEMENT" || body["published"] != true || body["settledAt"] != "2025-03-03T12:00:00Z" {
		t.Fatalf("unexpected settlement body %v", body)
	}
}

func TestDiscountHandlersRequestErrors(t *testing.T) {
	cases := []struct {
		name   string
		path   string
		body   string
		err    error
		status int
		code   string
	}{
		{name: "malformed", path: "/api/v1/cart/discounts:preview", body: `{"lines":`, status: http.StatusBadRequest, code: "invalid_request"},
		{name: "unknown field", path: "/api/v1/cart/discounts:preview", body: `{"lines":[],"coupon":"X"}`, status: http.StatusBadRequest, code: "invalid_request"},
		{name: "empty body", path: "/api/v1/checkout/discounts:settle", body: ``, status: http.StatusBadRequest, code: "invalid_request"},
		{name: "too large", path: "/api/v1/cart/discounts:preview", body: fmt.Sprintf(`{"lines":[],"pad":"%s"}`, strings.Repeat("x", 2048)), status: http.StatusRequestEntityTooLarge, code: "payload_too_large"},
		{name: "order reference too long", path: "/api/v1/checkout/discounts:settle", body: fmt.Sprintf(`{"lines":[],"orderReference":"%s"}`, strings.Repeat("r", maxOrderReferenceLength+1)), status: http.StatusBadRequest, code: "invalid_request"},
		{name: "invalid cart", path: "/api/v1/cart/discounts:preview", body: `{"lines":[]}`, err: fmt.Errorf("%w: lines[0].quantity must be at least 1", services.ErrDiscountInvalidInput), status: http.StatusBadRequest, code: "invalid_request"},
		{name: "unexpected failure", path: "/api/v1/checkout/discounts:settle", body: `{"lines":[]}`, err: errors.New("boom"), status: http.StatusInternalServerError, code: "internal_server_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newDiscountRouter(NewDiscountHandlers(&stubDiscountService{err: tc.err}, WithDiscountBodyLimit(1024)))
			rr := postJSON(router, tc.path, tc.body)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rr.Code, rr.Body.String())
			}
			var body map[string]any
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["error"] != tc.code {
				t.Fatalf("expected code %s, got %v", tc.code, body["error"])
			}
		})
	}
}

func TestDiscountHandlersInvalidCartMessage(t *testing.T) {
	svc := &stubDiscountService{err: fmt.Errorf("%w: duplicate lineKey %q", services.ErrDiscountInvalidInput, "l1")}
	rr := postJSON(newDiscountRouter(NewDiscountHandlers(svc)), "/api/v1/cart/discounts:preview", `{"lines":[]}`)

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["message"] != `duplicate lineKey "l1"` {
		t.Fatalf("unexpected message %v", body["message"])
	}
}

func TestDiscountHandlersPreviewRateLimit(t *testing.T) {
	now := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	router := newDiscountRouter(NewDiscountHandlers(&stubDiscountService{},
		WithPreviewRateLimit(1, func() time.Time { return now })))

	if rr := postJSON(router, "/api/v1/cart/discounts:preview", `{"lines":[]}`); rr.Code != http.StatusOK {
		t.Fatalf("expected first preview to pass, got %d", rr.Code)
	}
	if rr := postJSON(router, "/api/v1/cart/discounts:preview", `{"lines":[]}`); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr := postJSON(router, "/api/v1/checkout/discounts:settle", `{"lines":[]}`); rr.Code != http.StatusOK {
		t.Fatalf("settlement must not be rate limited, got %d", rr.Code)
	}
}

func TestDiscountHandlersWithoutService(t *testing.T) {
	rr := postJSON(newDiscountRouter(NewDiscountHandlers(nil)), "/api/v1/cart/discounts:preview", `{"lines":[]}`)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}
