package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/CaoNhatLinh/squareup-sub002/internal/platform/requestctx"
)

// Canonical error codes.
const (
	CodeInvalidRequest   = "invalid_request"
	CodePayloadTooLarge  = "payload_too_large"
	CodeRateLimited      = "rate_limited"
	CodeNotFound         = "not_found"
	CodeUnavailable      = "service_unavailable"
	CodeInternal         = "internal_server_error"
	CodeMethodNotAllowed = "method_not_allowed"
)

// Error represents the canonical JSON error envelope returned by the API.
type Error struct {
	Code    string
	Message string
	Status  int
	Details map[string]any
}

// NewError constructs a new Error with the provided parameters.
func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{
		Code:    sanitize(code, 80),
		Message: sanitize(message, 512),
		Status:  status,
	}
}

// WriteError writes the structured error with the request and trace ids found on ctx.
func WriteError(ctx context.Context, w http.ResponseWriter, err Error) {
	status := err.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	payload := map[string]any{
		"error":   err.Code,
		"message": err.Message,
		"status":  status,
	}
	for k, v := range err.Details {
		payload[k] = v
	}
	if id := sanitize(middleware.GetReqID(ctx), 80); id != "" {
		payload["request_id"] = id
	}
	if id := sanitize(requestctx.TraceID(ctx), 64); id != "" {
		payload["trace_id"] = id
	}

	WriteJSON(w, status, payload)
}

// WriteJSON encodes payload with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// DecodeJSON reads exactly one JSON object of at most limit bytes into dst, rejecting unknown
// fields. The returned Error is ready to be written.
func DecodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) *Error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		e := NewError(CodeInvalidRequest, "content type must be application/json", http.StatusUnsupportedMediaType)
		return &e
	}
	body := http.MaxBytesReader(w, r.Body, limit)
	defer body.Close()

	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			e := NewError(CodePayloadTooLarge, fmt.Sprintf("request body exceeds %d bytes", limit), http.StatusRequestEntityTooLarge)
			return &e
		case errors.Is(err, io.EOF):
			e := NewError(CodeInvalidRequest, "request body is empty", http.StatusBadRequest)
			return &e
		default:
			e := NewError(CodeInvalidRequest, "malformed JSON body: "+err.Error(), http.StatusBadRequest)
			return &e
		}
	}
	if decoder.More() {
		e := NewError(CodeInvalidRequest, "request body must contain a single JSON object", http.StatusBadRequest)
		return &e
	}
	return nil
}

func sanitize(value string, limit int) string {
	value = strings.TrimSpace(strings.NewReplacer("\n", " ", "\r", " ").Replace(value))
	if len(value) > limit {
		value = value[:limit]
	}
	return value
}
