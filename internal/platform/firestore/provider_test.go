package firestore

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/api/option"

	"github.com/CaoNhatLinh/squareup-sub002/internal/platform/config"
)

func TestNewProviderAppliesOptions(t *testing.T) {
	p := NewProvider(config.FirestoreConfig{ProjectID: "unit"},
		WithDialTimeout(2*time.Second),
		WithClientOptions(option.WithUserAgent("discounts-test")),
	)
	if p.dialTimeout != 2*time.Second {
		t.Fatalf("expected dial timeout override, got %s", p.dialTimeout)
	}
	if len(p.clientOpts) != 1 {
		t.Fatalf("expected one client option, got %d", len(p.clientOpts))
	}

	defaulted := NewProvider(config.FirestoreConfig{}, WithDialTimeout(0))
	if defaulted.dialTimeout != defaultDialTimeout {
		t.Fatalf("expected non-positive timeout to keep the default, got %s", defaulted.dialTimeout)
	}
}

func TestProviderClosedRejectsClient(t *testing.T) {
	p := NewProvider(config.FirestoreConfig{ProjectID: "unit"})
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := p.Client(context.Background()); !errors.Is(err, ErrProviderClosed) {
		t.Fatalf("expected ErrProviderClosed, got %v", err)
	}
}
