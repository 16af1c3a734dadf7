package repositories

import (
	"context"
	"errors"
	"testing"

	domain "github.com/CaoNhatLinh/squareup-sub002/internal/domain"
)

type emptyRules struct{}

func (emptyRules) ListDiscountRules(context.Context) (DiscountRuleSet, error) {
	return DiscountRuleSet{}, nil
}

type emptyCatalog struct{}

func (emptyCatalog) ListMenuItems(context.Context, MenuItemFilter) ([]domain.MenuItem, error) {
	return nil, nil
}

func TestNewRegistryRequiresSources(t *testing.T) {
	if _, err := NewRegistry(nil, emptyCatalog{}, nil); err == nil {
		t.Fatalf("expected error without rules")
	}
	if _, err := NewRegistry(emptyRules{}, nil, nil); err == nil {
		t.Fatalf("expected error without catalog")
	}
}

func TestRegistryCloseRunsClosersInReverse(t *testing.T) {
	var order []string
	boom := errors.New("boom")
	reg, err := NewRegistry(emptyRules{}, emptyCatalog{}, nil,
		func(context.Context) error { order = append(order, "firestore"); return nil },
		func(context.Context) error { order = append(order, "pubsub"); return boom },
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if err := reg.Close(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected joined close error, got %v", err)
	}
	if len(order) != 2 || order[0] != "pubsub" || order[1] != "firestore" {
		t.Fatalf("unexpected close order %v", order)
	}
	if err := reg.Close(context.Background()); err != nil {
		t.Fatalf("second close should be a no-op, got %v", err)
	}
}
