package firestore

import (
	"testing"

	pconfig "github.com/CaoNhatLinh/squareup-sub002/internal/platform/config"
	pfirestore "github.com/CaoNhatLinh/squareup-sub002/internal/platform/firestore"
)

func TestConstructorsValidateArguments(t *testing.T) {
	provider := pfirestore.NewProvider(pconfig.FirestoreConfig{ProjectID: "unit"})
	t.Cleanup(func() { _ = provider.Close() })

	if _, err := NewDiscountRuleRepository(nil, "discounts"); err == nil {
		t.Fatalf("expected error for nil provider")
	}
	if _, err := NewDiscountRuleRepository(provider, ""); err == nil {
		t.Fatalf("expected error for empty collection")
	}
	if _, err := NewMenuItemRepository(nil, "menuItems"); err == nil {
		t.Fatalf("expected error for nil provider")
	}
	if _, err := NewMenuItemRepository(provider, ""); err == nil {
		t.Fatalf("expected error for empty collection")
	}
	if _, err := NewMenuItemRepository(provider, "menuItems"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
