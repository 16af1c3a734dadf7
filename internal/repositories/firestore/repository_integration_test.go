//go:build integration

package firestore

import (
	"context"
	"os"
	"testing"
	"time"

	pconfig "github.com/CaoNhatLinh/squareup-sub002/internal/platform/config"
	pfirestore "github.com/CaoNhatLinh/squareup-sub002/internal/platform/firestore"
	"github.com/CaoNhatLinh/squareup-sub002/internal/repositories"
)

func emulatorProvider(t *testing.T) *pfirestore.Provider {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	host := os.Getenv("FIRESTORE_EMULATOR_HOST")
	if host == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	provider := pfirestore.NewProvider(pconfig.FirestoreConfig{ProjectID: "discounts-it", EmulatorHost: host})
	t.Cleanup(func() { _ = provider.Close() })
	return provider
}

func seed(ctx context.Context, t *testing.T, provider *pfirestore.Provider, collection string, docs map[string]map[string]any) {
	t.Helper()
	client, err := provider.Client(ctx)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	for id, data := range docs {
		if _, err := client.Collection(collection).Doc(id).Set(ctx, data); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
}

func TestDiscountRuleRepositoryIntegration(t *testing.T) {
	provider := emulatorProvider(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	collection := "discounts-" + time.Now().Format("150405.000000")
	seed(ctx, t, provider, collection, map[string]map[string]any{
		"lunch": {
			"name":               "Lunch special",
			"automaticDiscount":  true,
			"applyTo":            "item_category",
			"purchaseCategories": []string{"noodles"},
			"amountType":         "percentage",
			"amount":             10,
		},
		"code-only": {"name": "Code only", "automaticDiscount": false, "applyTo": "item_category"},
		"broken":    {"name": "Broken", "automaticDiscount": true, "amount": "ten"},
	})

	repo, err := NewDiscountRuleRepository(provider, collection)
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	set, err := repo.ListDiscountRules(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(set.Rules) != 1 || set.Rules[0].ID != "lunch" || set.Rules[0].Amount != 10 {
		t.Fatalf("unexpected rules %#v", set.Rules)
	}
	if set.Rules[0].UpdatedAt.IsZero() {
		t.Fatalf("expected update time to default to the document's")
	}
	if len(set.Skipped) != 1 {
		t.Fatalf("expected broken document to be skipped, got %v", set.Skipped)
	}
}

func TestMenuItemRepositoryIntegration(t *testing.T) {
	provider := emulatorProvider(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	collection := "menu-" + time.Now().Format("150405.000000")
	seed(ctx, t, provider, collection, map[string]map[string]any{
		"pho-bo":   {"name": "Pho Bo", "categoryId": "noodles", "price": 12.5, "available": true, "sortOrder": 2},
		"bun-cha":  {"name": "Bun Cha", "categoryId": "noodles", "price": 11, "available": true, "sortOrder": 1},
		"pho-ga":   {"name": "Pho Ga", "categoryId": "noodles", "price": 11.5, "available": false, "sortOrder": 3},
		"iced-tea": {"name": "Iced Tea", "categoryId": "drinks", "price": 2, "available": true},
	})

	repo, err := NewMenuItemRepository(provider, collection)
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	items, err := repo.ListMenuItems(ctx, repositories.MenuItemFilter{CategoryID: "noodles", OnlyAvailable: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || items[0].ID != "bun-cha" || items[1].ID != "pho-bo" {
		t.Fatalf("unexpected items %#v", items)
	}
}
