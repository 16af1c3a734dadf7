package repositories

import (
	"context"

	domain "github.com/CaoNhatLinh/squareup-sub002/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	DiscountRules() DiscountRuleRepository
	Catalog() CatalogRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// DiscountRuleSet is one read of the stored promotions. Skipped lists documents that could not be
// decoded at all; they never reach rule validation.
type DiscountRuleSet struct {
	Rules   []domain.DiscountRule
	Skipped []error
}

// DiscountRuleRepository reads the merchant's promotion documents. Rules are never written here.
type DiscountRuleRepository interface {
	ListDiscountRules(ctx context.Context) (DiscountRuleSet, error)
}

// MenuItemFilter narrows a catalog listing.
type MenuItemFilter struct {
	CategoryID    string
	OnlyAvailable bool
}

// CatalogRepository reads menu items for storefront annotation.
type CatalogRepository interface {
	ListMenuItems(ctx context.Context, filter MenuItemFilter) ([]domain.MenuItem, error)
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
