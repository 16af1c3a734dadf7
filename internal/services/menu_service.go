package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/CaoNhatLinh/squareup-sub002/internal/discounts"
	"github.com/CaoNhatLinh/squareup-sub002/internal/platform/observability"
	"github.com/CaoNhatLinh/squareup-sub002/internal/repositories"
)

var (
	// ErrMenuCatalogRepositoryMissing indicates the catalog source was not wired.
	ErrMenuCatalogRepositoryMissing = errors.New("menu service: catalog repository is not configured")
	// ErrMenuCatalogUnavailable wraps catalog read failures.
	ErrMenuCatalogUnavailable = errors.New("menu service: catalog unavailable")
)

// MenuServiceDeps bundles dependencies required to construct a MenuService.
type MenuServiceDeps struct {
	Catalog      repositories.CatalogRepository
	Rules        repositories.DiscountRuleRepository
	Metrics      *observability.DiscountMetrics
	Clock        func() time.Time
	Location     *time.Location
	RuleCacheTTL time.Duration
	// Disabled hides every badge.
	Disabled bool
}

type menuService struct {
	catalog  repositories.CatalogRepository
	rules    *ruleLoader
	clock    func() time.Time
	location *time.Location
	disabled bool
}

var _ MenuService = (*menuService)(nil)

// NewMenuService wires the storefront menu. Rules may be nil, in which case no badges are shown.
func NewMenuService(deps MenuServiceDeps) (MenuService, error) {
	if deps.Catalog == nil {
		return nil, ErrMenuCatalogRepositoryMissing
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	location := deps.Location
	if location == nil {
		location = time.UTC
	}
	svc := &menuService{
		catalog:  deps.Catalog,
		clock:    clock,
		location: location,
		disabled: deps.Disabled,
	}
	if deps.Rules != nil {
		svc.rules = newRuleLoader(deps.Rules, deps.RuleCacheTTL, clock, deps.Metrics)
	}
	return svc, nil
}

// AnnotatedMenu lists catalog items in storefront order with their best flat discount. A failed
// catalog read is an error; a failed rule read only drops the badges.
func (s *menuService) AnnotatedMenu(ctx context.Context, filter MenuFilter) ([]AnnotatedMenuItem, error) {
	items, err := s.catalog.ListMenuItems(ctx, repositories.MenuItemFilter{
		CategoryID:    filter.CategoryID,
		OnlyAvailable: filter.OnlyAvailable,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMenuCatalogUnavailable, err)
	}

	catalog := make(map[string]discounts.CatalogItem, len(items))
	for _, item := range items {
		price := decimal.NewFromFloat(item.Price).Round(discounts.MoneyScale)
		if price.IsNegative() {
			price = decimal.Zero
		}
		catalog[item.ID] = discounts.CatalogItem{
			ID:         item.ID,
			Name:       item.Name,
			CategoryID: item.CategoryID,
			Price:      price,
			Available:  item.Available,
		}
	}

	var rules []discounts.Rule
	if !s.disabled && s.rules != nil {
		rules = s.rules.Cached(ctx, siteMenu)
	}
	annotated := discounts.AnnotateCatalogDiscounts(catalog, rules, s.clock().In(s.location))

	out := make([]AnnotatedMenuItem, 0, len(items))
	emitted := make(map[string]struct{}, len(items))
	for _, item := range items {
		entry, ok := annotated[item.ID]
		if _, dup := emitted[item.ID]; !ok || dup {
			continue
		}
		emitted[item.ID] = struct{}{}
		view := AnnotatedMenuItem{
			ID:         entry.ID,
			Name:       entry.Name,
			CategoryID: entry.CategoryID,
			Price:      entry.Price,
			Available:  entry.Available,
		}
		if a := entry.Annotation; a != nil {
			view.Discount = &MenuDiscount{
				HasDiscount:     a.HasDiscount,
				RuleID:          a.RuleID,
				RuleName:        a.RuleName,
				DiscountPercent: a.DiscountPercent,
				DiscountAmount:  a.DiscountAmount,
				OriginalPrice:   a.OriginalPrice,
				DiscountedPrice: a.DiscountedPrice,
			}
		}
		out = append(out, view)
	}
	return out, nil
}
