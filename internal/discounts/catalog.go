package discounts

import (
	"time"

	"github.com/shopspring/decimal"
)

// CatalogItem is a menu item as shown on the storefront.
type CatalogItem struct {
	ID         string
	Name       string
	CategoryID string
	Price      decimal.Decimal
	Available  bool
}

// DiscountAnnotation describes the badge price of a catalog item.
type DiscountAnnotation struct {
	HasDiscount     bool
	RuleID          string
	RuleName        string
	DiscountPercent int64
	DiscountAmount  decimal.Decimal
	OriginalPrice   decimal.Decimal
	DiscountedPrice decimal.Decimal
}

// AnnotatedItem pairs a catalog item with its annotation. Annotation is nil when no active flat
// rule discounts the item.
type AnnotatedItem struct {
	CatalogItem
	Annotation *DiscountAnnotation
}

// AnnotateCatalogDiscounts picks, for every item independently, the active flat rule with the
// greatest percentage-equivalent value. Quantity rules never apply without a cart. On equal value
// the rule appearing first in rules wins.
func AnnotateCatalogDiscounts(items map[string]CatalogItem, rules []Rule, now time.Time) map[string]AnnotatedItem {
	active := make([]FlatRule, 0, len(rules))
	for _, rule := range rules {
		flat, ok := rule.(FlatRule)
		if !ok || !IsActive(flat, now) {
			continue
		}
		active = append(active, flat)
	}

	out := make(map[string]AnnotatedItem, len(items))
	for key, item := range items {
		annotated := AnnotatedItem{CatalogItem: item}
		if best, ok := bestFlatRule(active, item); ok {
			annotated.Annotation = annotateItem(best, item)
		}
		out[key] = annotated
	}
	return out
}

func bestFlatRule(rules []FlatRule, item CatalogItem) (FlatRule, bool) {
	var (
		best      FlatRule
		bestValue decimal.Decimal
		found     bool
	)
	for _, rule := range rules {
		if !rule.Targeting.Matches(item.ID, item.CategoryID) {
			continue
		}
		value := percentEquivalent(rule.Amount, item.Price)
		if !found || value.GreaterThan(bestValue) {
			best, bestValue, found = rule, value, true
		}
	}
	return best, found
}

// percentEquivalent expresses an amount as a percentage of price. A zero price yields zero.
func percentEquivalent(amount Amount, price decimal.Decimal) decimal.Decimal {
	if amount.Type == AmountPercentage {
		return amount.Value
	}
	if !price.IsPositive() {
		return decimal.Zero
	}
	return amount.Value.Div(price).Mul(hundred)
}

func annotateItem(rule FlatRule, item CatalogItem) *DiscountAnnotation {
	price := item.Price
	var raw decimal.Decimal
	switch rule.Amount.Type {
	case AmountPercentage:
		raw = price.Mul(rule.Amount.Value).Div(hundred)
	case AmountFixed:
		raw = rule.Amount.Value
	default:
		return nil
	}

	capped := false
	if limit := rule.Guards.MaximumValue; limit != nil && raw.GreaterThan(*limit) {
		raw = *limit
		capped = true
	}
	amount := clampMoney(raw.Round(MoneyScale), price)
	if !amount.IsPositive() {
		return nil
	}

	percent := percentOf(amount, price)
	if rule.Amount.Type == AmountPercentage && !capped {
		percent = rule.Amount.Value.Round(0)
	}

	discounted := price.Sub(amount)
	if discounted.IsNegative() {
		discounted = decimal.Zero
	}
	return &DiscountAnnotation{
		HasDiscount:     true,
		RuleID:          rule.ID,
		RuleName:        rule.Name,
		DiscountPercent: percent.IntPart(),
		DiscountAmount:  amount,
		OriginalPrice:   price,
		DiscountedPrice: discounted,
	}
}
