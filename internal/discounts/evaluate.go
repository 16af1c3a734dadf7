package discounts

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// Evaluate computes what rule would discount on the given cart, before any conflict resolution.
// subtotal is the whole cart's subtotal and feeds the minimum-spend guard. The boolean is false
// when the rule contributes nothing: its tier is not met, its guard fails or no line is touched.
// Activation is not checked here.
func Evaluate(rule Rule, lines []CartLine, subtotal decimal.Decimal) (PerRuleResult, bool) {
	var result PerRuleResult
	switch r := rule.(type) {
	case FlatRule:
		result = evaluateFlat(r, lines)
	case QuantityRule:
		result = evaluateQuantity(r, lines)
	default:
		return PerRuleResult{}, false
	}

	result, ok := applyGuards(rule.Base().Guards, result, subtotal)
	if !ok || !result.DiscountAmount.IsPositive() {
		return PerRuleResult{}, false
	}
	return result, true
}

func evaluateFlat(rule FlatRule, lines []CartLine) PerRuleResult {
	result := newResult(rule)
	for _, line := range EligibleLines(rule.Targeting, lines) {
		discount, ok := discountUnits(rule.RuleBase, line, line.Quantity)
		if !ok {
			continue
		}
		result.add(line.LineKey, discount)
	}
	return result
}

// evaluateQuantity discounts the cheapest target units first.
func evaluateQuantity(rule QuantityRule, lines []CartLine) PerRuleResult {
	result := newResult(rule)
	base := rule.Base()

	eligible := EligibleLines(base.Targeting, lines)
	total := 0
	for _, line := range eligible {
		total = addQuantity(total, line.Quantity)
	}

	remaining, ok := rule.unitsToDiscount(total)
	if !ok || remaining <= 0 {
		return result
	}

	targets := DiscountTargets(rule.Terms(), eligible)
	sort.SliceStable(targets, func(i, j int) bool {
		return targets[i].EffectiveUnitPrice().LessThan(targets[j].EffectiveUnitPrice())
	})

	for _, line := range targets {
		if remaining <= 0 {
			break
		}
		take := line.Quantity
		if take > remaining {
			take = remaining
		}
		remaining -= take
		discount, ok := discountUnits(base, line, take)
		if !ok {
			continue
		}
		result.add(line.LineKey, discount)
	}
	return result
}

// discountUnits applies the rule's amount to quantity units of line. The discount never exceeds
// the price of those units.
func discountUnits(base RuleBase, line CartLine, quantity int) (LineDiscount, bool) {
	if quantity <= 0 {
		return LineDiscount{}, false
	}
	unit := line.EffectiveUnitPrice()
	qty := decimal.NewFromInt(int64(quantity))
	portion := unit.Mul(qty)

	var raw decimal.Decimal
	switch base.Amount.Type {
	case AmountPercentage:
		raw = portion.Mul(base.Amount.Value).Div(hundred)
	case AmountFixed:
		raw = base.Amount.Value.Mul(qty)
	default:
		return LineDiscount{}, false
	}

	amount := clampMoney(raw.Round(MoneyScale), portion)
	if !amount.IsPositive() {
		return LineDiscount{}, false
	}

	discount := buildLineDiscount(base.ID, unit, quantity, amount)
	if base.Amount.Type == AmountPercentage {
		discount.DiscountPercentEquivalent = base.Amount.Value
	}
	return discount, true
}

// buildLineDiscount derives the per-unit view of amount spread over quantity units.
func buildLineDiscount(ruleID string, unit decimal.Decimal, quantity int, amount decimal.Decimal) LineDiscount {
	perUnit := amount.DivRound(decimal.NewFromInt(int64(quantity)), MoneyScale)
	final := unit.Sub(perUnit)
	if final.IsNegative() {
		final = decimal.Zero
	}
	return LineDiscount{
		RuleID:                    ruleID,
		OriginalUnitPrice:         unit,
		DiscountPerUnit:           perUnit,
		FinalUnitPrice:            final,
		QuantityDiscounted:        quantity,
		DiscountAmount:            amount,
		DiscountPercentEquivalent: percentOf(perUnit, unit),
	}
}

// applyGuards enforces the minimum-spend and maximum-value guards on a computed result.
func applyGuards(guards Guards, result PerRuleResult, subtotal decimal.Decimal) (PerRuleResult, bool) {
	if guards.MinimumSubtotal != nil && subtotal.LessThan(*guards.MinimumSubtotal) {
		return PerRuleResult{}, false
	}
	if guards.MaximumValue != nil && result.DiscountAmount.GreaterThan(*guards.MaximumValue) {
		result = capResult(result, guards.MaximumValue.Round(MoneyScale))
	}
	return result, true
}

// capResult scales the per-line amounts down so they sum to limit, distributing leftover cents
// by largest remainder so the breakdown still adds up to the rule total.
func capResult(result PerRuleResult, limit decimal.Decimal) PerRuleResult {
	keys := sortedKeys(result.PerLineDiscount)
	weights := make([]decimal.Decimal, len(keys))
	for i, key := range keys {
		weights[i] = toCents(result.PerLineDiscount[key].DiscountAmount)
	}
	allocations := allocateByWeight(toCents(limit), weights)

	capped := newResult(result.Rule)
	for i, key := range keys {
		amount := fromCents(allocations[i])
		if !amount.IsPositive() {
			continue
		}
		line := result.PerLineDiscount[key]
		capped.add(key, buildLineDiscount(line.RuleID, line.OriginalUnitPrice, line.QuantityDiscounted, amount))
	}
	return capped
}

// allocateByWeight splits amount (whole cents) across weights proportionally, handing the
// remainder to the largest fractional shares first and breaking ties by position. No share exceeds
// its weight.
func allocateByWeight(amount decimal.Decimal, weights []decimal.Decimal) []decimal.Decimal {
	allocations := make([]decimal.Decimal, len(weights))
	for i := range allocations {
		allocations[i] = decimal.Zero
	}
	if !amount.IsPositive() || len(weights) == 0 {
		return allocations
	}
	clean := make([]decimal.Decimal, len(weights))
	totalWeight := decimal.Zero
	for i, w := range weights {
		if w.IsNegative() {
			w = decimal.Zero
		}
		clean[i] = w
		totalWeight = totalWeight.Add(w)
	}
	if totalWeight.IsZero() {
		return allocations
	}
	if amount.GreaterThan(totalWeight) {
		amount = totalWeight
	}

	type remainderPair struct {
		idx       int
		remainder decimal.Decimal
	}
	pairs := make([]remainderPair, len(weights))
	distributed := decimal.Zero
	for i, w := range clean {
		share, rem := amount.Mul(w).QuoRem(totalWeight, 0)
		allocations[i] = share
		distributed = distributed.Add(share)
		pairs[i] = remainderPair{idx: i, remainder: rem}
	}

	remainder := amount.Sub(distributed)
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].remainder.GreaterThan(pairs[j].remainder)
	})
	for _, pair := range pairs {
		if !remainder.IsPositive() {
			break
		}
		if !allocations[pair.idx].LessThan(clean[pair.idx]) {
			continue
		}
		allocations[pair.idx] = allocations[pair.idx].Add(decimal.NewFromInt(1))
		remainder = remainder.Sub(decimal.NewFromInt(1))
	}
	return allocations
}

// addQuantity sums unit counts, saturating at math.MaxInt instead of wrapping.
func addQuantity(total, quantity int) int {
	if quantity <= 0 {
		return total
	}
	if total > math.MaxInt-quantity {
		return math.MaxInt
	}
	return total + quantity
}

func newResult(rule Rule) PerRuleResult {
	return PerRuleResult{
		Rule:            rule,
		DiscountAmount:  decimal.Zero,
		PerLineDiscount: make(map[string]LineDiscount),
	}
}

func (r *PerRuleResult) add(lineKey string, discount LineDiscount) {
	r.PerLineDiscount[lineKey] = discount
	r.DiscountAmount = r.DiscountAmount.Add(discount.DiscountAmount)
}

// percentOf returns part as a whole-number percentage of whole, or zero for a zero whole.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(0)
}

func clampMoney(value, limit decimal.Decimal) decimal.Decimal {
	if value.IsNegative() {
		return decimal.Zero
	}
	if value.GreaterThan(limit) {
		return limit
	}
	return value
}

func toCents(value decimal.Decimal) decimal.Decimal {
	return value.Shift(MoneyScale).Round(0)
}

func fromCents(cents decimal.Decimal) decimal.Decimal {
	return cents.Shift(-MoneyScale)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
