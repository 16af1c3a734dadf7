package discounts

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ComputeCartDiscounts evaluates every active rule against the cart and resolves overlaps. Rules
// are considered in the order given; that order breaks ties between equal discounts.
func ComputeCartDiscounts(lines []CartLine, rules []Rule, now time.Time) CartDiscountSummary {
	subtotal := Subtotal(lines)
	results := make([]PerRuleResult, 0, len(rules))
	for _, rule := range rules {
		if !IsActive(rule, now) {
			continue
		}
		if result, ok := Evaluate(rule, lines, subtotal); ok {
			results = append(results, result)
		}
	}
	return Resolve(results, subtotal)
}

// Subtotal sums the line totals of a cart.
func Subtotal(lines []CartLine) decimal.Decimal {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.LineTotal())
	}
	return subtotal
}

// Resolve picks the rules that apply to a cart. Larger discounts claim their lines first; a rule
// touching any line already claimed is rejected as a whole, so no line is discounted twice.
func Resolve(results []PerRuleResult, subtotal decimal.Decimal) CartDiscountSummary {
	candidates := make([]PerRuleResult, 0, len(results))
	for _, result := range results {
		if result.DiscountAmount.IsPositive() {
			candidates = append(candidates, result)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].DiscountAmount.GreaterThan(candidates[j].DiscountAmount)
	})

	summary := CartDiscountSummary{
		Subtotal:        subtotal,
		TotalDiscount:   decimal.Zero,
		PerLineDiscount: make(map[string]LineDiscount),
	}
	claimed := make(map[string]struct{})

	for _, candidate := range candidates {
		keys := candidate.LineKeys()
		if overlaps(claimed, keys) {
			continue
		}
		for _, key := range keys {
			claimed[key] = struct{}{}
			summary.PerLineDiscount[key] = candidate.PerLineDiscount[key]
		}
		summary.TotalDiscount = summary.TotalDiscount.Add(candidate.DiscountAmount)
		summary.AppliedRules = append(summary.AppliedRules, AppliedRule{
			Rule:           candidate.Rule,
			DiscountAmount: candidate.DiscountAmount,
			LineKeys:       keys,
		})
	}

	summary.Total = subtotal.Sub(summary.TotalDiscount)
	return summary
}

func overlaps(claimed map[string]struct{}, keys []string) bool {
	for _, key := range keys {
		if _, ok := claimed[key]; ok {
			return true
		}
	}
	return false
}
