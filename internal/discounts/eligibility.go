package discounts

// Matches reports whether an item is selected by the targeting. Item and category criteria are
// alternatives: satisfying either one is enough.
func (t Targeting) Matches(itemID, categoryID string) bool {
	if t.AllItems {
		return true
	}
	if itemID != "" && containsString(t.Items, itemID) {
		return true
	}
	return categoryID != "" && containsString(t.Categories, categoryID)
}

// EligibleLines returns the lines selected by the targeting, in cart order.
func EligibleLines(t Targeting, lines []CartLine) []CartLine {
	eligible := make([]CartLine, 0, len(lines))
	for _, line := range lines {
		if t.Matches(line.ItemID, line.CategoryID) {
			eligible = append(eligible, line)
		}
	}
	return eligible
}

// DiscountTargets narrows the eligible lines of a quantity rule down to those that receive the
// discount.
func DiscountTargets(terms QuantityTerms, eligible []CartLine) []CartLine {
	target := terms.Target
	if target.CopyEligible || (len(target.Items) == 0 && len(target.Categories) == 0) {
		out := make([]CartLine, len(eligible))
		copy(out, eligible)
		return out
	}
	return EligibleLines(Targeting{Items: target.Items, Categories: target.Categories}, eligible)
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
