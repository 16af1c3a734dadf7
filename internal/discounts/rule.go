// Package discounts evaluates automatic promotional discounts against carts and menu catalogs.
//
// Every function in this package is pure: rules, lines and the evaluation instant are passed in
// and nothing is retained between calls, so the same package serves both the instant cart preview
// and the server-trusted settlement.
package discounts

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places discount amounts are rounded to.
const MoneyScale int32 = 2

var hundred = decimal.NewFromInt(100)

// AmountType selects how a rule's amount is applied to a price.
type AmountType string

const (
	AmountPercentage AmountType = "percentage"
	AmountFixed      AmountType = "fixed"
)

// Amount is the discount a rule grants: a percentage of the price or a fixed amount per unit.
type Amount struct {
	Type  AmountType
	Value decimal.Decimal
}

// Targeting selects the lines or items a rule may touch. A line matches when its item id or its
// category id is listed; AllItems matches everything.
type Targeting struct {
	AllItems   bool
	Items      []string
	Categories []string
}

// Guards are optional per-rule limits applied after the discount is computed.
type Guards struct {
	MinimumSubtotal *decimal.Decimal
	MaximumValue    *decimal.Decimal
}

// Date is a calendar date without a location. It is placed on the clock of the evaluation instant.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateRange bounds activation by calendar dates, both inclusive. A nil bound is open.
type DateRange struct {
	Start *Date
	End   *Date
}

// Schedule restricts activation to certain weekdays between two zero-padded HH:MM times.
type Schedule struct {
	Days  map[time.Weekday]bool
	Start string
	End   string
}

// Window is the activation window of a rule. Nil parts do not restrict activation.
type Window struct {
	DateRange *DateRange
	Schedule  *Schedule
}

// RuleBase holds the fields shared by every rule shape.
type RuleBase struct {
	ID        string
	Name      string
	Automatic bool
	Targeting Targeting
	Amount    Amount
	Guards    Guards
	Window    Window
}

// Base returns the shared rule fields.
func (b RuleBase) Base() RuleBase { return b }

// Rule is one of FlatRule, ExactQuantityRule, MinimumQuantityRule or BogoRule.
type Rule interface {
	Base() RuleBase
	isRule()
}

// FlatRule discounts every eligible line.
type FlatRule struct {
	RuleBase
}

func (FlatRule) isRule() {}

// DiscountTarget picks which eligible lines of a quantity rule receive the discount. When
// CopyEligible is set or both lists are empty, every eligible line is a target.
type DiscountTarget struct {
	CopyEligible bool
	Items        []string
	Categories   []string
}

// QuantityTerms are the tier parameters shared by the quantity rule shapes.
type QuantityTerms struct {
	PurchaseQuantity int
	// DiscountQuantity is nil when the merchant left it blank.
	DiscountQuantity *int
	Target           DiscountTarget
}

// Terms returns the quantity tier parameters.
func (t QuantityTerms) Terms() QuantityTerms { return t }

// QuantityRule is implemented by the quantity-tier rule shapes.
type QuantityRule interface {
	Rule
	Terms() QuantityTerms
	// unitsToDiscount reports how many units qualify for the discount given the total
	// eligible quantity, or false when the tier is not met.
	unitsToDiscount(totalEligible int) (int, bool)
}

// ExactQuantityRule fires only when the eligible quantity equals PurchaseQuantity.
type ExactQuantityRule struct {
	RuleBase
	QuantityTerms
}

func (ExactQuantityRule) isRule() {}

func (r ExactQuantityRule) unitsToDiscount(total int) (int, bool) {
	if total != r.PurchaseQuantity {
		return 0, false
	}
	if r.DiscountQuantity != nil {
		return *r.DiscountQuantity, true
	}
	return r.PurchaseQuantity, true
}

// MinimumQuantityRule fires once the eligible quantity reaches PurchaseQuantity.
type MinimumQuantityRule struct {
	RuleBase
	QuantityTerms
}

func (MinimumQuantityRule) isRule() {}

func (r MinimumQuantityRule) unitsToDiscount(total int) (int, bool) {
	if total < r.PurchaseQuantity {
		return 0, false
	}
	if r.DiscountQuantity != nil {
		return *r.DiscountQuantity, true
	}
	return total, true
}

// BogoRule discounts DiscountQuantity units for every complete set of
// PurchaseQuantity+DiscountQuantity eligible units.
type BogoRule struct {
	RuleBase
	QuantityTerms
}

func (BogoRule) isRule() {}

func (r BogoRule) unitsToDiscount(total int) (int, bool) {
	free := 0
	if r.DiscountQuantity != nil {
		free = *r.DiscountQuantity
	}
	set := r.PurchaseQuantity + free
	if free <= 0 || set <= 0 || total < set {
		return 0, false
	}
	return (total / set) * free, true
}

// CartLine is a priced, quantity-bearing cart entry. LineKey is unique within a cart.
type CartLine struct {
	LineKey    string
	ItemID     string
	CategoryID string
	UnitPrice  decimal.Decimal
	// ModifierSurcharge is the per-unit price of the selected modifiers.
	ModifierSurcharge decimal.Decimal
	Quantity          int
}

// EffectiveUnitPrice is the unit price including modifier surcharges.
func (l CartLine) EffectiveUnitPrice() decimal.Decimal {
	return l.UnitPrice.Add(l.ModifierSurcharge)
}

// LineTotal is the effective unit price times quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.EffectiveUnitPrice().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineDiscount records how one line was discounted by one rule.
type LineDiscount struct {
	RuleID                    string
	OriginalUnitPrice         decimal.Decimal
	DiscountPerUnit           decimal.Decimal
	FinalUnitPrice            decimal.Decimal
	QuantityDiscounted        int
	DiscountAmount            decimal.Decimal
	DiscountPercentEquivalent decimal.Decimal
}

// PerRuleResult is the outcome of evaluating one rule against a cart.
type PerRuleResult struct {
	Rule            Rule
	DiscountAmount  decimal.Decimal
	PerLineDiscount map[string]LineDiscount
}

// LineKeys returns the touched line keys in sorted order.
func (r PerRuleResult) LineKeys() []string {
	return sortedKeys(r.PerLineDiscount)
}

// AppliedRule is a rule accepted by the stack resolver together with what it contributed.
type AppliedRule struct {
	Rule           Rule
	DiscountAmount decimal.Decimal
	LineKeys       []string
}

// CartDiscountSummary is the authoritative discount outcome for a cart.
type CartDiscountSummary struct {
	Subtotal        decimal.Decimal
	AppliedRules    []AppliedRule
	TotalDiscount   decimal.Decimal
	PerLineDiscount map[string]LineDiscount
	Total           decimal.Decimal
}
