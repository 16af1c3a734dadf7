package domain

import "time"

// Discount rule applyTo values as written by the merchant rule editor.
const (
	DiscountApplyToItemCategory = "item_category"
	DiscountApplyToQuantity     = "quantity"
)

// Quantity rule sub-modes.
const (
	QuantityRuleExact   = "exact"
	QuantityRuleMinimum = "minimum"
	QuantityRuleBogo    = "bogo"
)

// Amount types.
const (
	DiscountAmountPercentage = "percentage"
	DiscountAmountFixed      = "fixed"
)

// DiscountRule mirrors the stored promotion document. Most fields are optional and gated by the
// accompanying boolean flags; discounts.ParseRule turns it into a typed rule.
type DiscountRule struct {
	ID                string `firestore:"-" json:"id" yaml:"id"`
	Name              string `firestore:"name" json:"name" yaml:"name"`
	AutomaticDiscount bool   `firestore:"automaticDiscount" json:"automaticDiscount" yaml:"automaticDiscount"`
	ApplyTo           string `firestore:"applyTo" json:"applyTo" yaml:"applyTo"`

	AddAllItemsToPurchase bool     `firestore:"addAllItemsToPurchase" json:"addAllItemsToPurchase" yaml:"addAllItemsToPurchase"`
	PurchaseItems         []string `firestore:"purchaseItems" json:"purchaseItems" yaml:"purchaseItems"`
	PurchaseCategories    []string `firestore:"purchaseCategories" json:"purchaseCategories" yaml:"purchaseCategories"`

	QuantityRuleType string `firestore:"quantityRuleType" json:"quantityRuleType,omitempty" yaml:"quantityRuleType"`
	PurchaseQuantity *int   `firestore:"purchaseQuantity" json:"purchaseQuantity,omitempty" yaml:"purchaseQuantity"`
	DiscountQuantity *int   `firestore:"discountQuantity" json:"discountQuantity,omitempty" yaml:"discountQuantity"`

	CopyEligibleItems        bool     `firestore:"copyEligibleItems" json:"copyEligibleItems" yaml:"copyEligibleItems"`
	AddAllItemsToDiscount    bool     `firestore:"addAllItemsToDiscount" json:"addAllItemsToDiscount" yaml:"addAllItemsToDiscount"`
	DiscountTargetItems      []string `firestore:"discountTargetItems" json:"discountTargetItems" yaml:"discountTargetItems"`
	DiscountTargetCategories []string `firestore:"discountTargetCategories" json:"discountTargetCategories" yaml:"discountTargetCategories"`

	AmountType string  `firestore:"amountType" json:"amountType" yaml:"amountType"`
	Amount     float64 `firestore:"amount" json:"amount" yaml:"amount"`

	SetMinimumSpend bool    `firestore:"setMinimumSpend" json:"setMinimumSpend" yaml:"setMinimumSpend"`
	MinimumSubtotal float64 `firestore:"minimumSubtotal" json:"minimumSubtotal" yaml:"minimumSubtotal"`
	SetMaximumValue bool    `firestore:"setMaximumValue" json:"setMaximumValue" yaml:"setMaximumValue"`
	MaximumValue    float64 `firestore:"maximumValue" json:"maximumValue" yaml:"maximumValue"`

	SetDateRange   bool   `firestore:"setDateRange" json:"setDateRange" yaml:"setDateRange"`
	DateRangeStart string `firestore:"dateRangeStart" json:"dateRangeStart,omitempty" yaml:"dateRangeStart"`
	DateRangeEnd   string `firestore:"dateRangeEnd" json:"dateRangeEnd,omitempty" yaml:"dateRangeEnd"`

	SetSchedule       bool            `firestore:"setSchedule" json:"setSchedule" yaml:"setSchedule"`
	ScheduleDays      map[string]bool `firestore:"scheduleDays" json:"scheduleDays,omitempty" yaml:"scheduleDays"`
	ScheduleTimeStart string          `firestore:"scheduleTimeStart" json:"scheduleTimeStart,omitempty" yaml:"scheduleTimeStart"`
	ScheduleTimeEnd   string          `firestore:"scheduleTimeEnd" json:"scheduleTimeEnd,omitempty" yaml:"scheduleTimeEnd"`

	UpdatedAt time.Time `firestore:"updatedAt,omitempty" json:"updatedAt,omitempty" yaml:"-"`
}

// MenuItem is a catalog entry as maintained by the menu editor.
type MenuItem struct {
	ID         string    `firestore:"-" json:"id" yaml:"id"`
	Name       string    `firestore:"name" json:"name" yaml:"name"`
	CategoryID string    `firestore:"categoryId" json:"categoryId" yaml:"categoryId"`
	Price      float64   `firestore:"price" json:"price" yaml:"price"`
	Available  bool      `firestore:"available" json:"available" yaml:"available"`
	SortOrder  int       `firestore:"sortOrder" json:"sortOrder,omitempty" yaml:"sortOrder"`
	UpdatedAt  time.Time `firestore:"updatedAt,omitempty" json:"updatedAt,omitempty" yaml:"-"`
}
