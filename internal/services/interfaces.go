package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/CaoNhatLinh/squareup-sub002/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	SystemHealthReport = domain.SystemHealthReport
	SystemHealthCheck  = domain.SystemHealthCheck
)

// SettlementEventType tags settlement messages for subscribers.
const SettlementEventType = "discounts.cart.settled"

// DiscountService computes automatic discounts for carts. Preview and settlement share one
// computation so the customer sees exactly what is charged.
type DiscountService interface {
	PreviewCart(ctx context.Context, cmd PreviewCartCommand) (CartDiscountResult, error)
	SettleCart(ctx context.Context, cmd SettleCartCommand) (CartDiscountResult, error)
}

// MenuService serves the storefront catalog with discount badges.
type MenuService interface {
	AnnotatedMenu(ctx context.Context, filter MenuFilter) ([]AnnotatedMenuItem, error)
}

// SystemService exposes health information.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}

// SettlementPublisher delivers settled discounts to downstream consumers.
type SettlementPublisher interface {
	PublishSettlement(ctx context.Context, event SettlementEvent) (string, error)
}

// CartLineInput is one cart line as sent by the storefront or the checkout.
type CartLineInput struct {
	LineKey           string          `json:"lineKey"`
	ItemID            string          `json:"itemId"`
	CategoryID        string          `json:"categoryId"`
	UnitPrice         decimal.Decimal `json:"unitPrice"`
	ModifierSurcharge decimal.Decimal `json:"modifierSurcharge"`
	Quantity          int             `json:"quantity"`
}

// PreviewCartCommand asks for the discounts a cart would receive right now.
type PreviewCartCommand struct {
	Lines []CartLineInput
}

// SettleCartCommand fixes the discounts of a cart at checkout.
type SettleCartCommand struct {
	Lines          []CartLineInput
	OrderReference string
}

// CartDiscountResult is the wire shape shared by preview, settlement and settlement events.
type CartDiscountResult struct {
	Subtotal        decimal.Decimal             `json:"subtotal"`
	TotalDiscount   decimal.Decimal             `json:"totalDiscount"`
	Total           decimal.Decimal             `json:"total"`
	AppliedRules    []AppliedDiscount           `json:"appliedRules"`
	PerLineDiscount map[string]LineDiscountView `json:"perLineDiscount"`
	EvaluatedAt     time.Time                   `json:"evaluatedAt"`
	SettlementID    string                      `json:"settlementId,omitempty"`
	SettledAt       *time.Time                  `json:"settledAt,omitempty"`
	Published       *bool                       `json:"published,omitempty"`
}

// AppliedDiscount describes a rule that made it through conflict resolution.
type AppliedDiscount struct {
	RuleID         string          `json:"ruleId"`
	Name           string          `json:"name"`
	Kind           string          `json:"kind"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	LineKeys       []string        `json:"lineKeys"`
}

// LineDiscountView is the discount granted to one cart line.
type LineDiscountView struct {
	RuleID                    string          `json:"ruleId"`
	OriginalUnitPrice         decimal.Decimal `json:"originalUnitPrice"`
	DiscountPerUnit           decimal.Decimal `json:"discountPerUnit"`
	FinalUnitPrice            decimal.Decimal `json:"finalUnitPrice"`
	QuantityDiscounted        int             `json:"quantityDiscounted"`
	DiscountAmount            decimal.Decimal `json:"discountAmount"`
	DiscountPercentEquivalent decimal.Decimal `json:"discountPercentEquivalent"`
}

// SettlementEvent is published once per settled cart.
type SettlementEvent struct {
	SettlementID   string             `json:"settlementId"`
	OrderReference string             `json:"orderReference,omitempty"`
	SettledAt      time.Time          `json:"settledAt"`
	Lines          []CartLineInput    `json:"lines"`
	Result         CartDiscountResult `json:"result"`
}

// MenuFilter narrows the annotated menu.
type MenuFilter struct {
	CategoryID    string
	OnlyAvailable bool
}

// AnnotatedMenuItem is a catalog entry with its best standing discount, if any.
type AnnotatedMenuItem struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	CategoryID string          `json:"categoryId"`
	Price      decimal.Decimal `json:"price"`
	Available  bool            `json:"available"`
	Discount   *MenuDiscount   `json:"discount,omitempty"`
}

// MenuDiscount is the badge shown next to a menu item.
type MenuDiscount struct {
	HasDiscount     bool            `json:"hasDiscount"`
	RuleID          string          `json:"ruleId"`
	RuleName        string          `json:"ruleName"`
	DiscountPercent int64           `json:"discountPercent"`
	DiscountAmount  decimal.Decimal `json:"discountAmount"`
	OriginalPrice   decimal.Decimal `json:"originalPrice"`
	DiscountedPrice decimal.Decimal `json:"discountedPrice"`
}
