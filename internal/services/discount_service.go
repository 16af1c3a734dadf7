package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/CaoNhatLinh/squareup-sub002/internal/discounts"
	"github.com/CaoNhatLinh/squareup-sub002/internal/platform/observability"
	"github.com/CaoNhatLinh/squareup-sub002/internal/repositories"
)

const (
	maxCartLines    = 200
	maxLineQuantity = 10000

	sitePreview    = "preview"
	siteSettlement = "settlement"
	siteMenu       = "menu"

	kindFlat            = "flat"
	kindExactQuantity   = "exact_quantity"
	kindMinimumQuantity = "minimum_quantity"
	kindBogo            = "bogo"
)

var (
	// ErrDiscountRuleRepositoryMissing indicates the rule source was not wired.
	ErrDiscountRuleRepositoryMissing = errors.New("discount service: rule repository is not configured")
	// ErrDiscountInvalidInput marks cart payloads that cannot be priced.
	ErrDiscountInvalidInput = errors.New("discount service: invalid cart")
)

// maxLineTotal bounds unit price plus surcharge times quantity for a single line.
var maxLineTotal = decimal.NewFromInt(1_000_000)

var discountTracer = otel.Tracer("github.com/CaoNhatLinh/squareup-sub002/internal/services")

// DiscountServiceDeps bundles dependencies required to construct a DiscountService.
type DiscountServiceDeps struct {
	Rules     repositories.DiscountRuleRepository
	Publisher SettlementPublisher
	Metrics   *observability.DiscountMetrics
	Clock     func() time.Time
	// Location is the merchant's local zone; rule dates and schedules are read on its clock.
	Location     *time.Location
	RuleCacheTTL time.Duration
	// Disabled turns every computation into a full-price summary.
	Disabled    bool
	IDGenerator func() string
}

type discountService struct {
	rules     *ruleLoader
	publisher SettlementPublisher
	metrics   *observability.DiscountMetrics
	clock     func() time.Time
	location  *time.Location
	disabled  bool
	newID     func() string
}

var _ DiscountService = (*discountService)(nil)

// NewDiscountService wires the cart discount service. Publisher may be nil when settlement events
// are switched off.
func NewDiscountService(deps DiscountServiceDeps) (DiscountService, error) {
	if deps.Rules == nil {
		return nil, ErrDiscountRuleRepositoryMissing
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	location := deps.Location
	if location == nil {
		location = time.UTC
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	return &discountService{
		rules:     newRuleLoader(deps.Rules, deps.RuleCacheTTL, clock, deps.Metrics),
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		clock:     clock,
		location:  location,
		disabled:  deps.Disabled,
		newID:     idGen,
	}, nil
}

// PreviewCart prices the cart against the cached rule snapshot.
func (s *discountService) PreviewCart(ctx context.Context, cmd PreviewCartCommand) (CartDiscountResult, error) {
	result, _, err := s.compute(ctx, sitePreview, cmd.Lines)
	return result, err
}

// SettleCart prices the cart against freshly loaded rules, assigns a settlement id and emits the
// settlement event. A failed publish is reported through Published and never fails the sale.
func (s *discountService) SettleCart(ctx context.Context, cmd SettleCartCommand) (CartDiscountResult, error) {
	result, lines, err := s.compute(ctx, siteSettlement, cmd.Lines)
	if err != nil {
		return CartDiscountResult{}, err
	}

	settledAt := result.EvaluatedAt
	result.SettlementID = s.newID()
	result.SettledAt = &settledAt

	if s.publisher == nil {
		return result, nil
	}
	event := SettlementEvent{
		SettlementID:   result.SettlementID,
		OrderReference: strings.TrimSpace(cmd.OrderReference),
		SettledAt:      settledAt,
		Lines:          lines,
		Result:         result,
	}
	published := true
	messageID, pubErr := s.publisher.PublishSettlement(ctx, event)
	logger := observability.FromContext(ctx)
	if pubErr != nil {
		published = false
		s.metrics.RecordPublishFailure(ctx)
		logger.Error("settlement event publish failed",
			zap.String("settlementId", result.SettlementID),
			zap.Error(pubErr),
		)
	} else {
		logger.Info("settlement event published",
			zap.String("settlementId", result.SettlementID),
			zap.String("messageId", messageID),
		)
	}
	result.Published = &published
	return result, nil
}

// compute is shared by preview and settlement so both call sites see the same numbers.
func (s *discountService) compute(ctx context.Context, site string, input []CartLineInput) (CartDiscountResult, []CartLineInput, error) {
	ctx, span := discountTracer.Start(ctx, "discounts.compute", trace.WithAttributes(
		attribute.String("discounts.site", site),
		attribute.Int("cart.lines", len(input)),
	))
	defer span.End()

	normalized, lines, err := normalizeCartLines(input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid cart")
		return CartDiscountResult{}, nil, err
	}

	now := s.clock().In(s.location)
	var summary discounts.CartDiscountSummary
	if s.disabled {
		summary = discounts.Resolve(nil, discounts.Subtotal(lines))
	} else {
		var rules []discounts.Rule
		if site == siteSettlement {
			rules = s.rules.Fresh(ctx, site)
		} else {
			rules = s.rules.Cached(ctx, site)
		}
		summary = discounts.ComputeCartDiscounts(lines, rules, now)
	}

	result := toCartDiscountResult(summary, now)
	total, _ := result.TotalDiscount.Float64()
	s.metrics.RecordEvaluation(ctx, site, len(result.AppliedRules), total)
	span.SetAttributes(
		attribute.Int("discounts.applied_rules", len(result.AppliedRules)),
		attribute.String("discounts.total_discount", result.TotalDiscount.StringFixed(discounts.MoneyScale)),
	)
	return result, normalized, nil
}

func normalizeCartLines(input []CartLineInput) ([]CartLineInput, []discounts.CartLine, error) {
	if len(input) > maxCartLines {
		return nil, nil, fmt.Errorf("%w: at most %d lines are allowed", ErrDiscountInvalidInput, maxCartLines)
	}
	normalized := make([]CartLineInput, 0, len(input))
	lines := make([]discounts.CartLine, 0, len(input))
	seen := make(map[string]struct{}, len(input))
	for i, line := range input {
		line.LineKey = strings.TrimSpace(line.LineKey)
		line.ItemID = strings.TrimSpace(line.ItemID)
		line.CategoryID = strings.TrimSpace(line.CategoryID)
		switch {
		case line.LineKey == "":
			return nil, nil, fmt.Errorf("%w: lines[%d].lineKey is required", ErrDiscountInvalidInput, i)
		case line.ItemID == "":
			return nil, nil, fmt.Errorf("%w: lines[%d].itemId is required", ErrDiscountInvalidInput, i)
		case line.Quantity < 1:
			return nil, nil, fmt.Errorf("%w: lines[%d].quantity must be at least 1", ErrDiscountInvalidInput, i)
		case line.Quantity > maxLineQuantity:
			return nil, nil, fmt.Errorf("%w: lines[%d].quantity must be at most %d", ErrDiscountInvalidInput, i, maxLineQuantity)
		case line.UnitPrice.IsNegative():
			return nil, nil, fmt.Errorf("%w: lines[%d].unitPrice must not be negative", ErrDiscountInvalidInput, i)
		case line.ModifierSurcharge.IsNegative():
			return nil, nil, fmt.Errorf("%w: lines[%d].modifierSurcharge must not be negative", ErrDiscountInvalidInput, i)
		}
		lineTotal := line.UnitPrice.Add(line.ModifierSurcharge).Mul(decimal.NewFromInt(int64(line.Quantity)))
		if lineTotal.GreaterThan(maxLineTotal) {
			return nil, nil, fmt.Errorf("%w: lines[%d] total must be at most %s", ErrDiscountInvalidInput, i, maxLineTotal.String())
		}
		if _, dup := seen[line.LineKey]; dup {
			return nil, nil, fmt.Errorf("%w: duplicate lineKey %q", ErrDiscountInvalidInput, line.LineKey)
		}
		seen[line.LineKey] = struct{}{}

		normalized = append(normalized, line)
		lines = append(lines, discounts.CartLine{
			LineKey:           line.LineKey,
			ItemID:            line.ItemID,
			CategoryID:        line.CategoryID,
			UnitPrice:         line.UnitPrice,
			ModifierSurcharge: line.ModifierSurcharge,
			Quantity:          line.Quantity,
		})
	}
	return normalized, lines, nil
}

func toCartDiscountResult(summary discounts.CartDiscountSummary, evaluatedAt time.Time) CartDiscountResult {
	result := CartDiscountResult{
		Subtotal:        summary.Subtotal,
		TotalDiscount:   summary.TotalDiscount,
		Total:           summary.Total,
		AppliedRules:    make([]AppliedDiscount, 0, len(summary.AppliedRules)),
		PerLineDiscount: make(map[string]LineDiscountView, len(summary.PerLineDiscount)),
		EvaluatedAt:     evaluatedAt,
	}
	for _, applied := range summary.AppliedRules {
		base := applied.Rule.Base()
		result.AppliedRules = append(result.AppliedRules, AppliedDiscount{
			RuleID:         base.ID,
			Name:           base.Name,
			Kind:           ruleKind(applied.Rule),
			DiscountAmount: applied.DiscountAmount,
			LineKeys:       append([]string(nil), applied.LineKeys...),
		})
	}
	for key, line := range summary.PerLineDiscount {
		result.PerLineDiscount[key] = LineDiscountView{
			RuleID:                    line.RuleID,
			OriginalUnitPrice:         line.OriginalUnitPrice,
			DiscountPerUnit:           line.DiscountPerUnit,
			FinalUnitPrice:            line.FinalUnitPrice,
			QuantityDiscounted:        line.QuantityDiscounted,
			DiscountAmount:            line.DiscountAmount,
			DiscountPercentEquivalent: line.DiscountPercentEquivalent,
		}
	}
	return result
}

func ruleKind(rule discounts.Rule) string {
	switch rule.(type) {
	case discounts.ExactQuantityRule:
		return kindExactQuantity
	case discounts.MinimumQuantityRule:
		return kindMinimumQuantity
	case discounts.BogoRule:
		return kindBogo
	default:
		return kindFlat
	}
}
