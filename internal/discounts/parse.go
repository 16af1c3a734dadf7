package discounts

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/CaoNhatLinh/squareup-sub002/internal/domain"
)

const (
	dateLayout           = "2006-01-02"
	maxRuleNameLength    = 120
)

// ErrInvalidRule is matched by every RuleError.
var ErrInvalidRule = errors.New("discounts: invalid rule")

// RuleError reports why a stored rule document could not be turned into a Rule.
type RuleError struct {
	RuleID string
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *RuleError) Error() string {
	id := e.RuleID
	if id == "" {
		id = "<missing id>"
	}
	return fmt.Sprintf("discount rule %s: %s %s", id, e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidRule) hold.
func (e *RuleError) Is(target error) bool { return target == ErrInvalidRule }

var (
	scheduleTimePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
	ruleNamePolicy      = bluemonday.StrictPolicy()

	weekdayNames = map[string]time.Weekday{
		"sunday": time.Sunday, "sun": time.Sunday,
		"monday": time.Monday, "mon": time.Monday,
		"tuesday": time.Tuesday, "tue": time.Tuesday,
		"wednesday": time.Wednesday, "wed": time.Wednesday,
		"thursday": time.Thursday, "thu": time.Thursday,
		"friday": time.Friday, "fri": time.Friday,
		"saturday": time.Saturday, "sat": time.Saturday,
	}
)

// ParseRules converts stored documents into rules. Malformed documents are left out and their
// errors returned alongside, so one bad rule never hides the others.
func ParseRules(docs []domain.DiscountRule) ([]Rule, []error) {
	rules := make([]Rule, 0, len(docs))
	var errs []error
	for _, doc := range docs {
		rule, err := ParseRule(doc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rules = append(rules, rule)
	}
	return rules, errs
}

// ParseRule validates a stored rule document and returns the matching rule shape.
func ParseRule(doc domain.DiscountRule) (Rule, error) {
	id := strings.TrimSpace(doc.ID)
	fail := func(field, reason string) (Rule, error) {
		return nil, &RuleError{RuleID: id, Field: field, Reason: reason}
	}
	if id == "" {
		return fail("id", "is required")
	}

	base := RuleBase{
		ID:        id,
		Name:      sanitizeRuleName(doc.Name),
		Automatic: doc.AutomaticDiscount,
		Targeting: Targeting{
			AllItems:   doc.AddAllItemsToPurchase,
			Items:      cleanIDs(doc.PurchaseItems),
			Categories: cleanIDs(doc.PurchaseCategories),
		},
	}

	amount, err := parseAmount(doc.AmountType, doc.Amount)
	if err != nil {
		return fail("amount", err.Error())
	}
	base.Amount = amount

	if doc.SetMinimumSpend {
		if doc.MinimumSubtotal < 0 {
			return fail("minimumSubtotal", "must not be negative")
		}
		limit := decimal.NewFromFloat(doc.MinimumSubtotal)
		base.Guards.MinimumSubtotal = &limit
	}
	if doc.SetMaximumValue {
		if doc.MaximumValue < 0 {
			return fail("maximumValue", "must not be negative")
		}
		limit := decimal.NewFromFloat(doc.MaximumValue)
		base.Guards.MaximumValue = &limit
	}

	if doc.SetDateRange {
		dateRange, field, err := parseDateRange(doc.DateRangeStart, doc.DateRangeEnd)
		if err != nil {
			return fail(field, err.Error())
		}
		base.Window.DateRange = dateRange
	}
	if doc.SetSchedule {
		schedule, field, err := parseSchedule(doc.ScheduleDays, doc.ScheduleTimeStart, doc.ScheduleTimeEnd)
		if err != nil {
			return fail(field, err.Error())
		}
		base.Window.Schedule = schedule
	}

	switch strings.ToLower(strings.TrimSpace(doc.ApplyTo)) {
	case domain.DiscountApplyToItemCategory:
		return FlatRule{RuleBase: base}, nil
	case domain.DiscountApplyToQuantity:
	default:
		return fail("applyTo", fmt.Sprintf("has unknown value %q", doc.ApplyTo))
	}

	if doc.PurchaseQuantity == nil || *doc.PurchaseQuantity < 1 {
		return fail("purchaseQuantity", "must be at least 1")
	}
	terms := QuantityTerms{
		PurchaseQuantity: *doc.PurchaseQuantity,
		Target: DiscountTarget{
			CopyEligible: doc.CopyEligibleItems || doc.AddAllItemsToDiscount,
			Items:        cleanIDs(doc.DiscountTargetItems),
			Categories:   cleanIDs(doc.DiscountTargetCategories),
		},
	}
	if doc.DiscountQuantity != nil {
		if *doc.DiscountQuantity < 0 {
			return fail("discountQuantity", "must not be negative")
		}
		quantity := *doc.DiscountQuantity
		terms.DiscountQuantity = &quantity
	}

	switch strings.ToLower(strings.TrimSpace(doc.QuantityRuleType)) {
	case domain.QuantityRuleExact:
		return ExactQuantityRule{RuleBase: base, QuantityTerms: terms}, nil
	case domain.QuantityRuleMinimum:
		return MinimumQuantityRule{RuleBase: base, QuantityTerms: terms}, nil
	case domain.QuantityRuleBogo:
		if terms.DiscountQuantity == nil || *terms.DiscountQuantity < 1 {
			return fail("discountQuantity", "must be at least 1 for buy-x-get-y rules")
		}
		return BogoRule{RuleBase: base, QuantityTerms: terms}, nil
	default:
		return fail("quantityRuleType", fmt.Sprintf("has unknown value %q", doc.QuantityRuleType))
	}
}

func parseAmount(kind string, value float64) (Amount, error) {
	if value < 0 {
		return Amount{}, errors.New("must not be negative")
	}
	amount := Amount{Value: decimal.NewFromFloat(value)}
	switch AmountType(strings.ToLower(strings.TrimSpace(kind))) {
	case AmountPercentage:
		if amount.Value.GreaterThan(hundred) {
			return Amount{}, errors.New("percentage must not exceed 100")
		}
		amount.Type = AmountPercentage
	case AmountFixed:
		amount.Type = AmountFixed
	default:
		return Amount{}, fmt.Errorf("has unknown type %q", kind)
	}
	return amount, nil
}

func parseDateRange(start, end string) (*DateRange, string, error) {
	var out DateRange
	if trimmed := strings.TrimSpace(start); trimmed != "" {
		date, err := parseDate(trimmed)
		if err != nil {
			return nil, "dateRangeStart", err
		}
		out.Start = &date
	}
	if trimmed := strings.TrimSpace(end); trimmed != "" {
		date, err := parseDate(trimmed)
		if err != nil {
			return nil, "dateRangeEnd", err
		}
		out.End = &date
	}
	if out.Start != nil && out.End != nil {
		s := time.Date(out.Start.Year, out.Start.Month, out.Start.Day, 0, 0, 0, 0, time.UTC)
		e := time.Date(out.End.Year, out.End.Month, out.End.Day, 0, 0, 0, 0, time.UTC)
		if e.Before(s) {
			return nil, "dateRangeEnd", errors.New("is before dateRangeStart")
		}
	}
	return &out, "", nil
}

func parseDate(value string) (Date, error) {
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return Date{}, fmt.Errorf("must be a YYYY-MM-DD date, got %q", value)
	}
	return Date{Year: parsed.Year(), Month: parsed.Month(), Day: parsed.Day()}, nil
}

func parseSchedule(days map[string]bool, start, end string) (*Schedule, string, error) {
	schedule := Schedule{
		Days:  make(map[time.Weekday]bool, len(days)),
		Start: strings.TrimSpace(start),
		End:   strings.TrimSpace(end),
	}
	fold := cases.Lower(language.Und)
	for name, enabled := range days {
		day, ok := weekdayNames[fold.String(strings.TrimSpace(name))]
		if !ok {
			return nil, "scheduleDays", fmt.Errorf("has unknown weekday %q", name)
		}
		if enabled {
			schedule.Days[day] = true
		}
	}
	if schedule.Start == "" {
		return nil, "scheduleTimeStart", errors.New("is required when setSchedule is on")
	}
	if schedule.End == "" {
		return nil, "scheduleTimeEnd", errors.New("is required when setSchedule is on")
	}
	if !scheduleTimePattern.MatchString(schedule.Start) {
		return nil, "scheduleTimeStart", fmt.Errorf("must be a zero-padded HH:MM time, got %q", schedule.Start)
	}
	if !scheduleTimePattern.MatchString(schedule.End) {
		return nil, "scheduleTimeEnd", fmt.Errorf("must be a zero-padded HH:MM time, got %q", schedule.End)
	}
	return &schedule, "", nil
}

func sanitizeRuleName(name string) string {
	cleaned := strings.TrimSpace(ruleNamePolicy.Sanitize(name))
	if runes := []rune(cleaned); len(runes) > maxRuleNameLength {
		cleaned = string(runes[:maxRuleNameLength])
	}
	return cleaned
}

func cleanIDs(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
