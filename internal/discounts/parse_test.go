package discounts

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CaoNhatLinh/squareup-sub002/internal/domain"
)

func quantityDoc(kind string, purchase, discount *int) domain.DiscountRule {
	return domain.DiscountRule{
		ID:                "q1",
		Name:              "Bundle",
		AutomaticDiscount: true,
		ApplyTo:           domain.DiscountApplyToQuantity,
		PurchaseCategories: []string{
			"drinks",
		},
		QuantityRuleType: kind,
		PurchaseQuantity: purchase,
		DiscountQuantity: discount,
		AmountType:       domain.DiscountAmountPercentage,
		Amount:           100,
	}
}

func TestParseRule_Flat(t *testing.T) {
	doc := domain.DiscountRule{
		ID:                 " happy-hour ",
		Name:               "<b>Happy</b> hour",
		AutomaticDiscount:  true,
		ApplyTo:            "Item_Category",
		PurchaseItems:      []string{"beer", " ", "wine"},
		PurchaseCategories: []string{"cocktails"},
		AmountType:         "PERCENTAGE",
		Amount:             15,
		SetMaximumValue:    true,
		MaximumValue:       8,
		SetDateRange:       true,
		DateRangeStart:     "2024-06-01",
		SetSchedule:        true,
		ScheduleDays:       map[string]bool{"Friday": true, "sat": true, "sunday": false},
		ScheduleTimeStart:  "17:00",
		ScheduleTimeEnd:    "22:00",
	}

	rule, err := ParseRule(doc)

	require.NoError(t, err)
	flat, ok := rule.(FlatRule)
	require.True(t, ok)
	assert.Equal(t, "happy-hour", flat.ID)
	assert.Equal(t, "Happy hour", flat.Name)
	assert.Equal(t, []string{"beer", "wine"}, flat.Targeting.Items)
	assert.Equal(t, AmountPercentage, flat.Amount.Type)
	assertMoney(t, "15", flat.Amount.Value)
	require.NotNil(t, flat.Guards.MaximumValue)
	assertMoney(t, "8", *flat.Guards.MaximumValue)
	assert.Nil(t, flat.Guards.MinimumSubtotal)
	require.NotNil(t, flat.Window.DateRange)
	assert.Equal(t, &Date{Year: 2024, Month: time.June, Day: 1}, flat.Window.DateRange.Start)
	assert.Nil(t, flat.Window.DateRange.End)
	require.NotNil(t, flat.Window.Schedule)
	assert.Equal(t, map[time.Weekday]bool{time.Friday: true, time.Saturday: true}, flat.Window.Schedule.Days)
	assert.Equal(t, "17:00", flat.Window.Schedule.Start)
	assert.Equal(t, "23:59", flat.Window.Schedule.End)
}

func TestParseRule_QuantityKinds(t *testing.T) {
	two, one := 2, 1

	exact, err := ParseRule(quantityDoc("exact", &two, nil))
	require.NoError(t, err)
	assert.IsType(t, ExactQuantityRule{}, exact)

	minimum, err := ParseRule(quantityDoc("minimum", &two, &one))
	require.NoError(t, err)
	require.IsType(t, MinimumQuantityRule{}, minimum)
	assert.Equal(t, 1, *minimum.(MinimumQuantityRule).DiscountQuantity)

	bogoDoc := quantityDoc("bogo", &one, &one)
	bogoDoc.CopyEligibleItems = true
	bogo, err := ParseRule(bogoDoc)
	require.NoError(t, err)
	require.IsType(t, BogoRule{}, bogo)
	assert.True(t, bogo.(BogoRule).Target.CopyEligible)
}

func TestParseRule_Rejects(t *testing.T) {
	zero, one := 0, 1
	tests := []struct {
		name  string
		doc   func() domain.DiscountRule
		field string
	}{
		{name: "missing id", field: "id", doc: func() domain.DiscountRule {
			d := quantityDoc("exact", &one, nil)
			d.ID = "  "
			return d
		}},
		{name: "unknown amount type", field: "amount", doc: func() domain.DiscountRule {
			d := quantityDoc("exact", &one, nil)
			d.AmountType = "bananas"
			return d
		}},
		{name: "percentage above 100", field: "amount", doc: func() domain.DiscountRule {
			d := quantityDoc("exact", &one, nil)
			d.Amount = 120
			return d
		}},
		{name: "negative minimum", field: "minimumSubtotal", doc: func() domain.DiscountRule {
			d := quantityDoc("exact", &one, nil)
			d.SetMinimumSpend = true
			d.MinimumSubtotal = -1
			return d
		}},
		{name: "bad date", field: "dateRangeEnd", doc: func() domain.DiscountRule {
			d := quantityDoc("exact", &one, nil)
			d.SetDateRange = true
			d.DateRangeEnd = "06/30/2024"
			return d
		}},
		{name: "inverted date range", field: "dateRangeEnd", doc: func() domain.DiscountRule {
			d := quantityDoc("exact", &one, nil)
			d.SetDateRange = true
			d.DateRangeStart = "2024-07-01"
			d.DateRangeEnd = "2024-06-30"
			return d
		}},
		{name: "unknown weekday", field: "scheduleDays", doc: func() domain.DiscountRule {
			d := quantityDoc("exact", &one, nil)
			d.SetSchedule = true
			d.ScheduleDays = map[string]bool{"funday": true}
			return d
		}},
		{name: "unpadded time", field: "scheduleTimeStart", doc: func() domain.DiscountRule {
			d := quantityDoc("exact", &one, nil)
			d.SetSchedule = true
			d.ScheduleDays = map[string]bool{"monday": true}
			d.ScheduleTimeStart = "9:00"
			d.ScheduleTimeEnd = "17:00"
			return d
		}},
		{name: "schedule without start", field: "scheduleTimeStart", doc: func() domain.DiscountRule {
			d := quantityDoc("exact", &one, nil)
			d.SetSchedule = true
			d.ScheduleDays = map[string]bool{"monday": true}
			d.ScheduleTimeEnd = "14:00"
			return d
		}},
		{name: "schedule without end", field: "scheduleTimeEnd", doc: func() domain.DiscountRule {
			d := quantityDoc("exact", &one, nil)
			d.SetSchedule = true
			d.ScheduleDays = map[string]bool{"monday": true}
			d.ScheduleTimeStart = "11:00"
			return d
		}},
		{name: "unknown applyTo", field: "applyTo", doc: func() domain.DiscountRule {
			d := quantityDoc("exact", &one, nil)
			d.ApplyTo = "order"
			return d
		}},
		{name: "missing purchase quantity", field: "purchaseQuantity", doc: func() domain.DiscountRule {
			return quantityDoc("minimum", nil, nil)
		}},
		{name: "bogo without free units", field: "discountQuantity", doc: func() domain.DiscountRule {
			return quantityDoc("bogo", &one, &zero)
		}},
		{name: "unknown quantity type", field: "quantityRuleType", doc: func() domain.DiscountRule {
			return quantityDoc("tiered", &one, nil)
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rule, err := ParseRule(tc.doc())
			require.Error(t, err)
			assert.Nil(t, rule)
			assert.True(t, errors.Is(err, ErrInvalidRule))
			var ruleErr *RuleError
			require.True(t, errors.As(err, &ruleErr))
			assert.Equal(t, tc.field, ruleErr.Field)
		})
	}
}

func TestParseRules_SkipsMalformed(t *testing.T) {
	one := 1
	bad := quantityDoc("exact", &one, nil)
	bad.ID = "broken"
	bad.ApplyTo = ""
	good := quantityDoc("exact", &one, nil)

	rules, errs := ParseRules([]domain.DiscountRule{bad, good})

	require.Len(t, rules, 1)
	assert.Equal(t, "q1", rules[0].Base().ID)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "broken")
}
