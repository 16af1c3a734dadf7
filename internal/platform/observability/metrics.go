package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/CaoNhatLinh/squareup-sub002/discounts"

// DiscountMetrics groups the instruments recorded by the discount services. The zero value is not
// usable; build one with NewDiscountMetrics.
type DiscountMetrics struct {
	evaluations    metric.Int64Counter
	invalidRules   metric.Int64Counter
	ruleFetchFails metric.Int64Counter
	publishFails   metric.Int64Counter
	discountTotal  metric.Float64Histogram
}

// NewDiscountMetrics registers instruments on the global meter provider. Without an SDK installed
// they are no-ops.
func NewDiscountMetrics() (*DiscountMetrics, error) {
	return NewDiscountMetricsWithMeter(otel.Meter(meterName))
}

// NewDiscountMetricsWithMeter registers instruments on meter.
func NewDiscountMetricsWithMeter(meter metric.Meter) (*DiscountMetrics, error) {
	var (
		m   DiscountMetrics
		err error
	)
	if m.evaluations, err = meter.Int64Counter("discounts.evaluations",
		metric.WithDescription("Cart discount computations by call site")); err != nil {
		return nil, err
	}
	if m.invalidRules, err = meter.Int64Counter("discounts.rules.invalid",
		metric.WithDescription("Stored rules skipped because they failed validation")); err != nil {
		return nil, err
	}
	if m.ruleFetchFails, err = meter.Int64Counter("discounts.rules.fetch_failures",
		metric.WithDescription("Rule loads that failed and fell back to no discounts")); err != nil {
		return nil, err
	}
	if m.publishFails, err = meter.Int64Counter("discounts.settlements.publish_failures",
		metric.WithDescription("Settlement events that could not be published")); err != nil {
		return nil, err
	}
	if m.discountTotal, err = meter.Float64Histogram("discounts.total",
		metric.WithDescription("Total discount granted per cart"),
		metric.WithUnit("{currency}")); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordEvaluation counts one computation and the discount it granted.
func (m *DiscountMetrics) RecordEvaluation(ctx context.Context, site string, appliedRules int, totalDiscount float64) {
	if m == nil {
		return
	}
	siteAttr := attribute.String("site", site)
	m.evaluations.Add(ctx, 1, metric.WithAttributes(siteAttr, attribute.Bool("discounted", appliedRules > 0)))
	m.discountTotal.Record(ctx, totalDiscount, metric.WithAttributes(siteAttr))
}

// RecordInvalidRules counts rules dropped during parsing.
func (m *DiscountMetrics) RecordInvalidRules(ctx context.Context, count int) {
	if m == nil || count == 0 {
		return
	}
	m.invalidRules.Add(ctx, int64(count))
}

// RecordRuleFetchFailure counts a failed rule load.
func (m *DiscountMetrics) RecordRuleFetchFailure(ctx context.Context, site string) {
	if m == nil {
		return
	}
	m.ruleFetchFails.Add(ctx, 1, metric.WithAttributes(attribute.String("site", site)))
}

// RecordPublishFailure counts a settlement event that was not delivered.
func (m *DiscountMetrics) RecordPublishFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.publishFails.Add(ctx, 1)
}
