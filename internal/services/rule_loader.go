package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/CaoNhatLinh/squareup-sub002/internal/discounts"
	"github.com/CaoNhatLinh/squareup-sub002/internal/platform/observability"
	"github.com/CaoNhatLinh/squareup-sub002/internal/repositories"
)

const (
	ruleSnapshotKey = "automatic"
	ruleLoadTimeout = 10 * time.Second
)

// ruleLoader turns stored rule documents into sorted engine rules. A failed load yields no rules
// so checkout keeps working at full price.
type ruleLoader struct {
	repo    repositories.DiscountRuleRepository
	cache   *ttlCache[[]discounts.Rule]
	group   singleflight.Group
	metrics *observability.DiscountMetrics
}

func newRuleLoader(repo repositories.DiscountRuleRepository, ttl time.Duration, now func() time.Time, metrics *observability.DiscountMetrics) *ruleLoader {
	return &ruleLoader{
		repo:    repo,
		cache:   newTTLCache[[]discounts.Rule](ttl, now),
		metrics: metrics,
	}
}

// Cached returns the rule snapshot, refilling it at most once per TTL across concurrent callers.
func (l *ruleLoader) Cached(ctx context.Context, site string) []discounts.Rule {
	if rules, ok := l.cache.Get(ruleSnapshotKey); ok {
		return rules
	}
	value, err, _ := l.group.Do(ruleSnapshotKey, func() (any, error) {
		// Shared by every waiting caller, so one client going away must not cancel it.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ruleLoadTimeout)
		defer cancel()
		rules, err := l.fetch(loadCtx)
		if err != nil {
			return nil, err
		}
		l.cache.Put(ruleSnapshotKey, rules)
		return rules, nil
	})
	if err != nil {
		l.failOpen(ctx, site, err)
		return nil
	}
	return value.([]discounts.Rule)
}

// Fresh bypasses the cache. Settlement uses it so a rule edited moments ago is honoured.
func (l *ruleLoader) Fresh(ctx context.Context, site string) []discounts.Rule {
	rules, err := l.fetch(ctx)
	if err != nil {
		l.failOpen(ctx, site, err)
		return nil
	}
	l.cache.Put(ruleSnapshotKey, rules)
	return rules
}

func (l *ruleLoader) fetch(ctx context.Context) ([]discounts.Rule, error) {
	set, err := l.repo.ListDiscountRules(ctx)
	if err != nil {
		return nil, err
	}
	rules, invalid := discounts.ParseRules(set.Rules)

	logger := observability.FromContext(ctx)
	for _, skipped := range set.Skipped {
		logger.Warn("discount rule document skipped", zap.Error(skipped))
	}
	for _, ruleErr := range invalid {
		fields := []zap.Field{zap.Error(ruleErr)}
		var parsed *discounts.RuleError
		if errors.As(ruleErr, &parsed) {
			fields = append(fields, zap.String("ruleId", parsed.RuleID), zap.String("field", parsed.Field))
		}
		logger.Warn("discount rule rejected", fields...)
	}
	l.metrics.RecordInvalidRules(ctx, len(set.Skipped)+len(invalid))

	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Base().ID < rules[j].Base().ID
	})
	return rules, nil
}

func (l *ruleLoader) failOpen(ctx context.Context, site string, err error) {
	fields := []zap.Field{zap.String("site", site), zap.Error(err)}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		fields = append(fields, zap.Bool("unavailable", repoErr.IsUnavailable()))
	}
	observability.FromContext(ctx).Warn("discount rules unavailable, continuing without discounts", fields...)
	l.metrics.RecordRuleFetchFailure(ctx, site)
}

// ttlCache is a small expiring map. A non-positive ttl disables caching.
type ttlCache[V any] struct {
	ttl time.Duration
	now func() time.Time
	mu  sync.RWMutex
	m   map[string]ttlEntry[V]
}

type ttlEntry[V any] struct {
	value   V
	expires time.Time
}

func newTTLCache[V any](ttl time.Duration, now func() time.Time) *ttlCache[V] {
	if now == nil {
		now = time.Now
	}
	return &ttlCache[V]{
		ttl: ttl,
		now: now,
		m:   make(map[string]ttlEntry[V]),
	}
}

func (c *ttlCache[V]) Get(key string) (V, bool) {
	var zero V
	if c.ttl <= 0 {
		return zero, false
	}
	c.mu.RLock()
	entry, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return zero, false
	}
	if !c.now().Before(entry.expires) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return zero, false
	}
	return entry.value, true
}

func (c *ttlCache[V]) Put(key string, value V) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.m[key] = ttlEntry[V]{value: value, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}
