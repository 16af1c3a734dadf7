package repositories

import (
	"context"
	"errors"
)

// Closer releases a resource held by a registry.
type Closer func(ctx context.Context) error

type registry struct {
	rules   DiscountRuleRepository
	catalog CatalogRepository
	health  HealthRepository
	closers []Closer
}

var _ Registry = (*registry)(nil)

// NewRegistry bundles repositories built by the caller. Closers run in reverse order on Close.
func NewRegistry(rules DiscountRuleRepository, catalog CatalogRepository, health HealthRepository, closers ...Closer) (Registry, error) {
	if rules == nil {
		return nil, errors.New("repositories: discount rule repository is required")
	}
	if catalog == nil {
		return nil, errors.New("repositories: catalog repository is required")
	}
	return &registry{
		rules:   rules,
		catalog: catalog,
		health:  health,
		closers: append([]Closer(nil), closers...),
	}, nil
}

func (r *registry) DiscountRules() DiscountRuleRepository { return r.rules }

func (r *registry) Catalog() CatalogRepository { return r.catalog }

func (r *registry) Health() HealthRepository { return r.health }

func (r *registry) Close(ctx context.Context) error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if closer := r.closers[i]; closer != nil {
			if err := closer(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
