package firestore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"

	domain "github.com/CaoNhatLinh/squareup-sub002/internal/domain"
	pfirestore "github.com/CaoNhatLinh/squareup-sub002/internal/platform/firestore"
	"github.com/CaoNhatLinh/squareup-sub002/internal/repositories"
)

// DiscountRuleRepository reads promotion documents from Firestore.
type DiscountRuleRepository struct {
	reader *pfirestore.CollectionReader[domain.DiscountRule]
}

var _ repositories.DiscountRuleRepository = (*DiscountRuleRepository)(nil)

// NewDiscountRuleRepository binds the repository to collection.
func NewDiscountRuleRepository(provider *pfirestore.Provider, collection string) (*DiscountRuleRepository, error) {
	if provider == nil {
		return nil, errors.New("discount rule repository: firestore provider is required")
	}
	if collection == "" {
		return nil, errors.New("discount rule repository: collection is required")
	}
	decoder := func(snap *firestore.DocumentSnapshot) (domain.DiscountRule, error) {
		var rule domain.DiscountRule
		if err := snap.DataTo(&rule); err != nil {
			return domain.DiscountRule{}, err
		}
		rule.ID = snap.Ref.ID
		if rule.UpdatedAt.IsZero() {
			rule.UpdatedAt = snap.UpdateTime
		}
		return rule, nil
	}
	return &DiscountRuleRepository{
		reader: pfirestore.NewCollectionReader[domain.DiscountRule](provider, collection, decoder),
	}, nil
}

// ListDiscountRules returns every automatic promotion. Manual rules are filtered server side since
// they can never fire without a code.
func (r *DiscountRuleRepository) ListDiscountRules(ctx context.Context) (repositories.DiscountRuleSet, error) {
	if r == nil || r.reader == nil {
		return repositories.DiscountRuleSet{}, errors.New("discount rule repository not initialised")
	}
	docs, skipped, err := r.reader.List(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("automaticDiscount", "==", true)
	})
	if err != nil {
		return repositories.DiscountRuleSet{}, err
	}
	rules := make([]domain.DiscountRule, 0, len(docs))
	for _, doc := range docs {
		rules = append(rules, doc.Data)
	}
	return repositories.DiscountRuleSet{Rules: rules, Skipped: skipped}, nil
}
