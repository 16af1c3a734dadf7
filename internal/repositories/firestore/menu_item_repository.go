package firestore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"

	domain "github.com/CaoNhatLinh/squareup-sub002/internal/domain"
	pfirestore "github.com/CaoNhatLinh/squareup-sub002/internal/platform/firestore"
	"github.com/CaoNhatLinh/squareup-sub002/internal/repositories"
)

// MenuItemRepository reads catalog items from Firestore.
type MenuItemRepository struct {
	reader *pfirestore.CollectionReader[domain.MenuItem]
}

var _ repositories.CatalogRepository = (*MenuItemRepository)(nil)

// NewMenuItemRepository binds the repository to collection.
func NewMenuItemRepository(provider *pfirestore.Provider, collection string) (*MenuItemRepository, error) {
	if provider == nil {
		return nil, errors.New("menu item repository: firestore provider is required")
	}
	if collection == "" {
		return nil, errors.New("menu item repository: collection is required")
	}
	decoder := func(snap *firestore.DocumentSnapshot) (domain.MenuItem, error) {
		var item domain.MenuItem
		if err := snap.DataTo(&item); err != nil {
			return domain.MenuItem{}, err
		}
		item.ID = snap.Ref.ID
		return item, nil
	}
	return &MenuItemRepository{
		reader: pfirestore.NewCollectionReader[domain.MenuItem](provider, collection, decoder),
	}, nil
}

// ListMenuItems returns items ordered by sort order then name. Undecodable documents are left out.
func (r *MenuItemRepository) ListMenuItems(ctx context.Context, filter repositories.MenuItemFilter) ([]domain.MenuItem, error) {
	if r == nil || r.reader == nil {
		return nil, errors.New("menu item repository not initialised")
	}
	category := strings.TrimSpace(filter.CategoryID)
	docs, _, err := r.reader.List(ctx, func(q firestore.Query) firestore.Query {
		if category != "" {
			q = q.Where("categoryId", "==", category)
		}
		if filter.OnlyAvailable {
			q = q.Where("available", "==", true)
		}
		return q
	})
	if err != nil {
		return nil, err
	}

	items := make([]domain.MenuItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.Data)
	}
	repositories.SortMenuItems(items)
	return items, nil
}
