package repositories

import (
	"sort"
	"strings"

	domain "github.com/CaoNhatLinh/squareup-sub002/internal/domain"
)

// SortMenuItems orders items the way the storefront lists them: sort order, then name, then id.
func SortMenuItems(items []domain.MenuItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		if an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name); an != bn {
			return an < bn
		}
		return a.ID < b.ID
	})
}

// MatchesMenuFilter reports whether item passes filter.
func MatchesMenuFilter(item domain.MenuItem, filter MenuItemFilter) bool {
	if category := strings.TrimSpace(filter.CategoryID); category != "" && item.CategoryID != category {
		return false
	}
	if filter.OnlyAvailable && !item.Available {
		return false
	}
	return true
}
