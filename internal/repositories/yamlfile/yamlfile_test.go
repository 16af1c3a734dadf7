package yamlfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CaoNhatLinh/squareup-sub002/internal/repositories"
)

func TestRuleRepository_ListDiscountRules(t *testing.T) {
	repo, err := NewRuleRepository("testdata/rules.yaml")
	require.NoError(t, err)

	set, err := repo.ListDiscountRules(context.Background())
	require.NoError(t, err)

	require.Len(t, set.Rules, 2)
	assert.Equal(t, "lunch-special", set.Rules[0].ID)
	assert.Equal(t, []string{"noodles"}, set.Rules[0].PurchaseCategories)
	assert.True(t, set.Rules[0].ScheduleDays["friday"])
	assert.Equal(t, "11:00", set.Rules[0].ScheduleTimeStart)

	bogo := set.Rules[1]
	require.NotNil(t, bogo.PurchaseQuantity)
	require.NotNil(t, bogo.DiscountQuantity)
	assert.Equal(t, 1, *bogo.PurchaseQuantity)
	assert.True(t, bogo.CopyEligibleItems)
	assert.Equal(t, float64(100), bogo.Amount)

	require.Len(t, set.Skipped, 1)
	var entryErr *EntryError
	require.True(t, errors.As(set.Skipped[0], &entryErr))
	assert.Equal(t, 2, entryErr.Index)
	assert.NoError(t, repo.Ping(context.Background()))
}

func TestRuleRepository_Errors(t *testing.T) {
	_, err := NewRuleRepository("  ")
	require.Error(t, err)

	repo, err := NewRuleRepository(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	_, err = repo.ListDiscountRules(context.Background())
	require.Error(t, err)
	assert.Error(t, repo.Ping(context.Background()))

	broken := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("discounts: [\n"), 0o600))
	repo, err = NewRuleRepository(broken)
	require.NoError(t, err)
	_, err = repo.ListDiscountRules(context.Background())
	assert.ErrorContains(t, err, "parse")
}

func TestMenuRepository_ListMenuItems(t *testing.T) {
	repo := NewMenuRepository("testdata/menu.yaml")

	all, err := repo.ListMenuItems(context.Background(), repositories.MenuItemFilter{})
	require.NoError(t, err)
	ids := make([]string, 0, len(all))
	for _, item := range all {
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []string{"bun-cha", "spring-roll", "pho-bo"}, ids)

	available, err := repo.ListMenuItems(context.Background(), repositories.MenuItemFilter{CategoryID: "noodles", OnlyAvailable: true})
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, "pho-bo", available[0].ID)
	assert.Equal(t, 9.5, available[0].Price)

	empty, err := NewMenuRepository("").ListMenuItems(context.Background(), repositories.MenuItemFilter{})
	require.NoError(t, err)
	assert.Empty(t, empty)
}
