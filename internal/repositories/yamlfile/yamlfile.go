// Package yamlfile serves discount rules and menu items from local YAML files. It backs local
// development and demo deployments that run without Firestore.
package yamlfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	domain "github.com/CaoNhatLinh/squareup-sub002/internal/domain"
	"github.com/CaoNhatLinh/squareup-sub002/internal/repositories"
)

// EntryError reports a list entry that could not be decoded.
type EntryError struct {
	Path  string
	Index int
	Line  int
	Err   error
}

// Error implements the error interface.
func (e *EntryError) Error() string {
	return fmt.Sprintf("%s: entry %d (line %d): %v", e.Path, e.Index, e.Line, e.Err)
}

// Unwrap returns the underlying error.
func (e *EntryError) Unwrap() error { return e.Err }

type rulesFile struct {
	Discounts []yaml.Node `yaml:"discounts"`
}

type menuFile struct {
	MenuItems []yaml.Node `yaml:"menuItems"`
}

// RuleRepository reads rules from a YAML document with a top-level `discounts` list. The file is
// re-read on every call so edits show up without a restart.
type RuleRepository struct {
	path string
}

var _ repositories.DiscountRuleRepository = (*RuleRepository)(nil)

// NewRuleRepository returns a repository for path.
func NewRuleRepository(path string) (*RuleRepository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("yaml rule repository: path is required")
	}
	return &RuleRepository{path: path}, nil
}

// ListDiscountRules decodes the file. Entries that do not fit the rule document shape are
// reported in Skipped; a missing or unparsable file is an error.
func (r *RuleRepository) ListDiscountRules(ctx context.Context) (repositories.DiscountRuleSet, error) {
	if err := ctx.Err(); err != nil {
		return repositories.DiscountRuleSet{}, err
	}
	var file rulesFile
	if err := readYAML(r.path, &file); err != nil {
		return repositories.DiscountRuleSet{}, err
	}

	set := repositories.DiscountRuleSet{Rules: make([]domain.DiscountRule, 0, len(file.Discounts))}
	for i := range file.Discounts {
		node := &file.Discounts[i]
		var rule domain.DiscountRule
		if err := node.Decode(&rule); err != nil {
			set.Skipped = append(set.Skipped, &EntryError{Path: r.path, Index: i, Line: node.Line, Err: err})
			continue
		}
		set.Rules = append(set.Rules, rule)
	}
	return set, nil
}

// Ping checks the file is still readable.
func (r *RuleRepository) Ping(context.Context) error {
	return checkReadable(r.path)
}

// MenuRepository reads menu items from a YAML document with a top-level `menuItems` list. An empty
// path yields an empty catalog.
type MenuRepository struct {
	path string
}

var _ repositories.CatalogRepository = (*MenuRepository)(nil)

// NewMenuRepository returns a repository for path.
func NewMenuRepository(path string) *MenuRepository {
	return &MenuRepository{path: strings.TrimSpace(path)}
}

// ListMenuItems decodes, filters and sorts the catalog. Undecodable entries are dropped.
func (r *MenuRepository) ListMenuItems(ctx context.Context, filter repositories.MenuItemFilter) ([]domain.MenuItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.path == "" {
		return []domain.MenuItem{}, nil
	}
	var file menuFile
	if err := readYAML(r.path, &file); err != nil {
		return nil, err
	}

	items := make([]domain.MenuItem, 0, len(file.MenuItems))
	for i := range file.MenuItems {
		var item domain.MenuItem
		if err := file.MenuItems[i].Decode(&item); err != nil {
			continue
		}
		item.ID = strings.TrimSpace(item.ID)
		if item.ID == "" || !repositories.MatchesMenuFilter(item, filter) {
			continue
		}
		items = append(items, item)
	}
	repositories.SortMenuItems(items)
	return items, nil
}

func readYAML(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("yamlfile: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("yamlfile: parse %s: %w", path, err)
	}
	return nil
}

func checkReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}
