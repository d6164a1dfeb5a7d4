package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"struk/internal/core"
)

type CategoryStore interface {
	GetAllCategories(ctx context.Context) ([]core.Category, error)
	PutCategory(ctx context.Context, c core.Category) error
	DeleteCategory(ctx context.Context, id string) error
}

// Categories manages the flat category list. Transactions refer to
// categories by name, so deleting one leaves existing transactions alone.
type Categories struct {
	store CategoryStore
}

func NewCategories(store CategoryStore) *Categories {
	return &Categories{store: store}
}

// List returns the categories of type t sorted by name, or all of them
// grouped expense first when t is empty.
func (c *Categories) List(ctx context.Context, t core.TxType) ([]core.Category, error) {
	all, err := c.store.GetAllCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, 0, len(all))
	for _, cat := range all {
		if t == "" || cat.Type == t {
			out = append(out, cat)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type == core.Expense
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// Add creates a category. Names are unique per type, ignoring case.
func (c *Categories) Add(ctx context.Context, name, icon string, t core.TxType) (core.Category, error) {
	cat := core.Category{ID: core.NewID(), Name: strings.TrimSpace(name), Icon: strings.TrimSpace(icon), Type: t}
	if err := cat.Validate(); err != nil {
		return core.Category{}, fmt.Errorf("add category: %w", err)
	}
	existing, err := c.List(ctx, t)
	if err != nil {
		return core.Category{}, err
	}
	for _, e := range existing {
		if strings.EqualFold(e.Name, cat.Name) {
			return core.Category{}, fmt.Errorf("add category %q: %w", cat.Name, core.ErrDuplicateCategory)
		}
	}
	if err := c.store.PutCategory(ctx, cat); err != nil {
		return core.Category{}, fmt.Errorf("add category: %w", err)
	}
	return cat, nil
}

// Delete removes a category by id. Unknown ids are not an error.
func (c *Categories) Delete(ctx context.Context, id string) error {
	if err := c.store.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

// Find looks a category up by name within type t, ignoring case.
func (c *Categories) Find(ctx context.Context, name string, t core.TxType) (core.Category, bool, error) {
	cats, err := c.List(ctx, t)
	if err != nil {
		return core.Category{}, false, err
	}
	for _, cat := range cats {
		if strings.EqualFold(cat.Name, strings.TrimSpace(name)) {
			return cat, true, nil
		}
	}
	return core.Category{}, false, nil
}
