package catalog

import (
	"fmt"

	"github.com/hyperjump/osusume/internal/models"
	"github.com/hyperjump/osusume/internal/vector"
)

// Catalog is the immutable state shared by all requests: item rows, one vector per item and
// the title index. Build it once at startup and pass it to whatever needs it.
type Catalog struct {
	id     string
	items  []*models.Item
	store  *vector.Store
	titles *TitleIndex
}

// New checks that items, store and titles describe the same catalog and returns it.
// items[i] must carry Position i and there must be exactly one vector per item.
func New(id string, items []*models.Item, store *vector.Store, titles *TitleIndex) (*Catalog, error) {
	if store == nil || titles == nil {
		return nil, fmt.Errorf("catalog requires a vector store and a title index")
	}
	if len(items) != store.Size() {
		return nil, fmt.Errorf("catalog has %d items but %d vectors", len(items), store.Size())
	}
	for i, it := range items {
		if it == nil || it.Position != i {
			return nil, fmt.Errorf("item at index %d: %w: positions must be contiguous from 0", i, vector.ErrOutOfRange)
		}
	}
	for key, pos := range titles.positions {
		if pos < 0 || pos >= store.Size() {
			return nil, fmt.Errorf("title %q: %w: %d not in [0, %d)", key, vector.ErrOutOfRange, pos, store.Size())
		}
	}
	return &Catalog{id: id, items: items, store: store, titles: titles}, nil
}

// ID returns the catalog identifier stamped at import.
func (c *Catalog) ID() string { return c.id }

// Size returns the number of items.
func (c *Catalog) Size() int { return len(c.items) }

// Dimension returns the vector dimension.
func (c *Catalog) Dimension() int { return c.store.Dimension() }

// Store returns the vector store.
func (c *Catalog) Store() *vector.Store { return c.store }

// Titles returns the title index.
func (c *Catalog) Titles() *TitleIndex { return c.titles }

// Resolve resolves a title to a catalog position.
func (c *Catalog) Resolve(title string) (int, error) {
	return c.titles.Resolve(title)
}

// Item returns a shallow copy of the item at position.
func (c *Catalog) Item(position int) (*models.Item, error) {
	if position < 0 || position >= len(c.items) {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", vector.ErrOutOfRange, position, len(c.items))
	}
	it := *c.items[position]
	return &it, nil
}

// Names returns item display names indexed by position.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.items))
	for i, it := range c.items {
		names[i] = it.Name
	}
	return names
}
