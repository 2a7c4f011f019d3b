package catalog

import (
	"github.com/hyperjump/osusume/internal/models"
	"github.com/hyperjump/osusume/internal/vector"
)

// TitlesFromItems derives title entries from item display names. When several names share a
// normalized form the lowest position keeps it; the other items are returned in dropped.
// Items with blank names are dropped too.
func TitlesFromItems(items []*models.Item) (entries []TitleEntry, dropped []*models.Item) {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		key := Normalize(it.Name)
		if key == "" {
			dropped = append(dropped, it)
			continue
		}
		if _, ok := seen[key]; ok {
			dropped = append(dropped, it)
			continue
		}
		seen[key] = struct{}{}
		entries = append(entries, TitleEntry{Title: it.Name, Position: it.Position})
	}
	return entries, dropped
}

// Build assembles a Catalog in memory from items and their vectors, deriving the title
// index from item names.
func Build(id string, items []*models.Item, dimension int, vectors [][]float32) (*Catalog, error) {
	store, err := vector.NewStore(dimension, vectors)
	if err != nil {
		return nil, err
	}
	entries, _ := TitlesFromItems(items)
	titles, err := NewTitleIndex(entries, store.Size())
	if err != nil {
		return nil, err
	}
	return New(id, items, store, titles)
}
