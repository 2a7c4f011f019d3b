package catalog

import (
	"context"
	"fmt"

	"github.com/hyperjump/osusume/internal/models"
	"github.com/hyperjump/osusume/internal/storage"
	"github.com/hyperjump/osusume/internal/vector"
)

// Source is the read side of catalog storage needed to load a Catalog.
type Source interface {
	GetMeta(ctx context.Context) (*storage.CatalogMeta, error)
	ListItems(ctx context.Context) ([]*models.Item, error)
	ListTitles(ctx context.Context) ([]storage.TitleRow, error)
}

// Load reads items and titles from src and vectors from vectorPath, checks them against the
// stored contract (catalog id, format version, normalization rule, dimension, item count) and returns
// the immutable Catalog. Any mismatch or out-of-range reference is an error; callers should
// treat it as fatal.
func Load(ctx context.Context, src Source, vectorPath string) (*Catalog, error) {
	meta, err := src.GetMeta(ctx)
	if err != nil {
		return nil, fmt.Errorf("read catalog meta: %w", err)
	}
	if meta.Normalization != NormalizationRule {
		return nil, fmt.Errorf("catalog normalization %q, expected %q", meta.Normalization, NormalizationRule)
	}

	store, vectorCatalogID, err := vector.ReadFile(vectorPath)
	if err != nil {
		return nil, fmt.Errorf("load vectors: %w", err)
	}
	if vectorCatalogID != meta.CatalogID {
		return nil, fmt.Errorf("%w: vector file %q, tables %q", ErrCatalogMismatch, vectorCatalogID, meta.CatalogID)
	}
	if store.Dimension() != meta.Dimension {
		return nil, fmt.Errorf("%w: vector file has %d, catalog expects %d", vector.ErrDimensionMismatch, store.Dimension(), meta.Dimension)
	}
	if store.Size() != meta.ItemCount {
		return nil, fmt.Errorf("vector file has %d vectors, catalog expects %d", store.Size(), meta.ItemCount)
	}

	items, err := src.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}

	rows, err := src.ListTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("load titles: %w", err)
	}
	entries := make([]TitleEntry, len(rows))
	for i, r := range rows {
		entries[i] = TitleEntry{Title: r.Normalized, Position: r.Position}
	}
	titles, err := NewTitleIndex(entries, store.Size())
	if err != nil {
		return nil, fmt.Errorf("build title index: %w", err)
	}

	return New(meta.CatalogID, items, store, titles)
}
