package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/osusume/internal/catalog"
	"github.com/hyperjump/osusume/internal/models"
	"github.com/hyperjump/osusume/internal/storage"
	"github.com/hyperjump/osusume/internal/vector"
)

// Result summarizes a finished import.
type Result struct {
	CatalogID string   `json:"catalog_id"`
	Items     int      `json:"items"`
	Titles    int      `json:"titles"`
	Dimension int      `json:"dimension"`
	Dropped   []string `json:"dropped,omitempty"` // names left out of the title table
}

// Importer writes catalogs into storage and a vector file.
type Importer struct {
	storage    storage.Storage
	vectorPath string
	logger     *zap.Logger
}

// ImporterOption configures an Importer.
type ImporterOption func(*Importer)

// WithLogger sets a logger for import events.
func WithLogger(l *zap.Logger) ImporterOption {
	return func(im *Importer) { im.logger = l }
}

// NewImporter creates an importer writing to store and vectorPath.
func NewImporter(store storage.Storage, vectorPath string, opts ...ImporterOption) *Importer {
	im := &Importer{
		storage:    store,
		vectorPath: vectorPath,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// ImportFile reads path and replaces the stored catalog with its rows.
func (im *Importer) ImportFile(ctx context.Context, path string) (*Result, error) {
	records, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return im.Import(ctx, records)
}

// Import replaces the stored catalog with records, in order. Positions are assigned from
// row order. When several rows share a normalized title the lowest position keeps it and
// the others stay in the catalog without a title entry.
func (im *Importer) Import(ctx context.Context, records []*Record) (*Result, error) {
	if len(records) == 0 {
		return nil, errors.New("no rows to import")
	}

	dim := len(records[0].Vector)
	items := make([]*models.Item, len(records))
	vectors := make([][]float32, len(records))
	for i, rec := range records {
		if len(rec.Vector) != dim {
			return nil, fmt.Errorf("%w: row %d (%q) has %d components, expected %d",
				vector.ErrDimensionMismatch, i, rec.Name, len(rec.Vector), dim)
		}
		items[i] = &models.Item{Position: i, Name: rec.Name, Genre: rec.Genre, Metadata: rec.Metadata}
		vectors[i] = rec.Vector
	}

	store, err := vector.NewStore(dim, vectors)
	if err != nil {
		return nil, err
	}

	entries, dropped := catalog.TitlesFromItems(items)
	if _, err := catalog.NewTitleIndex(entries, store.Size()); err != nil {
		return nil, err
	}
	result := &Result{
		CatalogID: uuid.New().String(),
		Items:     len(items),
		Titles:    len(entries),
		Dimension: dim,
	}
	for _, it := range dropped {
		im.logger.Warn("Title left out of index",
			zap.Int("position", it.Position),
			zap.String("name", it.Name),
		)
		result.Dropped = append(result.Dropped, it.Name)
	}

	rows := make([]storage.TitleRow, len(entries))
	for i, e := range entries {
		rows[i] = storage.TitleRow{Normalized: catalog.Normalize(e.Title), Position: e.Position}
	}
	meta := &storage.CatalogMeta{
		CatalogID:     result.CatalogID,
		FormatVersion: storage.FormatVersion,
		Dimension:     dim,
		ItemCount:     len(items),
		Normalization: catalog.NormalizationRule,
		CreatedAt:     time.Now(),
	}

	// The vector file is moved into place only after the tables commit.
	tmp := im.vectorPath + ".tmp"
	if err := vector.WriteFile(tmp, result.CatalogID, store); err != nil {
		return nil, err
	}
	if err := im.storage.WriteCatalog(ctx, meta, items, rows); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("write catalog: %w", err)
	}
	if err := os.Rename(tmp, im.vectorPath); err != nil {
		return nil, fmt.Errorf("install vector file: %w", err)
	}

	im.logger.Info("Catalog imported",
		zap.String("catalog_id", result.CatalogID),
		zap.Int("items", result.Items),
		zap.Int("titles", result.Titles),
		zap.Int("dimension", dim),
	)
	return result, nil
}
