// Package storage defines the persistence interface for the recommendation catalog.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hyperjump/osusume/internal/models"
)

// FormatVersion is the catalog database layout version.
const FormatVersion = 1

var (
	// ErrFormatVersion is returned when a catalog was written under another layout version.
	ErrFormatVersion = errors.New("unsupported catalog format version")
	// ErrEmptyCatalog is returned when no catalog has been imported yet.
	ErrEmptyCatalog = errors.New("catalog is empty")
)

// CatalogMeta describes an imported catalog and the contract it was built under.
type CatalogMeta struct {
	CatalogID     string    `json:"catalog_id"`
	FormatVersion int       `json:"format_version"`
	Dimension     int       `json:"dimension"`
	ItemCount     int       `json:"item_count"`
	Normalization string    `json:"normalization"`
	CreatedAt     time.Time `json:"created_at"`
}

// TitleRow maps a normalized title to an item position.
type TitleRow struct {
	Normalized string
	Position   int
}

// Storage defines catalog persistence operations.
type Storage interface {
	// WriteCatalog replaces the stored catalog in a single transaction.
	WriteCatalog(ctx context.Context, meta *CatalogMeta, items []*models.Item, titles []TitleRow) error

	GetMeta(ctx context.Context) (*CatalogMeta, error)
	ListItems(ctx context.Context) ([]*models.Item, error)
	ListTitles(ctx context.Context) ([]TitleRow, error)

	Close() error
}
