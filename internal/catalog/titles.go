// Package catalog holds the loaded, immutable recommendation catalog: item rows, their
// vectors and the title index that resolves user input to catalog positions.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hyperjump/osusume/internal/vector"
	"golang.org/x/text/cases"
)

// NormalizationRule names the title normalization applied by Normalize. It is persisted with
// every catalog so a catalog built under a different rule is rejected at load.
const NormalizationRule = "trim+casefold"

var (
	// ErrNotFound is returned when a title has no exact match after normalization.
	ErrNotFound = errors.New("title not found")
	// ErrDuplicateTitle is returned when two titles normalize to the same key.
	ErrDuplicateTitle = errors.New("duplicate normalized title")
	// ErrCatalogMismatch is returned when the vector file belongs to another import than the tables.
	ErrCatalogMismatch = errors.New("vector file and catalog tables come from different imports")
)

// folder is stateless, so sharing it between goroutines is safe.
var folder = cases.Fold()

// Normalize trims surrounding whitespace and applies Unicode case folding.
func Normalize(title string) string {
	return folder.String(strings.TrimSpace(title))
}

// TitleEntry pairs a title with the catalog position it resolves to.
type TitleEntry struct {
	Title    string
	Position int
}

// TitleIndex maps normalized titles to catalog positions. It is read-only once built.
type TitleIndex struct {
	positions map[string]int
}

// NewTitleIndex normalizes every entry and builds the index. Keys must be unique after
// normalization and every position must lie in [0, size).
func NewTitleIndex(entries []TitleEntry, size int) (*TitleIndex, error) {
	positions := make(map[string]int, len(entries))
	for _, e := range entries {
		key := Normalize(e.Title)
		if key == "" {
			return nil, fmt.Errorf("empty title for position %d", e.Position)
		}
		if e.Position < 0 || e.Position >= size {
			return nil, fmt.Errorf("title %q: %w: %d not in [0, %d)", e.Title, vector.ErrOutOfRange, e.Position, size)
		}
		if prev, ok := positions[key]; ok {
			return nil, fmt.Errorf("%w: %q at positions %d and %d", ErrDuplicateTitle, key, prev, e.Position)
		}
		positions[key] = e.Position
	}
	return &TitleIndex{positions: positions}, nil
}

// Resolve returns the position for title. Only exact matches of the normalized title count.
func (ix *TitleIndex) Resolve(title string) (int, error) {
	pos, ok := ix.positions[Normalize(title)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNotFound, strings.TrimSpace(title))
	}
	return pos, nil
}

// Len returns the number of indexed titles.
func (ix *TitleIndex) Len() int {
	return len(ix.positions)
}
