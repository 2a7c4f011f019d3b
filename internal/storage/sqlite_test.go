package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/osusume/internal/models"
)

func testMeta(n int) *CatalogMeta {
	return &CatalogMeta{
		CatalogID:     "cat-1",
		FormatVersion: FormatVersion,
		Dimension:     3,
		ItemCount:     n,
		Normalization: "trim+casefold",
		CreatedAt:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSQLiteStorage_WriteAndRead(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSQLiteStorage(filepath.Join(dir, "db", "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	items := []*models.Item{
		{Position: 0, Name: "Naruto", Genre: "Action, Adventure", Metadata: map[string]interface{}{"episodes": "220"}},
		{Position: 1, Name: "Bleach", Genre: "Action"},
	}
	titles := []TitleRow{{Normalized: "naruto", Position: 0}, {Normalized: "bleach", Position: 1}}
	if err := store.WriteCatalog(ctx, testMeta(2), items, titles); err != nil {
		t.Fatal(err)
	}

	meta, err := store.GetMeta(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if meta.CatalogID != "cat-1" || meta.Dimension != 3 || meta.ItemCount != 2 {
		t.Errorf("meta = %+v", meta)
	}
	if !meta.CreatedAt.Equal(testMeta(2).CreatedAt) {
		t.Errorf("created_at = %v", meta.CreatedAt)
	}

	got, err := store.ListItems(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Name != "Naruto" || got[1].Position != 1 {
		t.Fatalf("ListItems = %+v", got)
	}
	if got[0].Metadata["episodes"] != "220" {
		t.Errorf("metadata = %v", got[0].Metadata)
	}
	if got[1].Metadata != nil {
		t.Errorf("nil metadata should stay nil, got %v", got[1].Metadata)
	}

	if got[1].Name != "Bleach" || got[1].Genre != "Action" {
		t.Errorf("second item = %+v", got[1])
	}

	rows, err := store.ListTitles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0].Normalized != "naruto" {
		t.Errorf("ListTitles = %+v", rows)
	}
}

func TestSQLiteStorage_WriteCatalogReplaces(t *testing.T) {
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	first := []*models.Item{{Position: 0, Name: "A"}, {Position: 1, Name: "B"}}
	if err := store.WriteCatalog(ctx, testMeta(2), first, []TitleRow{{"a", 0}, {"b", 1}}); err != nil {
		t.Fatal(err)
	}
	second := []*models.Item{{Position: 0, Name: "C"}}
	if err := store.WriteCatalog(ctx, testMeta(1), second, []TitleRow{{"c", 0}}); err != nil {
		t.Fatal(err)
	}
	items, _ := store.ListItems(ctx)
	if len(items) != 1 || items[0].Name != "C" {
		t.Errorf("items after replace = %+v", items)
	}
	titles, _ := store.ListTitles(ctx)
	if len(titles) != 1 || titles[0].Normalized != "c" {
		t.Errorf("titles after replace = %+v", titles)
	}
}

func TestSQLiteStorage_GetMeta(t *testing.T) {
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	if _, err := store.GetMeta(ctx); !errors.Is(err, ErrEmptyCatalog) {
		t.Errorf("empty catalog: got %v, want ErrEmptyCatalog", err)
	}

	meta := testMeta(0)
	meta.FormatVersion = FormatVersion + 1
	if err := store.WriteCatalog(ctx, meta, nil, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetMeta(ctx); !errors.Is(err, ErrFormatVersion) {
		t.Errorf("future version: got %v, want ErrFormatVersion", err)
	}
}
