// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/osusume/internal/models"
)

const (
	metaCatalogID     = "catalog_id"
	metaFormatVersion = "format_version"
	metaDimension     = "dimension"
	metaItemCount     = "item_count"
	metaNormalization = "normalization"
	metaCreatedAt     = "created_at"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS catalog_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS items (
		position INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		genre TEXT,
		metadata TEXT
	);

	CREATE TABLE IF NOT EXISTS titles (
		normalized TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		FOREIGN KEY (position) REFERENCES items(position) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_titles_position ON titles(position);
	`
	_, err := db.Exec(schema)
	return err
}

// WriteCatalog replaces meta, items and titles in one transaction.
func (s *SQLiteStorage) WriteCatalog(ctx context.Context, meta *CatalogMeta, items []*models.Item, titles []TitleRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"titles", "items", "catalog_meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	metaStmt, err := tx.PrepareContext(ctx, `INSERT INTO catalog_meta (key, value) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer metaStmt.Close()
	for key, value := range map[string]string{
		metaCatalogID:     meta.CatalogID,
		metaFormatVersion: strconv.Itoa(meta.FormatVersion),
		metaDimension:     strconv.Itoa(meta.Dimension),
		metaItemCount:     strconv.Itoa(meta.ItemCount),
		metaNormalization: meta.Normalization,
		metaCreatedAt:     meta.CreatedAt.UTC().Format(time.RFC3339),
	} {
		if _, err := metaStmt.ExecContext(ctx, key, value); err != nil {
			return fmt.Errorf("write meta %s: %w", key, err)
		}
	}

	itemStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO items (position, name, genre, metadata) VALUES (?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer itemStmt.Close()
	for _, it := range items {
		metadataJSON, err := json.Marshal(it.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		if _, err := itemStmt.ExecContext(ctx, it.Position, it.Name, it.Genre, string(metadataJSON)); err != nil {
			return fmt.Errorf("write item %d: %w", it.Position, err)
		}
	}

	titleStmt, err := tx.PrepareContext(ctx, `INSERT INTO titles (normalized, position) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer titleStmt.Close()
	for _, t := range titles {
		if _, err := titleStmt.ExecContext(ctx, t.Normalized, t.Position); err != nil {
			return fmt.Errorf("write title %q: %w", t.Normalized, err)
		}
	}

	return tx.Commit()
}

// GetMeta returns the stored catalog description. Catalogs written under another
// FormatVersion are rejected with ErrFormatVersion.
func (s *SQLiteStorage) GetMeta(ctx context.Context) (*CatalogMeta, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM catalog_meta`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, ErrEmptyCatalog
	}

	meta := &CatalogMeta{
		CatalogID:     values[metaCatalogID],
		Normalization: values[metaNormalization],
	}
	ints := map[string]*int{
		metaFormatVersion: &meta.FormatVersion,
		metaDimension:     &meta.Dimension,
		metaItemCount:     &meta.ItemCount,
	}
	for key, dst := range ints {
		n, err := strconv.Atoi(values[key])
		if err != nil {
			return nil, fmt.Errorf("catalog meta %s: %w", key, err)
		}
		*dst = n
	}
	if ts := values[metaCreatedAt]; ts != "" {
		if meta.CreatedAt, err = time.Parse(time.RFC3339, ts); err != nil {
			return nil, fmt.Errorf("catalog meta %s: %w", metaCreatedAt, err)
		}
	}
	if meta.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: %d, expected %d", ErrFormatVersion, meta.FormatVersion, FormatVersion)
	}
	return meta, nil
}

// ListItems returns all items ordered by position.
func (s *SQLiteStorage) ListItems(ctx context.Context) ([]*models.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, name, genre, metadata FROM items ORDER BY position`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		var it models.Item
		var genre, metadataJSON sql.NullString
		if err := rows.Scan(&it.Position, &it.Name, &genre, &metadataJSON); err != nil {
			return nil, err
		}
		it.Genre = genre.String
		if err := decodeMetadata(metadataJSON, &it); err != nil {
			return nil, err
		}
		items = append(items, &it)
	}
	return items, rows.Err()
}

// ListTitles returns all title rows ordered by position.
func (s *SQLiteStorage) ListTitles(ctx context.Context) ([]TitleRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT normalized, position FROM titles ORDER BY position, normalized`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var titles []TitleRow
	for rows.Next() {
		var t TitleRow
		if err := rows.Scan(&t.Normalized, &t.Position); err != nil {
			return nil, err
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func decodeMetadata(raw sql.NullString, it *models.Item) error {
	if !raw.Valid || raw.String == "" || raw.String == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw.String), &it.Metadata); err != nil {
		return fmt.Errorf("failed to unmarshal metadata for item %d: %w", it.Position, err)
	}
	return nil
}
