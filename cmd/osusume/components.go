package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/osusume/internal/catalog"
	"github.com/hyperjump/osusume/internal/config"
	"github.com/hyperjump/osusume/internal/metadata"
	"github.com/hyperjump/osusume/internal/recommend"
	"github.com/hyperjump/osusume/internal/storage"
	"github.com/hyperjump/osusume/internal/suggest"
)

// retiredSuggesterGrace outlives the server's request timeout, so requests still holding a
// replaced engine can finish before its title index is closed.
const retiredSuggesterGrace = 90 * time.Second

// Components holds initialized services.
type Components struct {
	Storage storage.Storage
	Media   *metadata.Service

	mu        sync.Mutex
	Catalog   *catalog.Catalog
	Suggester *suggest.Suggester
	Engine    *recommend.Engine
}

func (c *Components) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Suggester != nil {
		_ = c.Suggester.Close()
		c.Suggester = nil
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

// initializeComponents opens the catalog database, loads the catalog into memory and wires
// the recommendation engine around it.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c := &Components{Storage: store, Media: newMediaService(cfg, logger)}

	c.mu.Lock()
	err = c.loadLocked(ctx, cfg, logger)
	c.mu.Unlock()
	if err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// Reload loads the catalog again and returns the new engine. On failure the current
// catalog stays in place.
func (c *Components) Reload(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*recommend.Engine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.Suggester
	if err := c.loadLocked(ctx, cfg, logger); err != nil {
		return nil, err
	}
	if prev != nil {
		time.AfterFunc(retiredSuggesterGrace, func() { _ = prev.Close() })
	}
	return c.Engine, nil
}

func (c *Components) loadLocked(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	cat, err := catalog.Load(ctx, c.Storage, cfg.Storage.VectorPath)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	logger.Info("Catalog loaded",
		zap.String("catalog_id", cat.ID()),
		zap.Int("items", cat.Size()),
		zap.Int("titles", cat.Titles().Len()),
		zap.Int("dimension", cat.Dimension()),
	)

	opts := []recommend.Option{
		recommend.WithLogger(logger),
		recommend.WithMetadata(c.Media, cfg.Metadata.Concurrency),
	}
	var sg *suggest.Suggester
	if cfg.Suggest.EnabledOrDefault() {
		sg, err = suggest.New(cat.Names(),
			suggest.WithMaxSuggestions(cfg.Suggest.MaxSuggestions),
			suggest.WithFuzziness(cfg.Suggest.Fuzziness),
		)
		if err != nil {
			return fmt.Errorf("failed to build title suggestions: %w", err)
		}
		opts = append(opts, recommend.WithSuggester(sg))
	}

	c.Catalog = cat
	c.Suggester = sg
	c.Engine = recommend.NewEngine(cat, &cfg.Ranking, opts...)
	return nil
}

// newMediaService builds the metadata service. The cache and rate limiter outlive catalog reloads.
func newMediaService(cfg *config.Config, logger *zap.Logger) *metadata.Service {
	var fetcher metadata.Fetcher
	if cfg.Metadata.EnabledOrDefault() {
		fetcher = metadata.NewJikanClient(cfg.Metadata.BaseURL, cfg.Metadata.RequestsPerSecond, cfg.Metadata.Burst)
	}
	return metadata.NewService(
		fetcher,
		cfg.Metadata.EnabledOrDefault(),
		time.Duration(cfg.Metadata.TimeoutSeconds)*time.Second,
		cfg.Metadata.CacheSize,
		logger,
	)
}
