// Package recommend composes title resolution, similarity ranking and metadata enrichment
// into recommendation requests.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/osusume/internal/catalog"
	"github.com/hyperjump/osusume/internal/config"
	"github.com/hyperjump/osusume/internal/metadata"
	"github.com/hyperjump/osusume/internal/models"
	"github.com/hyperjump/osusume/internal/ranking"
	"github.com/hyperjump/osusume/internal/suggest"
)

// NotFoundError is returned when a title does not resolve. It matches catalog.ErrNotFound
// and carries close catalog titles when a suggester is configured.
type NotFoundError struct {
	Title       string
	Suggestions []suggest.Suggestion
	err         error
}

func (e *NotFoundError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("%v: %q", catalog.ErrNotFound, e.Title)
	}
	return e.err.Error()
}

func (e *NotFoundError) Unwrap() error {
	if e.err == nil {
		return catalog.ErrNotFound
	}
	return e.err
}

// Engine answers recommendation requests against one loaded catalog.
type Engine struct {
	catalog     *catalog.Catalog
	ranker      *ranking.Ranker
	config      *config.RankingConfig
	media       *metadata.Service
	concurrency int
	suggester   *suggest.Suggester
	logger      *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetadata enables enrichment through svc with at most concurrency fetches in flight.
func WithMetadata(svc *metadata.Service, concurrency int) Option {
	return func(e *Engine) {
		e.media = svc
		if concurrency > 0 {
			e.concurrency = concurrency
		}
	}
}

// WithSuggester attaches "did you mean" suggestions to not-found errors.
func WithSuggester(s *suggest.Suggester) Option {
	return func(e *Engine) {
		e.suggester = s
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine over cat. A nil cfg uses the default ranking settings.
func NewEngine(cat *catalog.Catalog, cfg *config.RankingConfig, opts ...Option) *Engine {
	if cfg == nil {
		var c config.Config
		config.ApplyDefaults(&c)
		cfg = &c.Ranking
	}
	e := &Engine{
		catalog: cat,
		ranker: ranking.NewRanker(cat.Store(), &ranking.Config{
			Parallelism:   cfg.Parallelism,
			ShardMinItems: cfg.ShardMinItems,
		}),
		config:      cfg,
		concurrency: 3,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog returns the catalog the engine serves.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Recommend returns the topN catalog items most similar to title, best first. Unknown titles
// fail with an error matching catalog.ErrNotFound; topN <= 0 or a blank title fails with
// ranking.ErrInvalidArgument.
func (e *Engine) Recommend(ctx context.Context, title string, topN int) ([]*models.Item, error) {
	_, scored, err := e.rank(ctx, title, topN)
	if err != nil {
		return nil, err
	}
	items := make([]*models.Item, len(scored))
	for i, s := range scored {
		if items[i], err = e.catalog.Item(s.Position); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// Handle serves a full recommendation query: defaults and limits for top_n, ranking, and
// optional metadata enrichment. Enrichment failures are reported per result and never fail
// the request.
func (e *Engine) Handle(ctx context.Context, q *models.RecommendQuery) (*models.RecommendResponse, error) {
	start := time.Now()
	topN := e.config.DefaultTopN
	if q.TopN != nil {
		topN = *q.TopN
	}
	if e.config.MaxTopN > 0 && topN > e.config.MaxTopN {
		return nil, fmt.Errorf("%w: top_n %d exceeds maximum %d", ranking.ErrInvalidArgument, topN, e.config.MaxTopN)
	}

	position, scored, err := e.rank(ctx, q.Title, topN)
	if err != nil {
		return nil, err
	}
	resolved, err := e.catalog.Item(position)
	if err != nil {
		return nil, err
	}

	results := make([]*models.Recommendation, len(scored))
	for i, s := range scored {
		item, err := e.catalog.Item(s.Position)
		if err != nil {
			return nil, err
		}
		results[i] = &models.Recommendation{
			Rank:     i + 1,
			Position: s.Position,
			Score:    s.Score,
			Item:     item,
		}
	}

	if e.shouldEnrich(q.Enrich) {
		e.enrich(ctx, results)
	}

	e.logger.Debug("Recommendation served",
		zap.String("title", q.Title),
		zap.Int("position", position),
		zap.Int("top_n", topN),
		zap.Int("results", len(results)),
	)

	return &models.RecommendResponse{
		Query:     q.Title,
		Resolved:  resolved.Name,
		Position:  position,
		TopN:      topN,
		Results:   results,
		QueryTime: time.Since(start).Milliseconds(),
	}, nil
}

// Suggest returns catalog titles close to query. It returns nothing when no suggester is configured.
func (e *Engine) Suggest(ctx context.Context, query string, limit int) ([]suggest.Suggestion, error) {
	if e.suggester == nil {
		return []suggest.Suggestion{}, nil
	}
	out, err := e.suggester.Suggest(ctx, query, limit)
	if out == nil {
		out = []suggest.Suggestion{}
	}
	return out, err
}

// Complete returns catalog titles starting with prefix.
func (e *Engine) Complete(ctx context.Context, prefix string, limit int) ([]suggest.Suggestion, error) {
	if e.suggester == nil {
		return []suggest.Suggestion{}, nil
	}
	out, err := e.suggester.Complete(ctx, prefix, limit)
	if out == nil {
		out = []suggest.Suggestion{}
	}
	return out, err
}

func (e *Engine) rank(ctx context.Context, title string, topN int) (int, []ranking.Scored, error) {
	if strings.TrimSpace(title) == "" {
		return 0, nil, fmt.Errorf("%w: title is empty", ranking.ErrInvalidArgument)
	}
	if topN <= 0 {
		return 0, nil, fmt.Errorf("%w: top_n must be positive, got %d", ranking.ErrInvalidArgument, topN)
	}
	position, err := e.catalog.Resolve(title)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return 0, nil, e.notFound(ctx, title, err)
		}
		return 0, nil, err
	}
	scored, err := e.ranker.TopN(position, topN)
	if err != nil {
		return 0, nil, err
	}
	return position, scored, nil
}

func (e *Engine) notFound(ctx context.Context, title string, err error) error {
	nf := &NotFoundError{Title: title, err: err}
	if e.suggester == nil {
		return nf
	}
	suggestions, serr := e.suggester.Suggest(ctx, title, 0)
	if serr != nil {
		e.logger.Warn("Title suggestions failed", zap.String("title", title), zap.Error(serr))
		return nf
	}
	nf.Suggestions = suggestions
	return nf
}

func (e *Engine) shouldEnrich(requested *bool) bool {
	if requested != nil {
		return *requested
	}
	return e.media != nil && e.media.Enabled()
}

func (e *Engine) enrich(ctx context.Context, results []*models.Recommendation) {
	if e.media == nil {
		for _, r := range results {
			r.Media = &models.MediaInfo{Status: models.MediaDisabled}
		}
		return
	}
	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for _, r := range results {
		r := r
		g.Go(func() error {
			r.Media = e.media.Fetch(ctx, r.Item.Name)
			if r.Media.Status == models.MediaUnavailable {
				e.logger.Warn("Metadata fetch failed", zap.String("name", r.Item.Name), zap.String("error", r.Media.Error))
			}
			return nil
		})
	}
	_ = g.Wait()
}
