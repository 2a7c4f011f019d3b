// Package suggest offers "did you mean" and autocomplete lookups over catalog titles.
// Title resolution itself stays exact; this package is only consulted for hints.
package suggest

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/osusume/internal/catalog"
)

const nameField = "name"

// bleve rejects fuzzy queries above this edit distance.
const maxFuzziness = 2

// Suggestion is a catalog title close to a query.
type Suggestion struct {
	Title    string  `json:"title"`
	Position int     `json:"position"`
	Distance int     `json:"distance"`
	Score    float64 `json:"score"`
}

// Suggester holds an in-memory bleve index of catalog titles.
type Suggester struct {
	index          bleve.Index
	names          []string
	normalized     []string
	maxSuggestions int
	fuzziness      int
}

// Option configures a Suggester.
type Option func(*Suggester)

// WithMaxSuggestions sets the default number of suggestions returned.
func WithMaxSuggestions(n int) Option {
	return func(s *Suggester) {
		if n > 0 {
			s.maxSuggestions = n
		}
	}
}

// WithFuzziness sets the per-term edit distance used for fuzzy matching (1 or 2).
func WithFuzziness(d int) Option {
	return func(s *Suggester) {
		if d > 0 {
			s.fuzziness = min(d, maxFuzziness)
		}
	}
}

// New indexes names, where names[i] is the title at catalog position i. Blank names are skipped.
func New(names []string, opts ...Option) (*Suggester, error) {
	s := &Suggester{
		names:          names,
		normalized:     make([]string, len(names)),
		maxSuggestions: 5,
		fuzziness:      maxFuzziness,
	}
	for _, opt := range opts {
		opt(s)
	}

	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	nameMapping := bleve.NewTextFieldMapping()
	nameMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(nameField, nameMapping)
	im.DefaultMapping = docMapping

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create title index: %w", err)
	}

	batch := index.NewBatch()
	for pos, name := range names {
		s.normalized[pos] = catalog.Normalize(name)
		if s.normalized[pos] == "" {
			continue
		}
		if err := batch.Index(strconv.Itoa(pos), map[string]interface{}{nameField: name}); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("failed to index title %d: %w", pos, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("failed to index titles: %w", err)
	}
	s.index = index
	return s, nil
}

// Suggest returns up to limit titles that fuzzily match query, closest first: ascending
// Levenshtein distance between normalized titles, then descending bleve score, then
// ascending position. limit <= 0 uses the configured default.
func (s *Suggester) Suggest(ctx context.Context, query string, limit int) ([]Suggestion, error) {
	if limit <= 0 {
		limit = s.maxSuggestions
	}
	normalized := catalog.Normalize(query)
	terms := strings.Fields(normalized)
	if len(terms) == 0 {
		return nil, nil
	}

	queries := make([]blevequery.Query, 0, len(terms)+1)
	mq := bleve.NewMatchQuery(normalized)
	mq.SetField(nameField)
	queries = append(queries, mq)
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(s.fuzziness)
		fq.SetField(nameField)
		queries = append(queries, fq)
	}

	hits, err := s.search(ctx, bleve.NewDisjunctionQuery(queries...), max(limit*5, 50))
	if err != nil {
		return nil, err
	}
	for i := range hits {
		hits[i].Distance = LevenshteinDistance(normalized, s.normalized[hits[i].Position])
	}
	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Position < b.Position
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Complete returns up to limit titles whose words start with the words of prefix; the last
// word may be partial. Results are ordered by descending score, then ascending position.
func (s *Suggester) Complete(ctx context.Context, prefix string, limit int) ([]Suggestion, error) {
	if limit <= 0 {
		limit = s.maxSuggestions
	}
	terms := strings.Fields(catalog.Normalize(prefix))
	if len(terms) == 0 {
		return nil, nil
	}

	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms[:len(terms)-1] {
		mq := bleve.NewMatchQuery(term)
		mq.SetField(nameField)
		queries = append(queries, mq)
	}
	pq := bleve.NewPrefixQuery(terms[len(terms)-1])
	pq.SetField(nameField)
	queries = append(queries, pq)

	hits, err := s.search(ctx, bleve.NewConjunctionQuery(queries...), max(limit*5, 50))
	if err != nil {
		return nil, err
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Position < hits[j].Position
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Close releases the index.
func (s *Suggester) Close() error {
	return s.index.Close()
}

func (s *Suggester) search(ctx context.Context, q blevequery.Query, size int) ([]Suggestion, error) {
	req := bleve.NewSearchRequest(q)
	req.Size = size
	results, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("title search failed: %w", err)
	}
	out := make([]Suggestion, 0, len(results.Hits))
	for _, hit := range results.Hits {
		pos, err := strconv.Atoi(hit.ID)
		if err != nil || pos < 0 || pos >= len(s.names) {
			continue
		}
		out = append(out, Suggestion{Title: s.names[pos], Position: pos, Score: hit.Score})
	}
	return out, nil
}
