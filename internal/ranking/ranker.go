package ranking

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/osusume/internal/vector"
)

// Ranker finds the nearest neighbours of a catalog position by cosine similarity.
type Ranker struct {
	store  *vector.Store
	config *Config
}

// NewRanker creates a ranker over store. A nil config uses DefaultConfig.
func NewRanker(store *vector.Store, config *Config) *Ranker {
	if config == nil {
		config = DefaultConfig()
	} else {
		c := *config
		c.ApplyDefaults()
		config = &c
	}
	return &Ranker{store: store, config: config}
}

// TopN returns the min(n, N-1) positions most similar to position, best first. The query
// position never appears in the result. Equal scores are ordered by ascending position, so
// the output is deterministic for a given catalog.
func (r *Ranker) TopN(position, n int) ([]Scored, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: n must be positive, got %d", ErrInvalidArgument, n)
	}
	size := r.store.Size()
	if position < 0 || position >= size {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", vector.ErrOutOfRange, position, size)
	}
	if n > size-1 {
		n = size - 1
	}
	if n == 0 {
		return []Scored{}, nil
	}

	shards := r.config.shards(size)
	if shards == 1 {
		c := newCollector(n)
		if err := r.scan(c, position, 0, size); err != nil {
			return nil, err
		}
		return c.sorted(), nil
	}

	collectors := make([]*collector, shards)
	var g errgroup.Group
	for i := 0; i < shards; i++ {
		lo, hi := i*size/shards, (i+1)*size/shards
		c := newCollector(n)
		collectors[i] = c
		g.Go(func() error {
			return r.scan(c, position, lo, hi)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	candidates := make([]Scored, 0, shards*n)
	for _, c := range collectors {
		candidates = append(candidates, c.heap...)
	}
	return SelectTop(candidates, n), nil
}

func (r *Ranker) scan(c *collector, position, lo, hi int) error {
	return r.store.Scan(position, lo, hi, func(pos int, score float64) {
		if pos == position {
			return
		}
		c.offer(Scored{Position: pos, Score: score})
	})
}
