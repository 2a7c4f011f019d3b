package vector

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrOutOfRange is returned when a position is outside [0, Size()).
	ErrOutOfRange = errors.New("position out of range")
	// ErrDimensionMismatch is returned when vectors do not share one dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrInvalidVector is returned for empty vectors and for negative, NaN or infinite components.
	ErrInvalidVector = errors.New("invalid vector")
)

// Store is an immutable set of fixed-dimension vectors addressed by catalog position.
// All methods are safe for concurrent use because nothing mutates a Store after NewStore returns.
type Store struct {
	dimension int
	size      int
	data      []float32 // row-major, size*dimension
	norms     []float64
}

// NewStore copies vectors into a new Store. Every vector must have length dimension and
// only finite, non-negative components.
func NewStore(dimension int, vectors [][]float32) (*Store, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidVector, dimension)
	}
	data := make([]float32, 0, len(vectors)*dimension)
	for i, v := range vectors {
		if len(v) != dimension {
			return nil, fmt.Errorf("%w: position %d has %d components, expected %d", ErrDimensionMismatch, i, len(v), dimension)
		}
		data = append(data, v...)
	}
	return newStore(dimension, data)
}

// newStore takes ownership of data, which must hold a whole number of rows.
func newStore(dimension int, data []float32) (*Store, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidVector, dimension)
	}
	if len(data)%dimension != 0 {
		return nil, fmt.Errorf("%w: %d values do not fill rows of %d", ErrDimensionMismatch, len(data), dimension)
	}
	s := &Store{
		dimension: dimension,
		size:      len(data) / dimension,
		data:      data,
	}
	s.norms = make([]float64, s.size)
	for pos := 0; pos < s.size; pos++ {
		row := s.row(pos)
		for j, v := range row {
			f := float64(v)
			if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
				return nil, fmt.Errorf("%w: position %d component %d is %v", ErrInvalidVector, pos, j, v)
			}
		}
		s.norms[pos] = L2Norm(row)
	}
	return s, nil
}

// Dimension returns the shared vector dimension D.
func (s *Store) Dimension() int {
	return s.dimension
}

// Size returns the number of vectors N.
func (s *Store) Size() int {
	return s.size
}

// VectorAt returns a copy of the vector at position.
func (s *Store) VectorAt(position int) ([]float32, error) {
	if err := s.checkPosition(position); err != nil {
		return nil, err
	}
	out := make([]float32, s.dimension)
	copy(out, s.row(position))
	return out, nil
}

// Similarity returns the cosine similarity between the vectors at positions a and b.
func (s *Store) Similarity(a, b int) (float64, error) {
	if err := s.checkPosition(a); err != nil {
		return 0, err
	}
	if err := s.checkPosition(b); err != nil {
		return 0, err
	}
	return s.similarity(s.row(a), s.norms[a], b), nil
}

// Scan calls visit with the cosine similarity between position and every position in [lo, hi),
// in ascending position order. The query position itself is visited like any other.
func (s *Store) Scan(position, lo, hi int, visit func(pos int, score float64)) error {
	if err := s.checkPosition(position); err != nil {
		return err
	}
	if lo < 0 || hi > s.size || lo > hi {
		return fmt.Errorf("%w: scan range [%d, %d) with size %d", ErrOutOfRange, lo, hi, s.size)
	}
	query := s.row(position)
	queryNorm := s.norms[position]
	for pos := lo; pos < hi; pos++ {
		visit(pos, s.similarity(query, queryNorm, pos))
	}
	return nil
}

func (s *Store) similarity(query []float32, queryNorm float64, pos int) float64 {
	return cosine(InnerProduct(query, s.row(pos)), queryNorm, s.norms[pos])
}

func (s *Store) row(pos int) []float32 {
	start := pos * s.dimension
	return s.data[start : start+s.dimension : start+s.dimension]
}

func (s *Store) checkPosition(position int) error {
	if position < 0 || position >= s.size {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, position, s.size)
	}
	return nil
}
