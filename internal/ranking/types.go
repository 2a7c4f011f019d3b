// Package ranking selects the most similar catalog items for a query position.
package ranking

import "errors"

// ErrInvalidArgument is returned for requests such as n <= 0.
var ErrInvalidArgument = errors.New("invalid argument")

// Scored is a candidate position with its similarity to the query.
type Scored struct {
	Position int     `json:"position"`
	Score    float64 `json:"score"`
}

// Before reports whether a ranks ahead of b: higher score first, ties broken by ascending
// position. It is a strict total order over distinct positions.
func Before(a, b Scored) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Position < b.Position
}
