// Package models defines core data structures for catalog items, recommendation queries and results.
package models

// Item is one catalog row. Position is its 0-based catalog position, stable for the
// lifetime of a loaded catalog.
type Item struct {
	Position int                    `json:"position" db:"position"`
	Name     string                 `json:"name" db:"name"`
	Genre    string                 `json:"genre" db:"genre"`
	Metadata map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
}
