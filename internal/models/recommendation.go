package models

// RecommendQuery is a recommendation request. A nil TopN means the configured default.
type RecommendQuery struct {
	Title  string `json:"title"`
	TopN   *int   `json:"top_n,omitempty"`
	Enrich *bool  `json:"enrich,omitempty"` // nil means enrich when metadata is enabled
}

// Recommendation is a single ranked result.
type Recommendation struct {
	Rank     int        `json:"rank"`
	Position int        `json:"position"`
	Score    float64    `json:"score"`
	Item     *Item      `json:"item"`
	Media    *MediaInfo `json:"media,omitempty"`
}

// RecommendResponse is the response for a recommendation request.
type RecommendResponse struct {
	Query     string            `json:"query"`
	Resolved  string            `json:"resolved"` // display name of the matched item
	Position  int               `json:"position"`
	TopN      int               `json:"top_n"`
	Results   []*Recommendation `json:"results"`
	QueryTime int64             `json:"query_time_ms"`
}
