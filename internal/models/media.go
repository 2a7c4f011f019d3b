package models

// MediaStatus says whether a metadata fetch ran and whether it succeeded.
type MediaStatus string

const (
	// MediaOK means the fetch succeeded. Individual fields may still be nil when the
	// remote record has no value for them.
	MediaOK MediaStatus = "ok"
	// MediaUnavailable means the fetch failed (network error, bad status, malformed body).
	MediaUnavailable MediaStatus = "unavailable"
	// MediaDisabled means metadata fetching is turned off.
	MediaDisabled MediaStatus = "disabled"
)

// MediaInfo is display metadata for an item fetched from the remote anime API.
type MediaInfo struct {
	Status    MediaStatus `json:"status"`
	PosterURL *string     `json:"poster_url"`
	Score     *float64    `json:"score"`
	Synopsis  *string     `json:"synopsis"`
	Error     string      `json:"error,omitempty"`
}

// Unavailable returns a MediaInfo recording a failed fetch.
func Unavailable(err error) *MediaInfo {
	m := &MediaInfo{Status: MediaUnavailable}
	if err != nil {
		m.Error = err.Error()
	}
	return m
}
