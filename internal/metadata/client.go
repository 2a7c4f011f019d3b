// Package metadata fetches display metadata (poster, score, synopsis) for catalog items
// from a Jikan-compatible anime API.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/hyperjump/osusume/internal/models"
)

// ErrNoMatch is returned when the API has no record for a name.
var ErrNoMatch = errors.New("no matching record")

// Fetcher looks up metadata for a display name.
type Fetcher interface {
	Lookup(ctx context.Context, name string) (*models.MediaInfo, error)
}

// JikanClient queries GET {base}/anime?q=<name>&limit=1.
type JikanClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewJikanClient creates a client. requestsPerSecond <= 0 disables rate limiting.
// Timeouts come from the caller's context rather than http.Client.Timeout.
func NewJikanClient(baseURL string, requestsPerSecond float64, burst int) *JikanClient {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	return &JikanClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		limiter: rate.NewLimiter(limit, burst),
	}
}

type animeSearchResponse struct {
	Data []struct {
		Images struct {
			JPG struct {
				ImageURL *string `json:"image_url"`
			} `json:"jpg"`
		} `json:"images"`
		Score    *float64 `json:"score"`
		Synopsis *string  `json:"synopsis"`
	} `json:"data"`
}

// Lookup returns metadata for the best match of name. Missing fields stay nil.
func (c *JikanClient) Lookup(ctx context.Context, name string) (*models.MediaInfo, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	q := url.Values{}
	q.Set("q", name)
	q.Set("limit", "1")
	endpoint := c.baseURL + "/anime?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metadata request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("metadata request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result animeSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode metadata response: %w", err)
	}
	if len(result.Data) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoMatch, name)
	}

	first := result.Data[0]
	return &models.MediaInfo{
		Status:    models.MediaOK,
		PosterURL: nonEmpty(first.Images.JPG.ImageURL),
		Score:     first.Score,
		Synopsis:  nonEmpty(first.Synopsis),
	}, nil
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
