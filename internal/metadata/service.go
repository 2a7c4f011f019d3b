package metadata

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/hyperjump/osusume/internal/models"
)

// DefaultCacheSize is the number of names whose metadata is kept in memory.
const DefaultCacheSize = 1024

// Service wraps a Fetcher with caching, request collapsing and a per-call timeout.
// Fetch never fails: errors become a MediaInfo with status unavailable.
type Service struct {
	fetcher Fetcher
	enabled bool
	timeout time.Duration
	cache   *lru.Cache[string, *models.MediaInfo]
	group   singleflight.Group
	logger  *zap.Logger
}

// NewService creates a metadata service. A nil fetcher or enabled=false yields a service
// that reports every item as disabled.
func NewService(fetcher Fetcher, enabled bool, timeout time.Duration, cacheSize int, logger *zap.Logger) *Service {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, _ := lru.New[string, *models.MediaInfo](cacheSize)
	return &Service{
		fetcher: fetcher,
		enabled: enabled && fetcher != nil,
		timeout: timeout,
		cache:   cache,
		logger:  logger,
	}
}

// Enabled reports whether Fetch contacts the remote API.
func (s *Service) Enabled() bool {
	return s.enabled
}

// Fetch returns metadata for name. Only successful lookups are cached, so a transient
// failure is retried on the next request.
func (s *Service) Fetch(ctx context.Context, name string) *models.MediaInfo {
	if !s.enabled {
		return &models.MediaInfo{Status: models.MediaDisabled}
	}
	if info, ok := s.cache.Get(name); ok {
		return copyInfo(info)
	}

	v, err, _ := s.group.Do(name, func() (interface{}, error) {
		callCtx := ctx
		if s.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		info, err := s.fetcher.Lookup(callCtx, name)
		if err != nil {
			return nil, err
		}
		s.cache.Add(name, info)
		return info, nil
	})
	if err != nil {
		s.logger.Debug("Metadata unavailable", zap.String("name", name), zap.Error(err))
		return models.Unavailable(err)
	}
	return copyInfo(v.(*models.MediaInfo))
}

// copyInfo keeps callers from sharing the cached struct.
func copyInfo(info *models.MediaInfo) *models.MediaInfo {
	c := *info
	return &c
}
