package metadata

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperjump/osusume/internal/models"
)

type fakeFetcher struct {
	calls atomic.Int32
	fn    func(ctx context.Context, name string) (*models.MediaInfo, error)
}

func (f *fakeFetcher) Lookup(ctx context.Context, name string) (*models.MediaInfo, error) {
	f.calls.Add(1)
	return f.fn(ctx, name)
}

func okInfo(synopsis string) *models.MediaInfo {
	return &models.MediaInfo{Status: models.MediaOK, Synopsis: &synopsis}
}

func TestService_disabled(t *testing.T) {
	f := &fakeFetcher{fn: func(context.Context, string) (*models.MediaInfo, error) { return okInfo("x"), nil }}
	s := NewService(f, false, time.Second, 0, nil)
	info := s.Fetch(context.Background(), "Naruto")
	if info.Status != models.MediaDisabled {
		t.Errorf("Status = %q, want disabled", info.Status)
	}
	if f.calls.Load() != 0 {
		t.Error("Expected no remote calls when disabled")
	}
	if NewService(nil, true, time.Second, 0, nil).Enabled() {
		t.Error("Expected nil fetcher to disable the service")
	}
}

func TestService_cachesSuccess(t *testing.T) {
	f := &fakeFetcher{fn: func(_ context.Context, name string) (*models.MediaInfo, error) { return okInfo(name), nil }}
	s := NewService(f, true, time.Second, 8, nil)

	first := s.Fetch(context.Background(), "Bleach")
	second := s.Fetch(context.Background(), "Bleach")
	if f.calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", f.calls.Load())
	}
	if first.Status != models.MediaOK || *second.Synopsis != "Bleach" {
		t.Errorf("unexpected results %+v %+v", first, second)
	}
	first.Status = models.MediaUnavailable
	if s.Fetch(context.Background(), "Bleach").Status != models.MediaOK {
		t.Error("Expected cached entry to be isolated from callers")
	}
}

func TestService_failureNotCached(t *testing.T) {
	f := &fakeFetcher{fn: func(context.Context, string) (*models.MediaInfo, error) {
		return nil, errors.New("connection refused")
	}}
	s := NewService(f, true, time.Second, 8, nil)

	for i := 0; i < 2; i++ {
		info := s.Fetch(context.Background(), "Nana")
		if info.Status != models.MediaUnavailable || info.Error == "" {
			t.Errorf("Fetch = %+v, want unavailable with error", info)
		}
		if info.PosterURL != nil || info.Score != nil || info.Synopsis != nil {
			t.Error("Expected nil fields on failure")
		}
	}
	if f.calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", f.calls.Load())
	}
}

func TestService_timeout(t *testing.T) {
	f := &fakeFetcher{fn: func(ctx context.Context, _ string) (*models.MediaInfo, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	s := NewService(f, true, 10*time.Millisecond, 8, nil)

	start := time.Now()
	info := s.Fetch(context.Background(), "Slow")
	if info.Status != models.MediaUnavailable {
		t.Errorf("Status = %q, want unavailable", info.Status)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("Expected the per-call timeout to bound Fetch")
	}
}
