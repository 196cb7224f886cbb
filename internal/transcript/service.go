package transcript

import (
	"context"

	"github.com/rosaine-academy/backend/internal/metrics"
)

// Service ties fetching, cleanup, MathJax formatting and caching together.
type Service struct {
	fetcher   *Fetcher
	formatter *MathFormatter
	cache     *Cache
}

// NewService creates a transcript Service. formatter and cache may be nil;
// the corresponding step is skipped.
func NewService(fetcher *Fetcher, formatter *MathFormatter, cache *Cache) *Service {
	return &Service{fetcher: fetcher, formatter: formatter, cache: cache}
}

// Get returns the cleaned transcript for a video, optionally rewritten into
// MathJax notation.
func (s *Service) Get(ctx context.Context, videoID string, mathjax bool) (*Transcript, error) {
	if cached := s.cache.Get(ctx, videoID, mathjax); cached != nil {
		metrics.TranscriptFetchesTotal.WithLabelValues("hit").Inc()
		return cached, nil
	}

	t, err := s.fetcher.Fetch(ctx, videoID)
	if err != nil {
		metrics.TranscriptFetchesTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.TranscriptFetchesTotal.WithLabelValues("miss").Inc()

	Clean(t.Segments)

	if mathjax && s.formatter != nil {
		t.Segments, t.MathJaxFormatted = s.formatter.Format(ctx, t.Segments)
	}

	s.cache.Set(ctx, t)
	return t, nil
}
