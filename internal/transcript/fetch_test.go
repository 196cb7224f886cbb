package transcript

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTimedText = `<?xml version="1.0" encoding="utf-8"?>
<transcript>
  <text start="0.16" dur="3.439">bonjour &amp; bienvenue</text>
  <text start="3.6" dur="2.88">le module de z</text>
</transcript>`

func newTestFetcher(handler http.HandlerFunc) (*Fetcher, *httptest.Server) {
	srv := httptest.NewServer(handler)
	f := NewFetcher()
	f.baseURL = srv.URL
	return f, srv
}

func TestFetch_ParsesTimedText(t *testing.T) {
	f, srv := newTestFetcher(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "vid123", r.URL.Query().Get("v"))
		w.Write([]byte(sampleTimedText))
	})
	defer srv.Close()

	tr, err := f.Fetch(context.Background(), "vid123")
	require.NoError(t, err)

	assert.Equal(t, "vid123", tr.VideoID)
	assert.Equal(t, "fr", tr.Language)
	require.Len(t, tr.Segments, 2)
	assert.Equal(t, Segment{Start: 0.16, Duration: 3.44, Text: "bonjour & bienvenue"}, tr.Segments[0])
	assert.Equal(t, 2, tr.TotalSegments)
	assert.Equal(t, 6.32, tr.EstimatedDurationSec)
}

func TestFetch_FallsBackToNextLanguage(t *testing.T) {
	f, srv := newTestFetcher(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("lang") == "fr" {
			// YouTube answers 200 with an empty body for missing tracks.
			return
		}
		w.Write([]byte(sampleTimedText))
	})
	defer srv.Close()

	tr, err := f.Fetch(context.Background(), "vid123")
	require.NoError(t, err)
	assert.Equal(t, "en", tr.Language)
}

func TestFetch_NoTrackInAnyLanguage(t *testing.T) {
	f, srv := newTestFetcher(func(w http.ResponseWriter, r *http.Request) {})
	defer srv.Close()

	_, err := f.Fetch(context.Background(), "vid123")
	assert.ErrorIs(t, err, ErrNoTranscript)
}

func TestFetch_ServerError(t *testing.T) {
	f, srv := newTestFetcher(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer srv.Close()

	_, err := f.Fetch(context.Background(), "vid123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoTranscript)
}
