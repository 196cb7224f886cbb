package transcript

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"
)

// ErrNoTranscript is returned when the video has no caption track in any of
// the requested languages.
var ErrNoTranscript = errors.New("no transcript available")

const defaultTimedTextURL = "https://video.google.com/timedtext"

// Fetcher retrieves caption tracks from YouTube's timedtext endpoint.
type Fetcher struct {
	client    *http.Client
	baseURL   string
	languages []string
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: 15 * time.Second},
		baseURL:   defaultTimedTextURL,
		languages: []string{"fr", "en"},
	}
}

type timedText struct {
	XMLName xml.Name       `xml:"transcript"`
	Texts   []timedTextRow `xml:"text"`
}

type timedTextRow struct {
	Start    float64 `xml:"start,attr"`
	Duration float64 `xml:"dur,attr"`
	Body     string  `xml:",chardata"`
}

// Fetch returns the raw caption track for a video, trying each configured
// language in order.
func (f *Fetcher) Fetch(ctx context.Context, videoID string) (*Transcript, error) {
	for _, lang := range f.languages {
		t, err := f.fetchLanguage(ctx, videoID, lang)
		if err != nil {
			if errors.Is(err, ErrNoTranscript) {
				continue
			}
			return nil, err
		}
		return t, nil
	}
	return nil, ErrNoTranscript
}

func (f *Fetcher) fetchLanguage(ctx context.Context, videoID, lang string) (*Transcript, error) {
	q := url.Values{}
	q.Set("v", videoID)
	q.Set("lang", lang)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building timedtext request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching transcript: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoTranscript
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("timedtext returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading transcript body: %w", err)
	}
	// An empty body means no track exists for this language.
	if len(body) == 0 {
		return nil, ErrNoTranscript
	}

	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("parsing transcript xml: %w", err)
	}
	if len(tt.Texts) == 0 {
		return nil, ErrNoTranscript
	}

	t := &Transcript{
		VideoID:  videoID,
		Language: lang,
		Segments: make([]Segment, 0, len(tt.Texts)),
	}
	var total float64
	for _, row := range tt.Texts {
		t.Segments = append(t.Segments, Segment{
			Start:    round2(row.Start),
			Duration: round2(row.Duration),
			Text:     html.UnescapeString(row.Body),
		})
		total += row.Duration
	}
	t.TotalSegments = len(t.Segments)
	t.EstimatedDurationSec = round2(total)
	return t, nil
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
