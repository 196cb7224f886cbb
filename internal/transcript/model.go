package transcript

// Segment is one timed line of a video transcript. Start and Duration are
// seconds, rounded to two decimals.
type Segment struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
}

// Transcript is the full caption track of a video.
type Transcript struct {
	VideoID              string    `json:"video_id"`
	Language             string    `json:"language"`
	Segments             []Segment `json:"segments"`
	TotalSegments        int       `json:"total_segments"`
	EstimatedDurationSec float64   `json:"estimated_duration_sec"`
	MathJaxFormatted     bool      `json:"is_mathjax_formatted"`
}
