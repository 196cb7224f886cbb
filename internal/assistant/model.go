package assistant

// TranscriptSegment is one timed caption line sent along with a video
// question.
type TranscriptSegment struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
}

// VideoRequest is the body of POST /api/v1/assistant/video. The transcript
// is optional; when present the prompt includes it in full with timestamps.
type VideoRequest struct {
	Question    string              `json:"question" validate:"required"`
	Grade       string              `json:"grade,omitempty"`
	Subject     string              `json:"subject,omitempty"`
	CourseTitle string              `json:"course_title,omitempty"`
	CourseLevel string              `json:"course_level,omitempty"`
	VideoTitle  string              `json:"video_title,omitempty"`
	VideoURL    string              `json:"video_url,omitempty"`
	CurrentTime *float64            `json:"current_time,omitempty"`
	Transcript  []TranscriptSegment `json:"transcript,omitempty"`
}

// Exercise carries the content of one exercise the student selected for the
// conversation. Order is the display number, never the storage ID.
type Exercise struct {
	Order         int      `json:"order"`
	Title         string   `json:"title"`
	Difficulty    string   `json:"difficulty,omitempty"`
	Tags          string   `json:"tags,omitempty"`
	Statement     string   `json:"statement,omitempty"`
	Solution      string   `json:"solution,omitempty"`
	Courses       []string `json:"courses,omitempty"`
	IsMultiCourse bool     `json:"is_multi_course,omitempty"`
}

// ExoRequest is the body of POST /api/v1/assistant/exo.
type ExoRequest struct {
	Question            string     `json:"question" validate:"required"`
	UserLevel           string     `json:"user_level,omitempty"`
	UserSubject         string     `json:"user_subject,omitempty"`
	MainExercise        *Exercise  `json:"main_exercise,omitempty"`
	ActiveExercises     []Exercise `json:"active_exercises,omitempty"`
	ConversationHistory string     `json:"conversation_history,omitempty"`
}
