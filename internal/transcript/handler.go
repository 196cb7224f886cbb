package transcript

import (
	"errors"
	"net/http"

	"github.com/rosaine-academy/backend/internal/api"
)

// Handler provides HTTP handlers for transcript endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Get returns the transcript for a YouTube video.
// GET /api/v1/transcript?video_id=XYZ&format_for_mathjax=true
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	videoID := r.URL.Query().Get("video_id")
	if videoID == "" {
		api.HandleError(w, api.NewValidationError("video_id is required"))
		return
	}
	mathjax := r.URL.Query().Get("format_for_mathjax") != "false"

	t, err := h.svc.Get(r.Context(), videoID, mathjax)
	if err != nil {
		if errors.Is(err, ErrNoTranscript) {
			api.HandleError(w, api.ErrNotFound)
			return
		}
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONRaw(w, http.StatusOK, t)
}
