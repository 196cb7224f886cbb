package assistant

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rosaine-academy/backend/internal/api"
	"github.com/rosaine-academy/backend/internal/auth"
	"github.com/rosaine-academy/backend/internal/events"
	"github.com/rosaine-academy/backend/internal/llm"
	"github.com/rosaine-academy/backend/internal/quota"
)

// maxImageBytes caps uploaded exercise photos.
const maxImageBytes = 8 << 20

// QuotaGate is the slice of the quota service the assistant needs.
type QuotaGate interface {
	Check(ctx context.Context, userID, service string) quota.Status
	Increment(ctx context.Context, userID, service string) error
}

// Handler provides HTTP handlers for the three metered assistants.
type Handler struct {
	quota     QuotaGate
	gen       llm.Generator
	publisher *events.Publisher
	validate  *validator.Validate
}

func NewHandler(quotaGate QuotaGate, gen llm.Generator, publisher *events.Publisher) *Handler {
	return &Handler{
		quota:     quotaGate,
		gen:       gen,
		publisher: publisher,
		validate:  validator.New(),
	}
}

type quotaSnapshot struct {
	Used         int         `json:"used"`
	Limit        int         `json:"limit"`
	Remaining    int         `json:"remaining"`
	Percentage   float64     `json:"percentage"`
	WarningLevel quota.Level `json:"warning_level"`
}

type answerResponse struct {
	Response  string        `json:"response"`
	Quota     quotaSnapshot `json:"quota"`
	Timestamp string        `json:"timestamp"`
}

type deniedResponse struct {
	Error      string        `json:"error"`
	Message    string        `json:"message"`
	Quota      quotaSnapshot `json:"quota"`
	UpgradeURL string        `json:"upgrade_url"`
	Plan       string        `json:"plan"`
}

// Video answers a question about a course video, with optional full
// transcript context.
func (h *Handler) Video(w http.ResponseWriter, r *http.Request) {
	var req VideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError("question is required"))
		return
	}

	h.answer(w, r, quota.ServiceVideoAssistant,
		"Vous avez atteint votre limite de questions vidéo pour aujourd'hui.",
		func(ctx context.Context) (string, error) {
			return h.gen.GenerateText(ctx, quota.ServiceVideoAssistant, buildVideoPrompt(req))
		})
}

// Exo answers a question about selected exercises without revealing
// solutions.
func (h *Handler) Exo(w http.ResponseWriter, r *http.Request) {
	var req ExoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError("question is required"))
		return
	}

	h.answer(w, r, quota.ServiceExoAssistant,
		"Vous avez atteint votre limite de questions pour aujourd'hui.",
		func(ctx context.Context) (string, error) {
			return h.gen.GenerateText(ctx, quota.ServiceExoAssistant, buildExoPrompt(req))
		})
}

// Image answers a question about an uploaded photo or screenshot.
// Multipart form: "image" file plus question/grade/subject/course_title
// fields.
func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid multipart form"))
		return
	}

	question := r.FormValue("question")
	if question == "" {
		api.HandleError(w, api.NewValidationError("question is required"))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		api.HandleError(w, api.NewValidationError("image file is required"))
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("reading image"))
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(image)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		api.HandleError(w, api.NewValidationError("file must be an image"))
		return
	}

	prompt := buildImagePrompt(question,
		r.FormValue("grade"), r.FormValue("subject"), r.FormValue("course_title"))

	h.answer(w, r, quota.ServiceImageUpload,
		"Vous avez atteint votre limite d'uploads d'images pour aujourd'hui.",
		func(ctx context.Context) (string, error) {
			return h.gen.GenerateWithImage(ctx, quota.ServiceImageUpload, prompt, mimeType, image)
		})
}

// answer runs the shared metered flow: quota check, generation, increment
// after a successful generation only, then the response with a post-call
// quota snapshot.
func (h *Handler) answer(w http.ResponseWriter, r *http.Request, service, deniedMessage string, generate func(context.Context) (string, error)) {
	ctx := r.Context()
	userID := auth.UserID(ctx)
	if userID == "" {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	status := h.quota.Check(ctx, userID, service)
	if !status.Allowed {
		h.publisher.PublishQuotaDenied(ctx, events.QuotaDeniedEvent{
			UserID:    userID,
			Service:   service,
			Plan:      status.Plan,
			Used:      status.Used,
			Limit:     status.Limit,
			Timestamp: time.Now().UTC(),
		})
		api.JSONRaw(w, http.StatusTooManyRequests, deniedResponse{
			Error:      "Quota quotidien dépassé",
			Message:    deniedMessage,
			Quota:      snapshot(status.Used, status.Limit, status.Percentage),
			UpgradeURL: "/pricing",
			Plan:       status.Plan,
		})
		return
	}

	answer, err := generate(ctx)
	if err != nil {
		slog.Error("generating answer", "service", service, "user_id", userID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	if err := h.quota.Increment(ctx, userID, service); err != nil {
		// The answer was produced; losing one increment is better than
		// failing the request.
		slog.Error("incrementing quota", "service", service, "user_id", userID, "error", err)
	}

	used := status.Used + 1
	h.publisher.PublishUsage(ctx, events.UsageEvent{
		UserID:    userID,
		Service:   service,
		Plan:      status.Plan,
		Used:      used,
		Limit:     status.Limit,
		Timestamp: time.Now().UTC(),
	})

	api.JSONRaw(w, http.StatusOK, answerResponse{
		Response:  answer,
		Quota:     snapshot(used, status.Limit, percentage(used, status.Limit)),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func snapshot(used, limit int, pct float64) quotaSnapshot {
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return quotaSnapshot{
		Used:         used,
		Limit:        limit,
		Remaining:    remaining,
		Percentage:   pct,
		WarningLevel: quota.WarningLevel(pct),
	}
}

func percentage(used, limit int) float64 {
	if limit <= 0 {
		return 100
	}
	return math.Round(float64(used)/float64(limit)*1000) / 10
}
