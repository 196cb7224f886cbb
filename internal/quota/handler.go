package quota

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rosaine-academy/backend/internal/api"
	"github.com/rosaine-academy/backend/internal/auth"
	"github.com/rosaine-academy/backend/internal/events"
)

// planChangePublisher is satisfied by *events.Publisher. A nil publisher
// drops plan change events.
type planChangePublisher interface {
	PublishPlanChanged(ctx context.Context, event events.PlanChangedEvent)
}

// Handler provides HTTP handlers for quota endpoints.
type Handler struct {
	svc       *Service
	publisher planChangePublisher
}

// NewHandler creates a new quota Handler.
func NewHandler(svc *Service, publisher planChangePublisher) *Handler {
	return &Handler{svc: svc, publisher: publisher}
}

// ServiceStatus is the per-service slice of a quota report.
type ServiceStatus struct {
	Used         int     `json:"used"`
	Limit        int     `json:"limit"`
	Remaining    int     `json:"remaining"`
	Percentage   float64 `json:"percentage"`
	WarningLevel Level   `json:"warning_level"`
}

// Report is the body of GET /api/v1/quota.
type Report struct {
	UserID    string                   `json:"user_id"`
	Plan      string                   `json:"plan"`
	Services  map[string]ServiceStatus `json:"services"`
	Timestamp string                   `json:"timestamp"`
}

// GetStatus returns the authenticated user's usage across all metered
// services.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	report := Report{
		UserID:    userID,
		Services:  make(map[string]ServiceStatus, len(Services())),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	for _, service := range Services() {
		status := h.svc.Check(r.Context(), userID, service)
		if status.Error != "" {
			api.HandleError(w, api.ErrInternalServer)
			return
		}
		report.Plan = status.Plan
		report.Services[service] = ServiceStatus{
			Used:         status.Used,
			Limit:        status.Limit,
			Remaining:    status.Remaining,
			Percentage:   status.Percentage,
			WarningLevel: WarningLevel(status.Percentage),
		}
	}

	api.JSONRaw(w, http.StatusOK, report)
}

type updatePlanRequest struct {
	Plan string `json:"plan"`
}

// UpdatePlan changes the authenticated user's plan.
func (h *Handler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req updatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid request body"))
		return
	}
	if req.Plan == "" {
		api.HandleError(w, api.NewValidationError("plan is required"))
		return
	}

	if err := h.svc.UpdatePlan(r.Context(), userID, req.Plan); err != nil {
		if errors.Is(err, ErrInvalidPlan) {
			api.HandleError(w, api.NewBadRequestError("unknown or unconfigured plan: "+req.Plan))
			return
		}
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	if h.publisher != nil {
		h.publisher.PublishPlanChanged(r.Context(), events.PlanChangedEvent{
			UserID:    userID,
			Plan:      req.Plan,
			Timestamp: time.Now().UTC(),
		})
	}

	api.JSONMessage(w, http.StatusOK, "plan updated")
}
