package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/rosaine-academy/backend/internal/metrics"
)

// ErrInvalidPlan is returned by UpdatePlan when the target plan resolves to
// all-zero limits, the signal of an unknown or misconfigured plan.
var ErrInvalidPlan = errors.New("invalid plan")

// Store is the persistence surface the service needs. *Repository is the
// production implementation.
type Store interface {
	Get(ctx context.Context, userID string) (*Record, error)
	Create(ctx context.Context, userID, plan string, limits Limits) error
	ResetDaily(ctx context.Context, userID string) error
	Increment(ctx context.Context, userID, service string) error
	SetPlan(ctx context.Context, userID, plan string, limits Limits) error
}

// Service orchestrates the quota record store, the reset policy and the plan
// limit resolver. It is the only entry point metered handlers talk to.
type Service struct {
	store    Store
	resolver *Resolver

	// now is replaceable in tests to pin the reset boundary.
	now func() time.Time
}

func NewService(store Store, resolver *Resolver) *Service {
	return &Service{
		store:    store,
		resolver: resolver,
		now:      time.Now,
	}
}

// Check answers "may this user make one more call to this service right now"
// and returns a usage snapshot. It never returns an error: storage failures
// degrade to a deny-all status so callers always have something to act on.
//
// The check is deliberately not transactional with the later Increment; two
// concurrent requests can both pass at used == limit-1. The gate is advisory
// under concurrency, the counter itself never drifts (see Increment).
func (s *Service) Check(ctx context.Context, userID, service string) Status {
	status, err := s.check(ctx, userID, service)
	if err != nil {
		slog.Error("quota check failed, denying",
			"user_id", userID, "service", service, "error", err)
		metrics.QuotaChecksTotal.WithLabelValues(service, "error").Inc()
		return denyAll(err)
	}

	result := "denied"
	if status.Allowed {
		result = "allowed"
	}
	metrics.QuotaChecksTotal.WithLabelValues(service, result).Inc()
	return status
}

func (s *Service) check(ctx context.Context, userID, service string) (Status, error) {
	rec, err := s.store.Get(ctx, userID)
	if errors.Is(err, ErrRecordNotFound) {
		slog.Info("no quota record, creating default", "user_id", userID)
		if err := s.CreateDefault(ctx, userID, PlanGratuit); err != nil {
			return Status{}, fmt.Errorf("creating default record: %w", err)
		}
		rec, err = s.store.Get(ctx, userID)
	}
	if err != nil {
		return Status{}, fmt.Errorf("fetching record: %w", err)
	}

	if shouldResetAt(rec.LastReset, s.now()) {
		slog.Info("daily quota reset", "user_id", userID, "last_reset", rec.LastReset)
		if err := s.store.ResetDaily(ctx, userID); err != nil {
			return Status{}, fmt.Errorf("resetting counters: %w", err)
		}
		rec, err = s.store.Get(ctx, userID)
		if err != nil {
			return Status{}, fmt.Errorf("refetching after reset: %w", err)
		}
	}

	// Always resolve live: the record's daily_limits cache may be stale
	// relative to the plan_configs documents.
	limits := s.resolver.Resolve(ctx, rec.Plan)

	limit := limits[service] // unknown service -> 0, always denied
	used := rec.UsageToday[service]
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}

	percentage := 100.0
	if limit > 0 {
		percentage = round1(float64(used) / float64(limit) * 100)
	}

	return Status{
		Allowed:    used < limit,
		Used:       used,
		Limit:      limit,
		Remaining:  remaining,
		Percentage: percentage,
		Plan:       rec.Plan,
	}, nil
}

// Increment records one more use of a service. It must only be called after
// the metered operation succeeded; a failed or cancelled LLM call costs the
// user nothing. Failures here are accounting drift, not request failures;
// callers log and move on.
func (s *Service) Increment(ctx context.Context, userID, service string) error {
	if err := s.store.Increment(ctx, userID, service); err != nil {
		return fmt.Errorf("incrementing %s for %s: %w", service, userID, err)
	}
	return nil
}

// UpdatePlan switches a user to a new plan and refreshes the limits cache.
// Usage already consumed today is preserved. A plan resolving to all-zero
// limits is rejected without touching the record.
func (s *Service) UpdatePlan(ctx context.Context, userID, newPlan string) error {
	limits, err := s.resolver.ResolveKnown(ctx, newPlan)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidPlan, err)
	}
	if limits.AllZero() {
		return fmt.Errorf("%w: %q resolves to zero limits", ErrInvalidPlan, newPlan)
	}
	if err := s.store.SetPlan(ctx, userID, newPlan, limits); err != nil {
		return fmt.Errorf("persisting plan change: %w", err)
	}
	slog.Info("plan updated", "user_id", userID, "plan", newPlan)
	return nil
}

// CreateDefault lazily provisions a quota record. Safe to race: creation is
// idempotent at the storage layer.
func (s *Service) CreateDefault(ctx context.Context, userID, plan string) error {
	if plan == "" {
		plan = PlanGratuit
	}
	limits := s.resolver.Resolve(ctx, plan)
	if err := s.store.Create(ctx, userID, plan, limits); err != nil {
		return fmt.Errorf("creating default quota: %w", err)
	}
	return nil
}

func denyAll(err error) Status {
	return Status{
		Allowed:    false,
		Used:       0,
		Limit:      0,
		Remaining:  0,
		Percentage: 100,
		Plan:       PlanUnknown,
		Error:      err.Error(),
	}
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
