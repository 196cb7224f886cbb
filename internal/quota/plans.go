package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrPlanNotFound is returned by a PlanConfigStore when no configuration
// document exists for a plan. It is a normal condition, handled by fallbacks.
var ErrPlanNotFound = errors.New("plan config not found")

// PlanConfigStore reads externally managed plan configuration documents.
type PlanConfigStore interface {
	PlanLimits(ctx context.Context, plan string) (Limits, error)
}

// Resolver turns a plan name into per-service daily limits.
//
// Resolution order: the live configuration document, then a hardcoded
// fallback table when the document is absent, then all-zero limits when the
// store itself fails. The zero table denies every service, so a broken
// configuration store can never grant calls it cannot verify.
type Resolver struct {
	store PlanConfigStore
}

func NewResolver(store PlanConfigStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve never returns an error and never returns a map missing one of the
// canonical service keys.
func (r *Resolver) Resolve(ctx context.Context, plan string) Limits {
	doc, err := r.store.PlanLimits(ctx, plan)
	switch {
	case errors.Is(err, ErrPlanNotFound):
		slog.Warn("plan config missing, using fallback limits", "plan", plan)
		return fallbackLimits(plan)
	case err != nil:
		slog.Error("reading plan config, denying all services", "plan", plan, "error", err)
		return zeroLimits()
	}
	return normalizeLimits(doc)
}

// ResolveKnown resolves limits for an explicit plan change. Unlike Resolve,
// which must hand *some* limits to the checker even for a record carrying a
// garbage plan name, a plan change refuses names that are neither configured
// nor one of the known plans.
func (r *Resolver) ResolveKnown(ctx context.Context, plan string) (Limits, error) {
	doc, err := r.store.PlanLimits(ctx, plan)
	switch {
	case errors.Is(err, ErrPlanNotFound):
		if !knownPlan(plan) {
			return nil, fmt.Errorf("%w: %q", ErrPlanNotFound, plan)
		}
		return fallbackLimits(plan), nil
	case err != nil:
		return nil, fmt.Errorf("reading plan config: %w", err)
	}
	return normalizeLimits(doc), nil
}

func knownPlan(plan string) bool {
	switch plan {
	case PlanGratuit, PlanEleve, PlanFamille:
		return true
	}
	return false
}

// fallbackLimits is the preset table used when a recognized plan has no
// configuration document. Unrecognized plan names get the free tier.
func fallbackLimits(plan string) Limits {
	switch plan {
	case PlanEleve:
		return Limits{
			ServiceExoAssistant:   150,
			ServiceVideoAssistant: 75,
			ServiceImageUpload:    20,
		}
	case PlanFamille:
		return Limits{
			ServiceExoAssistant:   200,
			ServiceVideoAssistant: 100,
			ServiceImageUpload:    30,
		}
	default:
		return Limits{
			ServiceExoAssistant:   5,
			ServiceVideoAssistant: 10,
			ServiceImageUpload:    0,
		}
	}
}

func zeroLimits() Limits {
	l := make(Limits, len(Services()))
	for _, svc := range Services() {
		l[svc] = 0
	}
	return l
}

// normalizeLimits projects a configuration document onto exactly the three
// canonical services, defaulting missing keys to 0 and clamping negatives.
func normalizeLimits(doc Limits) Limits {
	l := make(Limits, len(Services()))
	for _, svc := range Services() {
		v := doc[svc]
		if v < 0 {
			v = 0
		}
		l[svc] = v
	}
	return l
}

// AllZero reports whether every service limit is zero, the signal used by
// plan updates to reject unrecognized plans.
func (l Limits) AllZero() bool {
	for _, v := range l {
		if v > 0 {
			return false
		}
	}
	return true
}
