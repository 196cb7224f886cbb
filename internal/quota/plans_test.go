package quota

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubPlanStore struct {
	docs map[string]Limits
	err  error
}

func (s *stubPlanStore) PlanLimits(_ context.Context, plan string) (Limits, error) {
	if s.err != nil {
		return nil, s.err
	}
	doc, ok := s.docs[plan]
	if !ok {
		return nil, ErrPlanNotFound
	}
	return doc, nil
}

func TestResolve_ConfiguredPlan(t *testing.T) {
	r := NewResolver(&stubPlanStore{docs: map[string]Limits{
		PlanEleve: {ServiceExoAssistant: 100, ServiceVideoAssistant: 50, ServiceImageUpload: 10},
	}})

	limits := r.Resolve(context.Background(), PlanEleve)
	assert.Equal(t, Limits{
		ServiceExoAssistant:   100,
		ServiceVideoAssistant: 50,
		ServiceImageUpload:    10,
	}, limits)
}

func TestResolve_MissingKeysDefaultToZero(t *testing.T) {
	r := NewResolver(&stubPlanStore{docs: map[string]Limits{
		PlanGratuit: {ServiceExoAssistant: 5},
	}})

	limits := r.Resolve(context.Background(), PlanGratuit)
	assert.Equal(t, 5, limits[ServiceExoAssistant])
	assert.Equal(t, 0, limits[ServiceVideoAssistant])
	assert.Equal(t, 0, limits[ServiceImageUpload])
}

func TestResolve_NegativeLimitsClamped(t *testing.T) {
	r := NewResolver(&stubPlanStore{docs: map[string]Limits{
		PlanGratuit: {ServiceExoAssistant: -3, ServiceVideoAssistant: 10},
	}})

	limits := r.Resolve(context.Background(), PlanGratuit)
	assert.Equal(t, 0, limits[ServiceExoAssistant])
	assert.Equal(t, 10, limits[ServiceVideoAssistant])
}

func TestResolve_UnconfiguredKnownPlanUsesFallback(t *testing.T) {
	r := NewResolver(&stubPlanStore{docs: map[string]Limits{}})

	limits := r.Resolve(context.Background(), PlanEleve)
	assert.Equal(t, Limits{
		ServiceExoAssistant:   150,
		ServiceVideoAssistant: 75,
		ServiceImageUpload:    20,
	}, limits)
}

func TestResolve_UnrecognizedPlanFallsBackToFreeTier(t *testing.T) {
	r := NewResolver(&stubPlanStore{docs: map[string]Limits{}})

	limits := r.Resolve(context.Background(), "platine")
	assert.Equal(t, Limits{
		ServiceExoAssistant:   5,
		ServiceVideoAssistant: 10,
		ServiceImageUpload:    0,
	}, limits)
}

func TestResolve_StoreErrorDeniesEverything(t *testing.T) {
	r := NewResolver(&stubPlanStore{err: errors.New("connection refused")})

	limits := r.Resolve(context.Background(), PlanFamille)
	assert.True(t, limits.AllZero())
	for _, svc := range Services() {
		_, ok := limits[svc]
		assert.True(t, ok, "missing canonical key %s", svc)
	}
}

func TestLimits_AllZero(t *testing.T) {
	assert.True(t, zeroLimits().AllZero())
	assert.False(t, fallbackLimits(PlanGratuit).AllZero())
}
