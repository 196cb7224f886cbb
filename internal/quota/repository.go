package quota

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrRecordNotFound is returned when no quota record exists for a user.
var ErrRecordNotFound = errors.New("quota record not found")

// Repository handles user_quotas PostgreSQL operations. Usage counters and
// cached limits are JSONB documents keyed by service name, mirroring the
// wire shape the quota endpoints expose.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get fetches a user's quota record. Returns ErrRecordNotFound when absent.
func (r *Repository) Get(ctx context.Context, userID string) (*Record, error) {
	var (
		rec        Record
		limitsJSON []byte
		usageJSON  []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, plan, daily_limits, usage_today, last_reset, created_at, updated_at
		 FROM user_quotas WHERE user_id = $1`, userID,
	).Scan(&rec.UserID, &rec.Plan, &limitsJSON, &usageJSON, &rec.LastReset, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching quota record: %w", err)
	}

	if err := json.Unmarshal(limitsJSON, &rec.DailyLimits); err != nil {
		return nil, fmt.Errorf("decoding daily_limits: %w", err)
	}
	if err := json.Unmarshal(usageJSON, &rec.UsageToday); err != nil {
		return nil, fmt.Errorf("decoding usage_today: %w", err)
	}
	return &rec, nil
}

// Create inserts a fresh record with zeroed usage. Concurrent creates for
// the same user collapse into one row via ON CONFLICT DO NOTHING.
func (r *Repository) Create(ctx context.Context, userID, plan string, limits Limits) error {
	limitsJSON, err := json.Marshal(limits)
	if err != nil {
		return fmt.Errorf("encoding daily_limits: %w", err)
	}
	usageJSON, err := json.Marshal(zeroUsage())
	if err != nil {
		return fmt.Errorf("encoding usage_today: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO user_quotas (user_id, plan, daily_limits, usage_today, last_reset, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NOW(), NOW(), NOW())
		 ON CONFLICT (user_id) DO NOTHING`,
		userID, plan, limitsJSON, usageJSON)
	if err != nil {
		return fmt.Errorf("creating quota record: %w", err)
	}
	return nil
}

// ResetDaily unconditionally zeroes the daily counters and stamps last_reset.
// The decision of *whether* to reset belongs to the service's reset policy;
// two concurrent resets are idempotent.
func (r *Repository) ResetDaily(ctx context.Context, userID string) error {
	usageJSON, err := json.Marshal(zeroUsage())
	if err != nil {
		return fmt.Errorf("encoding usage_today: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE user_quotas
		 SET usage_today = $2, last_reset = NOW(), updated_at = NOW()
		 WHERE user_id = $1`, userID, usageJSON)
	if err != nil {
		return fmt.Errorf("resetting daily quota: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Increment adds exactly 1 to the service's counter in a single UPDATE.
// The add happens inside Postgres, so concurrent increments for the same
// user never lose updates.
func (r *Repository) Increment(ctx context.Context, userID, service string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE user_quotas
		 SET usage_today = jsonb_set(
		         usage_today,
		         ARRAY[$2],
		         to_jsonb(COALESCE((usage_today->>$2)::int, 0) + 1),
		         true),
		     updated_at = NOW()
		 WHERE user_id = $1`, userID, service)
	if err != nil {
		return fmt.Errorf("incrementing quota: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// SetPlan persists a plan change together with the refreshed limits cache.
// Usage counters are deliberately untouched: a mid-day upgrade keeps what
// was already consumed and only changes the ceiling.
func (r *Repository) SetPlan(ctx context.Context, userID, plan string, limits Limits) error {
	limitsJSON, err := json.Marshal(limits)
	if err != nil {
		return fmt.Errorf("encoding daily_limits: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE user_quotas
		 SET plan = $2, daily_limits = $3, updated_at = NOW()
		 WHERE user_id = $1`, userID, plan, limitsJSON)
	if err != nil {
		return fmt.Errorf("updating plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func zeroUsage() map[string]int {
	usage := make(map[string]int, len(Services()))
	for _, svc := range Services() {
		usage[svc] = 0
	}
	return usage
}

// PlanRepository reads plan_configs documents. The documents are managed by
// the billing side; this subsystem only ever reads them.
type PlanRepository struct {
	pool *pgxpool.Pool
}

func NewPlanRepository(pool *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{pool: pool}
}

// PlanLimits implements PlanConfigStore.
func (r *PlanRepository) PlanLimits(ctx context.Context, plan string) (Limits, error) {
	var limitsJSON []byte
	err := r.pool.QueryRow(ctx,
		`SELECT limits FROM plan_configs WHERE plan = $1`, plan,
	).Scan(&limitsJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching plan config: %w", err)
	}

	var limits Limits
	if err := json.Unmarshal(limitsJSON, &limits); err != nil {
		return nil, fmt.Errorf("decoding plan config: %w", err)
	}
	return limits, nil
}
