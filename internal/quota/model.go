package quota

import "time"

// Metered service names. Anything outside this set resolves to a zero limit
// and is therefore always denied.
const (
	ServiceExoAssistant   = "exo_assistant"
	ServiceVideoAssistant = "video_assistant"
	ServiceImageUpload    = "image_upload"
)

// Plan names. A user record always carries one of these; unrecognized names
// fall back to the free tier when resolving limits.
const (
	PlanGratuit = "gratuit"
	PlanEleve   = "eleve"
	PlanFamille = "famille"
	PlanUnknown = "unknown"
)

// Services lists the canonical metered services in a stable order.
func Services() []string {
	return []string{ServiceExoAssistant, ServiceVideoAssistant, ServiceImageUpload}
}

// Limits maps service name to the daily call limit for a plan.
// A limit of 0 means the service is unavailable on that plan.
type Limits map[string]int

// Record is the per-user quota document stored in user_quotas.
// DailyLimits is a cache refreshed on creation and plan change; the checker
// always re-resolves limits live and never reads it.
type Record struct {
	UserID      string         `json:"user_id"`
	Plan        string         `json:"plan"`
	DailyLimits Limits         `json:"daily_limits"`
	UsageToday  map[string]int `json:"usage_today"`
	LastReset   time.Time      `json:"last_reset"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Status is the outcome of a quota check. It is always well-formed: storage
// failures surface as a deny-all status with Error set, never as a panic or
// an error return crossing the service boundary.
type Status struct {
	Allowed    bool    `json:"allowed"`
	Used       int     `json:"used"`
	Limit      int     `json:"limit"`
	Remaining  int     `json:"remaining"`
	Percentage float64 `json:"percentage"`
	Plan       string  `json:"plan"`
	Error      string  `json:"error,omitempty"`
}

// Level is the coarse usage tier surfaced to clients.
type Level string

const (
	LevelOK       Level = "ok"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
	LevelBlocked  Level = "blocked"
)

// WarningLevel maps a usage percentage to its alert tier.
func WarningLevel(percentage float64) Level {
	switch {
	case percentage < 60:
		return LevelOK
	case percentage < 90:
		return LevelWarning
	case percentage < 100:
		return LevelCritical
	default:
		return LevelBlocked
	}
}
