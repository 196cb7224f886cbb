package quota

import "time"

// shouldResetAt reports whether daily counters are stale: true iff now falls
// on a strictly later UTC calendar day than lastReset. Zone-naive timestamps
// are treated as UTC. A lastReset in the future (clock skew) never resets.
func shouldResetAt(lastReset, now time.Time) bool {
	lastReset = lastReset.UTC()
	now = now.UTC()

	ly, lm, ld := lastReset.Date()
	ny, nm, nd := now.Date()

	last := time.Date(ly, lm, ld, 0, 0, 0, 0, time.UTC)
	cur := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return cur.After(last)
}
