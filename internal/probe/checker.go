package probe

import (
	"context"
	"time"

	"github.com/stamns/modelwatch/internal/domain"
)

// Options carry the per-round tunables of a check. The chat toggle and the
// degraded threshold are snapshotted by the scheduler when a round starts so
// a mid-round settings change cannot tear a round.
type Options struct {
	ChatCheck         bool
	DegradedThreshold time.Duration
}

// Checker performs a single check of one target. Implementations must not
// panic and must absorb every failure mode into the returned result.
type Checker interface {
	Check(ctx context.Context, target domain.Target, opts Options) domain.ProbeResult
}
