package app

import (
	"fmt"
	"math"

	"github.com/reliqlabs/juodzekas/internal/state"
)

func addInt64AndU64Checked(base int64, delta uint64, field string) (int64, error) {
	if delta > uint64(math.MaxInt64) {
		return 0, fmt.Errorf("%s overflows int64", field)
	}
	d := int64(delta)
	if base > math.MaxInt64-d {
		return 0, fmt.Errorf("%s overflows int64", field)
	}
	return base + d, nil
}

// touch resets the liveness clock after any accepted message on the session.
func touch(g *state.GameSession, nowUnix int64) {
	g.LastActivity = nowUnix
}

// timedOut reports whether the session's liveness window has elapsed.
func timedOut(g *state.GameSession, cfg state.Config, nowUnix int64) (bool, error) {
	deadline, err := addInt64AndU64Checked(g.LastActivity, cfg.TimeoutSeconds, "timeout deadline")
	if err != nil {
		return false, err
	}
	return nowUnix > deadline, nil
}

// sweepable reports whether a resolved session has aged past retention.
func sweepable(g *state.GameSession, cfg state.Config, nowUnix int64) bool {
	if g.Status != state.GameResolved {
		return false
	}
	deadline, err := addInt64AndU64Checked(g.ResolvedAt, cfg.RetentionSeconds, "retention deadline")
	if err != nil {
		return false
	}
	return nowUnix >= deadline
}
