// Package lifecycle maintains the open/closed state machine of posting
// identities: new on first sighting, seen on every later one, closed exactly
// once by the sweep.
package lifecycle

import (
	"context"
	"time"

	"jobsignal-engine/internal/store"
)

// Transition classifies the effect of one sighting.
type Transition int

const (
	// TransitionNew recorded a first sighting.
	TransitionNew Transition = iota
	// TransitionSeen refreshed a live lifecycle.
	TransitionSeen
	// TransitionTerminal hit a closed lifecycle; nothing was mutated.
	TransitionTerminal
)

func (t Transition) String() string {
	switch t {
	case TransitionNew:
		return "new"
	case TransitionSeen:
		return "seen"
	default:
		return "terminal"
	}
}

// Track applies one sighting of (source, externalID) at observedAt and
// returns the lifecycle row id. first_seen is written once and never again;
// last_seen only moves forward, so out-of-order sightings are harmless.
// Closed lifecycles are terminal and left untouched.
func Track(ctx context.Context, q store.Querier, source, externalID string, observedAt time.Time) (int64, Transition, error) {
	lc, err := store.GetLifecycle(ctx, q, source, externalID)
	if err != nil {
		return 0, TransitionTerminal, err
	}
	if lc == nil {
		id, err := store.InsertLifecycle(ctx, q, source, externalID, observedAt)
		if err != nil {
			return 0, TransitionTerminal, err
		}
		return id, TransitionNew, nil
	}
	if lc.Closed() {
		return lc.ID, TransitionTerminal, nil
	}
	if observedAt.After(lc.LastSeen) {
		if err := store.TouchLifecycle(ctx, q, lc.ID, observedAt); err != nil {
			return 0, TransitionTerminal, err
		}
	}
	return lc.ID, TransitionSeen, nil
}
