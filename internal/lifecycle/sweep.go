package lifecycle

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"jobsignal-engine/internal/domain"
	"jobsignal-engine/internal/metrics"
	"jobsignal-engine/internal/store"
)

// DefaultStalenessDays is how long a posting may go unsighted before the
// sweep treats it as gone.
const DefaultStalenessDays = 7

// Sweeper closes stale lifecycles and estimates fill probability from how
// long the posting stayed visible.
type Sweeper struct {
	DB            *store.DB
	Log           *zap.Logger
	StalenessDays int
	Now           func() time.Time // nil means time.Now
}

// SweepStats summarizes one sweep pass. A non-zero error count means some
// candidates were skipped, not that the pass failed.
type SweepStats struct {
	RunID      string `json:"run_id"`
	Candidates int    `json:"candidates"`
	Closed     int    `json:"closed"`
	Errors     int    `json:"errors"`
}

// closureFor buckets a posting's visible duration into a closure estimate.
// Short-lived postings were most likely filled; long-lived ones were more
// likely withdrawn.
func closureFor(durationDays int) (domain.ClosureReason, float64) {
	switch {
	case durationDays < 14:
		return domain.ClosureLikelyFilled, 0.7
	case durationDays < 30:
		return domain.ClosurePossiblyFilled, 0.5
	default:
		return domain.ClosurePossiblyCancelled, 0.3
	}
}

// Run executes one closure sweep. Already-closed rows are excluded by the
// candidate query, so re-running is naturally idempotent. A single
// candidate's failure is counted and skipped, never fatal to the pass.
func (s *Sweeper) Run(ctx context.Context) (SweepStats, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	staleness := s.StalenessDays
	if staleness <= 0 {
		staleness = DefaultStalenessDays
	}

	start := time.Now()
	stats := SweepStats{RunID: uuid.NewString()}
	log := s.Log.With(zap.String("run_id", stats.RunID))

	cutoff := now().AddDate(0, 0, -staleness)
	candidates, err := store.ListStaleActive(ctx, s.DB.Pool, cutoff)
	if err != nil {
		return stats, err
	}
	stats.Candidates = len(candidates)

	for _, lc := range candidates {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		durationDays := int(lc.LastSeen.Sub(lc.FirstSeen).Hours() / 24)
		reason, probability := closureFor(durationDays)

		err := store.WithTx(ctx, s.DB.Pool, func(tx *sql.Tx) error {
			// disappeared pins to the last confirmed sighting, not sweep time.
			if err := store.CloseLifecycle(ctx, tx, lc.ID, lc.LastSeen, reason, probability, durationDays); err != nil {
				return err
			}
			return store.CloseObservedByLifecycle(ctx, tx, lc.ID)
		})
		if err != nil {
			stats.Errors++
			log.Warn("close failed",
				zap.Int64("lifecycle_id", lc.ID),
				zap.String("source", lc.Source),
				zap.Error(err))
			continue
		}

		stats.Closed++
		metrics.LifecyclesClosedTotal.WithLabelValues(string(reason)).Inc()
		log.Debug("lifecycle closed",
			zap.Int64("lifecycle_id", lc.ID),
			zap.Int("duration_days", durationDays),
			zap.String("reason", string(reason)))
	}

	metrics.SweepDuration.Observe(time.Since(start).Seconds())
	log.Info("sweep complete",
		zap.Int("candidates", stats.Candidates),
		zap.Int("closed", stats.Closed),
		zap.Int("errors", stats.Errors))
	return stats, nil
}
