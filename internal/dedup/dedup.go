package dedup

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"jobsignal-engine/internal/metrics"
	"jobsignal-engine/internal/store"
)

// AnnotateResult reports one employer's annotation pass.
type AnnotateResult struct {
	Duplicates int // rows currently annotated as duplicates
	Changed    int // annotations written or corrected this pass
}

// AnnotateEmployer recomputes duplicate pointers for one employer. Rows are
// grouped by fingerprint; the earliest row per group (first_seen, then id) is
// canonical and all later members point at it. Pointers always reference a
// strictly earlier row, so chains and cycles cannot form. Re-running over
// unchanged data writes nothing.
func AnnotateEmployer(ctx context.Context, q store.Querier, employer string) (AnnotateResult, error) {
	var res AnnotateResult

	rows, err := store.ListObservedByEmployer(ctx, q, employer)
	if err != nil {
		return res, err
	}

	// Rows arrive ordered by (first_seen, id): the first of each fingerprint
	// group is its canonical original.
	canonical := make(map[string]int64, len(rows))
	for _, row := range rows {
		origID, seen := canonical[row.Fingerprint]
		if !seen {
			canonical[row.Fingerprint] = row.ID
			// A previous pass may have annotated this row before an earlier
			// sibling existed; it is canonical now, so clear it.
			if row.DuplicateOf != nil {
				if err := store.SetDuplicateOf(ctx, q, row.ID, nil); err != nil {
					return res, err
				}
				res.Changed++
			}
			continue
		}

		res.Duplicates++
		if row.DuplicateOf != nil && *row.DuplicateOf == origID {
			continue
		}
		if err := store.SetDuplicateOf(ctx, q, row.ID, &origID); err != nil {
			return res, err
		}
		res.Changed++
	}
	return res, nil
}

// Deduper runs the annotation pass over every employer in the store.
type Deduper struct {
	DB  *store.DB
	Log *zap.Logger
}

// Stats summarizes one full deduplication pass.
type Stats struct {
	RunID      string `json:"run_id"`
	Employers  int    `json:"employers"`
	Duplicates int    `json:"duplicates"`
	Changed    int    `json:"changed"`
	Errors     int    `json:"errors"`
}

// Run annotates all employers, one transaction each. A failing employer is
// counted and skipped.
func (d *Deduper) Run(ctx context.Context) (Stats, error) {
	stats := Stats{RunID: uuid.NewString()}
	log := d.Log.With(zap.String("run_id", stats.RunID))

	employers, err := store.ListEmployers(ctx, d.DB.Pool)
	if err != nil {
		return stats, err
	}
	stats.Employers = len(employers)

	for _, employer := range employers {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		var res AnnotateResult
		err := store.WithTx(ctx, d.DB.Pool, func(tx *sql.Tx) error {
			var err error
			res, err = AnnotateEmployer(ctx, tx, employer)
			return err
		})
		if err != nil {
			stats.Errors++
			log.Warn("annotation failed", zap.String("employer", employer), zap.Error(err))
			continue
		}
		stats.Duplicates += res.Duplicates
		stats.Changed += res.Changed
		if res.Changed > 0 {
			metrics.DuplicatesAnnotatedTotal.Add(float64(res.Changed))
			log.Debug("annotated employer",
				zap.String("employer", employer),
				zap.Int("duplicates", res.Duplicates),
				zap.Int("changed", res.Changed))
		}
	}

	log.Info("dedup complete",
		zap.Int("employers", stats.Employers),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("changed", stats.Changed),
		zap.Int("errors", stats.Errors))
	return stats, nil
}
