package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"jobsignal-engine/internal/domain"
)

const lifecycleCols = `id, source, external_id, first_seen, last_seen,
disappeared_at, filled_probability, closure_reason, duration_days`

func scanLifecycle(row interface{ Scan(dest ...any) error }) (domain.PostingLifecycle, error) {
	var (
		lc           domain.PostingLifecycle
		firstSeen    string
		lastSeen     string
		disappeared  sql.NullString
		filledProb   sql.NullFloat64
		reason       sql.NullString
		durationDays sql.NullInt64
	)
	if err := row.Scan(&lc.ID, &lc.Source, &lc.ExternalID, &firstSeen, &lastSeen,
		&disappeared, &filledProb, &reason, &durationDays); err != nil {
		return domain.PostingLifecycle{}, err
	}
	lc.FirstSeen = parseTime(firstSeen)
	lc.LastSeen = parseTime(lastSeen)
	if disappeared.Valid {
		t := parseTime(disappeared.String)
		lc.DisappearedAt = &t
	}
	if filledProb.Valid {
		v := filledProb.Float64
		lc.FilledProbability = &v
	}
	if reason.Valid {
		r := domain.ClosureReason(reason.String)
		lc.ClosureReason = &r
	}
	if durationDays.Valid {
		d := int(durationDays.Int64)
		lc.DurationDays = &d
	}
	return lc, nil
}

// GetLifecycle returns the lifecycle for one posting identity, or nil when
// the identity has never been seen.
func GetLifecycle(ctx context.Context, q Querier, source, externalID string) (*domain.PostingLifecycle, error) {
	row := q.QueryRowContext(ctx, `
SELECT `+lifecycleCols+`
FROM posting_lifecycles
WHERE source = ? AND external_id = ?;`, source, externalID)

	lc, err := scanLifecycle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lifecycle: %w", err)
	}
	return &lc, nil
}

// InsertLifecycle records the first sighting of a posting identity.
func InsertLifecycle(ctx context.Context, q Querier, source, externalID string, seen time.Time) (int64, error) {
	res, err := q.ExecContext(ctx, `
INSERT INTO posting_lifecycles (source, external_id, first_seen, last_seen, status)
VALUES (?, ?, ?, ?, 'active');`,
		source, externalID, fmtTime(seen), fmtTime(seen))
	if err != nil {
		return 0, fmt.Errorf("insert lifecycle: %w", err)
	}
	return res.LastInsertId()
}

// TouchLifecycle advances last_seen. Callers enforce monotonicity by only
// calling with a timestamp later than the stored one.
func TouchLifecycle(ctx context.Context, q Querier, id int64, lastSeen time.Time) error {
	if _, err := q.ExecContext(ctx, `
UPDATE posting_lifecycles SET last_seen = ? WHERE id = ?;`, fmtTime(lastSeen), id); err != nil {
		return fmt.Errorf("touch lifecycle: %w", err)
	}
	return nil
}

// ListStaleActive returns active lifecycles whose last sighting is strictly
// before cutoff, ordered by id for stable sweep order.
func ListStaleActive(ctx context.Context, q Querier, cutoff time.Time) ([]domain.PostingLifecycle, error) {
	rows, err := q.QueryContext(ctx, `
SELECT `+lifecycleCols+`
FROM posting_lifecycles
WHERE status = 'active' AND last_seen < ?
ORDER BY id;`, fmtTime(cutoff))
	if err != nil {
		return nil, fmt.Errorf("list stale lifecycles: %w", err)
	}
	defer rows.Close()

	var out []domain.PostingLifecycle
	for rows.Next() {
		lc, err := scanLifecycle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, lc)
	}
	return out, rows.Err()
}

// CloseLifecycle moves a lifecycle to its terminal state. Closed rows never
// change again.
func CloseLifecycle(ctx context.Context, q Querier, id int64, disappearedAt time.Time,
	reason domain.ClosureReason, filledProbability float64, durationDays int) error {
	if _, err := q.ExecContext(ctx, `
UPDATE posting_lifecycles
SET status = 'closed', disappeared_at = ?, closure_reason = ?, filled_probability = ?, duration_days = ?
WHERE id = ? AND status = 'active';`,
		fmtTime(disappearedAt), string(reason), filledProbability, durationDays, id); err != nil {
		return fmt.Errorf("close lifecycle: %w", err)
	}
	return nil
}

// CountLifecycles returns (active, closed) totals.
func CountLifecycles(ctx context.Context, q Querier) (active, closed int64, err error) {
	err = q.QueryRowContext(ctx, `
SELECT
  COALESCE(SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END), 0),
  COALESCE(SUM(CASE WHEN status = 'closed' THEN 1 ELSE 0 END), 0)
FROM posting_lifecycles;`).Scan(&active, &closed)
	if err != nil {
		err = fmt.Errorf("count lifecycles: %w", err)
	}
	return active, closed, err
}
