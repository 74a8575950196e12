package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"jobsignal-engine/internal/domain"
)

const observedCols = `id, lifecycle_id, source, external_id, employer, metro, metro_conf,
raw_title, role, role_conf, seniority, seniority_conf, salary_min, salary_max, openings,
status, first_seen, last_seen, fingerprint, duplicate_of, needs_review, confidence, as_of`

func scanObserved(row interface{ Scan(dest ...any) error }) (domain.ObservedJob, error) {
	var (
		j           domain.ObservedJob
		lifecycleID sql.NullInt64
		role        sql.NullString
		seniority   sql.NullString
		salaryMin   sql.NullFloat64
		salaryMax   sql.NullFloat64
		status      string
		firstSeen   string
		lastSeen    string
		duplicateOf sql.NullInt64
		needsReview int
		asOf        string
	)
	if err := row.Scan(&j.ID, &lifecycleID, &j.Source, &j.ExternalID, &j.Employer, &j.Metro, &j.MetroConf,
		&j.RawTitle, &role, &j.RoleConf, &seniority, &j.SeniorityConf, &salaryMin, &salaryMax, &j.Openings,
		&status, &firstSeen, &lastSeen, &j.Fingerprint, &duplicateOf, &needsReview, &j.Confidence, &asOf); err != nil {
		return domain.ObservedJob{}, err
	}
	if lifecycleID.Valid {
		v := lifecycleID.Int64
		j.LifecycleID = &v
	}
	if role.Valid {
		v := role.String
		j.Role = &v
	}
	if seniority.Valid {
		v := domain.SeniorityBand(seniority.String)
		j.Seniority = &v
	}
	if salaryMin.Valid {
		v := salaryMin.Float64
		j.SalaryMin = &v
	}
	if salaryMax.Valid {
		v := salaryMax.Float64
		j.SalaryMax = &v
	}
	if duplicateOf.Valid {
		v := duplicateOf.Int64
		j.DuplicateOf = &v
	}
	j.Status = domain.PostingStatus(status)
	j.FirstSeen = parseTime(firstSeen)
	j.LastSeen = parseTime(lastSeen)
	j.NeedsReview = needsReview != 0
	j.AsOf = parseTime(asOf)
	return j, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// InsertObserved persists a new sighting-lineage row and returns its id.
func InsertObserved(ctx context.Context, q Querier, j domain.ObservedJob) (int64, error) {
	var rolePtr, seniorityPtr any
	if j.Role != nil {
		rolePtr = *j.Role
	}
	if j.Seniority != nil {
		seniorityPtr = string(*j.Seniority)
	}
	var lifecycleID any
	if j.LifecycleID != nil {
		lifecycleID = *j.LifecycleID
	}
	var salaryMin, salaryMax any
	if j.SalaryMin != nil {
		salaryMin = *j.SalaryMin
	}
	if j.SalaryMax != nil {
		salaryMax = *j.SalaryMax
	}

	res, err := q.ExecContext(ctx, `
INSERT INTO observed_jobs (lifecycle_id, source, external_id, employer, metro, metro_conf,
  raw_title, role, role_conf, seniority, seniority_conf, salary_min, salary_max, openings,
  status, first_seen, last_seen, fingerprint, needs_review, confidence, as_of)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		lifecycleID, j.Source, j.ExternalID, j.Employer, j.Metro, j.MetroConf,
		j.RawTitle, rolePtr, j.RoleConf, seniorityPtr, j.SeniorityConf, salaryMin, salaryMax, j.Openings,
		string(j.Status), fmtTime(j.FirstSeen), fmtTime(j.LastSeen), j.Fingerprint,
		boolToInt(j.NeedsReview), j.Confidence, fmtTime(j.AsOf))
	if err != nil {
		return 0, fmt.Errorf("insert observed job: %w", err)
	}
	return res.LastInsertId()
}

// GetObservedByIdentity returns the row for an id-bearing posting, or nil.
// Rows without an external id are never looked up this way.
func GetObservedByIdentity(ctx context.Context, q Querier, source, externalID string) (*domain.ObservedJob, error) {
	row := q.QueryRowContext(ctx, `
SELECT `+observedCols+`
FROM observed_jobs
WHERE source = ? AND external_id = ? AND external_id != '';`, source, externalID)

	j, err := scanObserved(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get observed job: %w", err)
	}
	return &j, nil
}

// RefreshObservedSighting updates the mutable sighting fields of an existing
// row: last_seen moves forward, as_of tracks the newest payload, and salary
// bounds are backfilled only where the stored value is NULL.
func RefreshObservedSighting(ctx context.Context, q Querier, id int64, lastSeen, asOf time.Time,
	salaryMin, salaryMax *float64) error {
	var minArg, maxArg any
	if salaryMin != nil {
		minArg = *salaryMin
	}
	if salaryMax != nil {
		maxArg = *salaryMax
	}
	if _, err := q.ExecContext(ctx, `
UPDATE observed_jobs
SET last_seen = ?, as_of = ?,
    salary_min = COALESCE(salary_min, ?),
    salary_max = COALESCE(salary_max, ?)
WHERE id = ?;`, fmtTime(lastSeen), fmtTime(asOf), minArg, maxArg, id); err != nil {
		return fmt.Errorf("refresh observed job: %w", err)
	}
	return nil
}

// CloseObservedByLifecycle flips the observed rows of a closed lifecycle.
func CloseObservedByLifecycle(ctx context.Context, q Querier, lifecycleID int64) error {
	if _, err := q.ExecContext(ctx, `
UPDATE observed_jobs SET status = 'closed' WHERE lifecycle_id = ?;`, lifecycleID); err != nil {
		return fmt.Errorf("close observed jobs: %w", err)
	}
	return nil
}

// ListObservedByEmployer returns every row for one employer ordered by
// (first_seen, id), the canonical-election order used by deduplication.
func ListObservedByEmployer(ctx context.Context, q Querier, employer string) ([]domain.ObservedJob, error) {
	rows, err := q.QueryContext(ctx, `
SELECT `+observedCols+`
FROM observed_jobs
WHERE employer = ?
ORDER BY first_seen, id;`, employer)
	if err != nil {
		return nil, fmt.Errorf("list observed by employer: %w", err)
	}
	defer rows.Close()

	var out []domain.ObservedJob
	for rows.Next() {
		j, err := scanObserved(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// ListEmployers returns the distinct employers present in observed_jobs.
func ListEmployers(ctx context.Context, q Querier) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
SELECT DISTINCT employer FROM observed_jobs ORDER BY employer;`)
	if err != nil {
		return nil, fmt.Errorf("list employers: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SetDuplicateOf annotates (or clears, with nil) the duplicate pointer.
// Annotation never deletes evidence.
func SetDuplicateOf(ctx context.Context, q Querier, id int64, duplicateOf *int64) error {
	var arg any
	if duplicateOf != nil {
		arg = *duplicateOf
	}
	if _, err := q.ExecContext(ctx, `
UPDATE observed_jobs SET duplicate_of = ? WHERE id = ?;`, arg, id); err != nil {
		return fmt.Errorf("set duplicate_of: %w", err)
	}
	return nil
}

// ListObservedEvidence returns the aggregation inputs for one archetype key:
// fully parsed, non-duplicate rows inside the evidence window.
func ListObservedEvidence(ctx context.Context, q Querier, employer, metro, role string,
	seniority domain.SeniorityBand, since time.Time) ([]domain.ObservedJob, error) {
	rows, err := q.QueryContext(ctx, `
SELECT `+observedCols+`
FROM observed_jobs
WHERE employer = ? AND metro = ? AND role = ? AND seniority = ?
  AND duplicate_of IS NULL
  AND as_of >= ?
ORDER BY id;`, employer, metro, role, string(seniority), fmtTime(since))
	if err != nil {
		return nil, fmt.Errorf("list observed evidence: %w", err)
	}
	defer rows.Close()

	var out []domain.ObservedJob
	for rows.Next() {
		j, err := scanObserved(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// ListObservedKeys returns the distinct fully-parsed archetype keys with
// evidence inside the window.
func ListObservedKeys(ctx context.Context, q Querier, since time.Time) ([]domain.ArchetypeKey, error) {
	rows, err := q.QueryContext(ctx, `
SELECT DISTINCT employer, metro, role, seniority
FROM observed_jobs
WHERE role IS NOT NULL AND seniority IS NOT NULL
  AND duplicate_of IS NULL
  AND as_of >= ?
ORDER BY employer, metro, role, seniority;`, fmtTime(since))
	if err != nil {
		return nil, fmt.Errorf("list observed keys: %w", err)
	}
	defer rows.Close()

	var out []domain.ArchetypeKey
	for rows.Next() {
		var k domain.ArchetypeKey
		var seniority string
		if err := rows.Scan(&k.Employer, &k.Metro, &k.Role, &seniority); err != nil {
			return nil, err
		}
		k.Seniority = domain.SeniorityBand(seniority)
		k.RecordType = domain.RecordObserved
		out = append(out, k)
	}
	return out, rows.Err()
}

// ObservedStats is the coverage snapshot for observed_jobs.
type ObservedStats struct {
	Total       int64
	Active      int64
	Duplicates  int64
	NeedsReview int64
}

func CountObserved(ctx context.Context, q Querier) (ObservedStats, error) {
	var s ObservedStats
	err := q.QueryRowContext(ctx, `
SELECT COUNT(*),
  COALESCE(SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END), 0),
  COALESCE(SUM(CASE WHEN duplicate_of IS NOT NULL THEN 1 ELSE 0 END), 0),
  COALESCE(SUM(needs_review), 0)
FROM observed_jobs;`).Scan(&s.Total, &s.Active, &s.Duplicates, &s.NeedsReview)
	if err != nil {
		return ObservedStats{}, fmt.Errorf("count observed jobs: %w", err)
	}
	return s, nil
}

// DistinctCounts reports evidence breadth. NULL roles do not count.
type DistinctCounts struct {
	Employers int64
	Metros    int64
	Roles     int64
}

func CountDistinctObserved(ctx context.Context, q Querier) (DistinctCounts, error) {
	var c DistinctCounts
	err := q.QueryRowContext(ctx, `
SELECT COUNT(DISTINCT employer), COUNT(DISTINCT metro), COUNT(DISTINCT role)
FROM observed_jobs;`).Scan(&c.Employers, &c.Metros, &c.Roles)
	if err != nil {
		return DistinctCounts{}, fmt.Errorf("count distinct observed: %w", err)
	}
	return c, nil
}
