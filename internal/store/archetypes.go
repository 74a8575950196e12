package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"jobsignal-engine/internal/domain"
)

const archetypeCols = `id, employer, metro, role, seniority, record_type,
headcount_p10, headcount_p50, headcount_p90,
salary_p25, salary_p50, salary_p75, salary_mean, salary_stddev,
confidence, observation_count, evidence_start, evidence_end, top_sources,
created_at, updated_at`

func scanArchetype(row interface{ Scan(dest ...any) error }) (domain.Archetype, error) {
	var (
		a             domain.Archetype
		seniority     string
		recordType    string
		p25, p50, p75 sql.NullFloat64
		mean, stddev  sql.NullFloat64
		evStart       string
		evEnd         string
		topSources    string
		createdAt     string
		updatedAt     string
	)
	if err := row.Scan(&a.ID, &a.Employer, &a.Metro, &a.Role, &seniority, &recordType,
		&a.HeadcountP10, &a.HeadcountP50, &a.HeadcountP90,
		&p25, &p50, &p75, &mean, &stddev,
		&a.Confidence, &a.ObservationCount, &evStart, &evEnd, &topSources,
		&createdAt, &updatedAt); err != nil {
		return domain.Archetype{}, err
	}
	a.Seniority = domain.SeniorityBand(seniority)
	a.RecordType = domain.RecordType(recordType)
	for _, pair := range []struct {
		null sql.NullFloat64
		dst  **float64
	}{{p25, &a.SalaryP25}, {p50, &a.SalaryP50}, {p75, &a.SalaryP75}, {mean, &a.SalaryMean}, {stddev, &a.SalaryStddev}} {
		if pair.null.Valid {
			v := pair.null.Float64
			*pair.dst = &v
		}
	}
	a.EvidenceStart = parseTime(evStart)
	a.EvidenceEnd = parseTime(evEnd)
	_ = json.Unmarshal([]byte(topSources), &a.TopSources)
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return a, nil
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// UpsertArchetype writes the aggregate for one key and returns the row id.
// Re-running with identical inputs rewrites the same row in place; the
// unique key index keeps concurrent writers converging on one row.
func UpsertArchetype(ctx context.Context, q Querier, a domain.Archetype) (int64, error) {
	topSources, _ := json.Marshal(a.TopSources)
	if a.TopSources == nil {
		topSources = []byte(`[]`)
	}
	now := fmtTime(a.UpdatedAt)

	if _, err := q.ExecContext(ctx, `
INSERT INTO archetypes (employer, metro, role, seniority, record_type,
  headcount_p10, headcount_p50, headcount_p90,
  salary_p25, salary_p50, salary_p75, salary_mean, salary_stddev,
  confidence, observation_count, evidence_start, evidence_end, top_sources,
  created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(employer, metro, role, seniority, record_type) DO UPDATE SET
  headcount_p10 = excluded.headcount_p10,
  headcount_p50 = excluded.headcount_p50,
  headcount_p90 = excluded.headcount_p90,
  salary_p25 = excluded.salary_p25,
  salary_p50 = excluded.salary_p50,
  salary_p75 = excluded.salary_p75,
  salary_mean = excluded.salary_mean,
  salary_stddev = excluded.salary_stddev,
  confidence = excluded.confidence,
  observation_count = excluded.observation_count,
  evidence_start = excluded.evidence_start,
  evidence_end = excluded.evidence_end,
  top_sources = excluded.top_sources,
  updated_at = excluded.updated_at;`,
		a.Employer, a.Metro, a.Role, string(a.Seniority), string(a.RecordType),
		a.HeadcountP10, a.HeadcountP50, a.HeadcountP90,
		nullableFloat(a.SalaryP25), nullableFloat(a.SalaryP50), nullableFloat(a.SalaryP75),
		nullableFloat(a.SalaryMean), nullableFloat(a.SalaryStddev),
		a.Confidence, a.ObservationCount, fmtTime(a.EvidenceStart), fmtTime(a.EvidenceEnd), string(topSources),
		now, now); err != nil {
		return 0, fmt.Errorf("upsert archetype: %w", err)
	}

	var id int64
	if err := q.QueryRowContext(ctx, `
SELECT id FROM archetypes
WHERE employer = ? AND metro = ? AND role = ? AND seniority = ? AND record_type = ?;`,
		a.Employer, a.Metro, a.Role, string(a.Seniority), string(a.RecordType)).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert archetype id: %w", err)
	}
	return id, nil
}

// InsertEvidenceLinkIgnore appends one provenance link. Links already present
// (same archetype, evidence type, evidence row) are left untouched.
func InsertEvidenceLinkIgnore(ctx context.Context, q Querier, l domain.EvidenceLink) (added bool, err error) {
	// relies on unique index on (archetype_id, evidence_type, evidence_id)
	_, err = q.ExecContext(ctx, `
INSERT OR IGNORE INTO evidence_links (archetype_id, evidence_type, evidence_id, weight, source, created_at)
VALUES (?, ?, ?, ?, ?, ?);`,
		l.ArchetypeID, string(l.EvidenceType), l.EvidenceID, l.Weight, l.Source, fmtTime(l.CreatedAt))
	if err != nil {
		return false, fmt.Errorf("insert evidence link: %w", err)
	}

	var changes int
	if e := q.QueryRowContext(ctx, `SELECT changes();`).Scan(&changes); e == nil {
		return changes > 0, nil
	}
	return true, nil
}

// ListArchetypeOpts filters the archetype listing. Empty fields are skipped.
type ListArchetypeOpts struct {
	Employer   string
	Metro      string
	Role       string
	RecordType string
	Limit      int
}

func ListArchetypes(ctx context.Context, q Querier, opts ListArchetypeOpts) ([]domain.Archetype, error) {
	if opts.Limit <= 0 || opts.Limit > 2000 {
		opts.Limit = 500
	}

	where := " WHERE 1=1"
	args := []any{}
	if opts.Employer != "" {
		where += " AND employer = ?"
		args = append(args, opts.Employer)
	}
	if opts.Metro != "" {
		where += " AND metro = ?"
		args = append(args, opts.Metro)
	}
	if opts.Role != "" {
		where += " AND role = ?"
		args = append(args, opts.Role)
	}
	if opts.RecordType != "" {
		where += " AND record_type = ?"
		args = append(args, opts.RecordType)
	}
	args = append(args, opts.Limit)

	rows, err := q.QueryContext(ctx, `
SELECT `+archetypeCols+`
FROM archetypes`+where+`
ORDER BY employer, metro, role, seniority, record_type
LIMIT ?;`, args...)
	if err != nil {
		return nil, fmt.Errorf("list archetypes: %w", err)
	}
	defer rows.Close()

	var out []domain.Archetype
	for rows.Next() {
		a, err := scanArchetype(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListEvidenceLinks returns the provenance trail for one archetype.
func ListEvidenceLinks(ctx context.Context, q Querier, archetypeID int64) ([]domain.EvidenceLink, error) {
	rows, err := q.QueryContext(ctx, `
SELECT id, archetype_id, evidence_type, evidence_id, weight, source, created_at
FROM evidence_links
WHERE archetype_id = ?
ORDER BY id;`, archetypeID)
	if err != nil {
		return nil, fmt.Errorf("list evidence links: %w", err)
	}
	defer rows.Close()

	var out []domain.EvidenceLink
	for rows.Next() {
		var l domain.EvidenceLink
		var evidenceType, createdAt string
		if err := rows.Scan(&l.ID, &l.ArchetypeID, &evidenceType, &l.EvidenceID, &l.Weight, &l.Source, &createdAt); err != nil {
			return nil, err
		}
		l.EvidenceType = domain.EvidenceType(evidenceType)
		l.CreatedAt = parseTime(createdAt)
		out = append(out, l)
	}
	return out, rows.Err()
}

// ArchetypeStats is the coverage snapshot for archetypes.
type ArchetypeStats struct {
	Total    int64
	Observed int64
	Inferred int64
	Links    int64
}

func CountArchetypes(ctx context.Context, q Querier) (ArchetypeStats, error) {
	var s ArchetypeStats
	if err := q.QueryRowContext(ctx, `
SELECT COUNT(*),
  COALESCE(SUM(CASE WHEN record_type = 'observed' THEN 1 ELSE 0 END), 0),
  COALESCE(SUM(CASE WHEN record_type = 'inferred' THEN 1 ELSE 0 END), 0)
FROM archetypes;`).Scan(&s.Total, &s.Observed, &s.Inferred); err != nil {
		return ArchetypeStats{}, fmt.Errorf("count archetypes: %w", err)
	}
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM evidence_links;`).Scan(&s.Links); err != nil {
		return ArchetypeStats{}, fmt.Errorf("count evidence links: %w", err)
	}
	return s, nil
}
