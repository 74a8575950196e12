package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"jobsignal-engine/internal/domain"
)

const macroCols = `id, source, employer, metro, role, seniority, headcount,
salary_min, salary_max, confidence, as_of`

// InsertMacroIgnore inserts one macro evidence row. Re-delivery of the same
// row (same source, key, and as_of date) is a no-op.
func InsertMacroIgnore(ctx context.Context, q Querier, m domain.MacroEvidence) (added bool, err error) {
	var salaryMin, salaryMax any
	if m.SalaryMin != nil {
		salaryMin = *m.SalaryMin
	}
	if m.SalaryMax != nil {
		salaryMax = *m.SalaryMax
	}
	// relies on unique index on (source, employer, metro, role, seniority, as_of)
	_, err = q.ExecContext(ctx, `
INSERT OR IGNORE INTO macro_evidence (source, employer, metro, role, seniority, headcount, salary_min, salary_max, confidence, as_of)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		m.Source, m.Employer, m.Metro, m.Role, string(m.Seniority), m.Headcount,
		salaryMin, salaryMax, m.Confidence, fmtTime(m.AsOf))
	if err != nil {
		return false, fmt.Errorf("insert macro evidence: %w", err)
	}

	var changes int
	if e := q.QueryRowContext(ctx, `SELECT changes();`).Scan(&changes); e == nil {
		return changes > 0, nil
	}
	return true, nil
}

// ListMacroEvidence returns the inferred-side aggregation inputs for one key
// inside the evidence window.
func ListMacroEvidence(ctx context.Context, q Querier, employer, metro, role string,
	seniority domain.SeniorityBand, since time.Time) ([]domain.MacroEvidence, error) {
	rows, err := q.QueryContext(ctx, `
SELECT `+macroCols+`
FROM macro_evidence
WHERE employer = ? AND metro = ? AND role = ? AND seniority = ?
  AND as_of >= ?
ORDER BY id;`, employer, metro, role, string(seniority), fmtTime(since))
	if err != nil {
		return nil, fmt.Errorf("list macro evidence: %w", err)
	}
	defer rows.Close()

	var out []domain.MacroEvidence
	for rows.Next() {
		var (
			m         domain.MacroEvidence
			seniority string
			minNull   sql.NullFloat64
			maxNull   sql.NullFloat64
			asOf      string
		)
		if err := rows.Scan(&m.ID, &m.Source, &m.Employer, &m.Metro, &m.Role, &seniority,
			&m.Headcount, &minNull, &maxNull, &m.Confidence, &asOf); err != nil {
			return nil, err
		}
		if minNull.Valid {
			v := minNull.Float64
			m.SalaryMin = &v
		}
		if maxNull.Valid {
			v := maxNull.Float64
			m.SalaryMax = &v
		}
		m.Seniority = domain.SeniorityBand(seniority)
		m.AsOf = parseTime(asOf)
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListMacroKeys returns the distinct archetype keys with macro evidence
// inside the window.
func ListMacroKeys(ctx context.Context, q Querier, since time.Time) ([]domain.ArchetypeKey, error) {
	rows, err := q.QueryContext(ctx, `
SELECT DISTINCT employer, metro, role, seniority
FROM macro_evidence
WHERE as_of >= ?
ORDER BY employer, metro, role, seniority;`, fmtTime(since))
	if err != nil {
		return nil, fmt.Errorf("list macro keys: %w", err)
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
		k.RecordType = domain.RecordInferred
		out = append(out, k)
	}
	return out, rows.Err()
}

// CountMacro returns the number of macro evidence rows.
func CountMacro(ctx context.Context, q Querier) (int64, error) {
	var n int64
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM macro_evidence;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count macro evidence: %w", err)
	}
	return n, nil
}
