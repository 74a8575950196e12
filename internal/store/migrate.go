package store

import "database/sql"

// Migrate brings the schema up to the current version. It runs inside one
// transaction and uses PRAGMA user_version as the version marker.
func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}

	if v >= 1 {
		return tx.Commit()
	}

	// ---- Schema v1: tables ----

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS sources (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE,
  tier TEXT NOT NULL,
  weight REAL NOT NULL
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS posting_lifecycles (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  source TEXT NOT NULL,
  external_id TEXT NOT NULL,
  first_seen TEXT NOT NULL,
  last_seen TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  disappeared_at TEXT,
  filled_probability REAL,
  closure_reason TEXT,
  duration_days INTEGER
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS observed_jobs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  lifecycle_id INTEGER,
  source TEXT NOT NULL,
  external_id TEXT NOT NULL DEFAULT '',
  employer TEXT NOT NULL,
  metro TEXT NOT NULL DEFAULT '',
  metro_conf REAL NOT NULL DEFAULT 0,
  raw_title TEXT NOT NULL,
  role TEXT,
  role_conf REAL NOT NULL DEFAULT 0,
  seniority TEXT,
  seniority_conf REAL NOT NULL DEFAULT 0,
  salary_min REAL,
  salary_max REAL,
  openings INTEGER NOT NULL DEFAULT 1,
  status TEXT NOT NULL DEFAULT 'active',
  first_seen TEXT NOT NULL,
  last_seen TEXT NOT NULL,
  fingerprint TEXT NOT NULL,
  duplicate_of INTEGER,
  needs_review INTEGER NOT NULL DEFAULT 0,
  confidence REAL NOT NULL DEFAULT 0,
  as_of TEXT NOT NULL
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS macro_evidence (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  source TEXT NOT NULL,
  employer TEXT NOT NULL,
  metro TEXT NOT NULL,
  role TEXT NOT NULL,
  seniority TEXT NOT NULL,
  headcount REAL NOT NULL,
  salary_min REAL,
  salary_max REAL,
  confidence REAL NOT NULL,
  as_of TEXT NOT NULL
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS archetypes (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  employer TEXT NOT NULL,
  metro TEXT NOT NULL,
  role TEXT NOT NULL,
  seniority TEXT NOT NULL,
  record_type TEXT NOT NULL,
  headcount_p10 REAL NOT NULL DEFAULT 0,
  headcount_p50 REAL NOT NULL DEFAULT 0,
  headcount_p90 REAL NOT NULL DEFAULT 0,
  salary_p25 REAL,
  salary_p50 REAL,
  salary_p75 REAL,
  salary_mean REAL,
  salary_stddev REAL,
  confidence REAL NOT NULL DEFAULT 0,
  observation_count INTEGER NOT NULL DEFAULT 0,
  evidence_start TEXT NOT NULL,
  evidence_end TEXT NOT NULL,
  top_sources TEXT NOT NULL DEFAULT '[]',
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS evidence_links (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  archetype_id INTEGER NOT NULL,
  evidence_type TEXT NOT NULL,
  evidence_id INTEGER NOT NULL,
  weight REAL NOT NULL,
  source TEXT NOT NULL,
  created_at TEXT NOT NULL
);
`); err != nil {
		return err
	}

	// ---- Schema v1: indexes ----

	if _, err := tx.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS idx_lifecycles_source_external
ON posting_lifecycles(source, external_id);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_lifecycles_status_last_seen
ON posting_lifecycles(status, last_seen);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS idx_observed_source_external
ON observed_jobs(source, external_id)
WHERE external_id != '';
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_observed_employer
ON observed_jobs(employer);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_observed_key
ON observed_jobs(employer, metro, role, seniority);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS idx_macro_natural_key
ON macro_evidence(source, employer, metro, role, seniority, as_of);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_macro_key
ON macro_evidence(employer, metro, role, seniority);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS idx_archetypes_key
ON archetypes(employer, metro, role, seniority, record_type);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS idx_evidence_links_natural_key
ON evidence_links(archetype_id, evidence_type, evidence_id);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_evidence_links_archetype
ON evidence_links(archetype_id);
`); err != nil {
		return err
	}

	// Mark schema v1
	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}

	return tx.Commit()
}
