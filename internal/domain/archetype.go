package domain

import "time"

// RecordType separates archetypes fused from direct posting evidence from
// ones backfilled out of macro/statistical records.
type RecordType string

const (
	RecordObserved RecordType = "observed"
	RecordInferred RecordType = "inferred"
)

type EvidenceType string

const (
	EvidenceObservedJob   EvidenceType = "observed_job"
	EvidenceMacroEvidence EvidenceType = "macro_evidence"
)

// ArchetypeKey is the aggregate identity. One archetype row exists per key;
// concurrent aggregator runs converge on it through the unique constraint.
type ArchetypeKey struct {
	Employer   string
	Metro      string
	Role       string
	Seniority  SeniorityBand
	RecordType RecordType
}

// Archetype is the confidence-weighted aggregate for one key: headcount and
// salary percentile statistics plus a provenance trail of evidence links.
type Archetype struct {
	ID int64
	ArchetypeKey

	HeadcountP10 float64
	HeadcountP50 float64
	HeadcountP90 float64

	SalaryP25    *float64
	SalaryP50    *float64
	SalaryP75    *float64
	SalaryMean   *float64
	SalaryStddev *float64

	Confidence       float64
	ObservationCount int
	EvidenceStart    time.Time
	EvidenceEnd      time.Time
	TopSources       []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EvidenceLink records one evidence row's contribution to an archetype.
// Links are append-only provenance; re-aggregation adds new ones and never
// removes old ones.
type EvidenceLink struct {
	ID           int64
	ArchetypeID  int64
	EvidenceType EvidenceType
	EvidenceID   int64
	Weight       float64
	Source       string
	CreatedAt    time.Time
}
