package httpapi

import (
	"time"

	"jobsignal-engine/internal/domain"
)

// archetypeDTO is the wire form of one archetype row.
type archetypeDTO struct {
	ID         int64  `json:"id"`
	Employer   string `json:"employer"`
	Metro      string `json:"metro"`
	Role       string `json:"role"`
	Seniority  string `json:"seniority"`
	RecordType string `json:"record_type"`

	HeadcountP10 float64 `json:"headcount_p10"`
	HeadcountP50 float64 `json:"headcount_p50"`
	HeadcountP90 float64 `json:"headcount_p90"`

	SalaryP25    *float64 `json:"salary_p25,omitempty"`
	SalaryP50    *float64 `json:"salary_p50,omitempty"`
	SalaryP75    *float64 `json:"salary_p75,omitempty"`
	SalaryMean   *float64 `json:"salary_mean,omitempty"`
	SalaryStddev *float64 `json:"salary_stddev,omitempty"`

	Confidence       float64   `json:"confidence"`
	ObservationCount int       `json:"observation_count"`
	EvidenceStart    time.Time `json:"evidence_start"`
	EvidenceEnd      time.Time `json:"evidence_end"`
	TopSources       []string  `json:"top_sources"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toArchetypeDTO(a domain.Archetype) archetypeDTO {
	top := a.TopSources
	if top == nil {
		top = []string{}
	}
	return archetypeDTO{
		ID:         a.ID,
		Employer:   a.Employer,
		Metro:      a.Metro,
		Role:       a.Role,
		Seniority:  string(a.Seniority),
		RecordType: string(a.RecordType),

		HeadcountP10: a.HeadcountP10,
		HeadcountP50: a.HeadcountP50,
		HeadcountP90: a.HeadcountP90,

		SalaryP25:    a.SalaryP25,
		SalaryP50:    a.SalaryP50,
		SalaryP75:    a.SalaryP75,
		SalaryMean:   a.SalaryMean,
		SalaryStddev: a.SalaryStddev,

		Confidence:       a.Confidence,
		ObservationCount: a.ObservationCount,
		EvidenceStart:    a.EvidenceStart,
		EvidenceEnd:      a.EvidenceEnd,
		TopSources:       top,
		UpdatedAt:        a.UpdatedAt,
	}
}

// coverageDTO summarizes how much of the job market the store has evidence
// for, per table and per record type.
type coverageDTO struct {
	Sources int `json:"sources"`

	Observed struct {
		Total       int64 `json:"total"`
		Active      int64 `json:"active"`
		Duplicates  int64 `json:"duplicates"`
		NeedsReview int64 `json:"needs_review"`
	} `json:"observed"`

	Distinct struct {
		Employers int64 `json:"employers"`
		Metros    int64 `json:"metros"`
		Roles     int64 `json:"roles"`
	} `json:"distinct"`

	Lifecycles struct {
		Active int64 `json:"active"`
		Closed int64 `json:"closed"`
	} `json:"lifecycles"`

	MacroRows int64 `json:"macro_rows"`

	Archetypes struct {
		Total    int64 `json:"total"`
		Observed int64 `json:"observed"`
		Inferred int64 `json:"inferred"`
		Links    int64 `json:"links"`
	} `json:"archetypes"`
}
