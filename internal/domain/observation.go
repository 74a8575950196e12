package domain

import "time"

// Observation is the only input shape the engine accepts from collaborators
// (scrapers, vendor connectors, filing importers). Everything is already
// normalized to plain text by the producer; the engine does no vendor payload
// parsing.
type Observation struct {
	Source         string    `json:"source" validate:"required"`
	ExternalID     string    `json:"external_id,omitempty"`
	RawEmployer    string    `json:"employer" validate:"required"`
	RawLocation    string    `json:"location,omitempty"`
	RawTitle       string    `json:"title"`
	RawDescription string    `json:"description,omitempty"`
	SalaryMin      *float64  `json:"salary_min,omitempty" validate:"omitempty,gte=0"`
	SalaryMax      *float64  `json:"salary_max,omitempty" validate:"omitempty,gte=0"`
	Openings       int       `json:"openings,omitempty" validate:"gte=0"` // 0 = unstated, counts as 1
	AsOf           time.Time `json:"as_of" validate:"required"`
	Confidence     float64   `json:"confidence" validate:"gte=0,lte=1"`
}

// MacroEvidence is an aggregate/statistical record (payroll data, visa
// filings, survey rows). It names the archetype key directly instead of a
// single posting and backs the "inferred" record type.
type MacroEvidence struct {
	ID         int64         `json:"id,omitempty"`
	Source     string        `json:"source" validate:"required"`
	Employer   string        `json:"employer" validate:"required"`
	Metro      string        `json:"metro" validate:"required"`
	Role       string        `json:"role" validate:"required"`
	Seniority  SeniorityBand `json:"seniority" validate:"required"`
	Headcount  float64       `json:"headcount" validate:"gt=0"`
	SalaryMin  *float64      `json:"salary_min,omitempty" validate:"omitempty,gte=0"`
	SalaryMax  *float64      `json:"salary_max,omitempty" validate:"omitempty,gte=0"`
	Confidence float64       `json:"confidence" validate:"gte=0,lte=1"`
	AsOf       time.Time     `json:"as_of" validate:"required"`
}
