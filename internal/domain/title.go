package domain

// SeniorityBand is the fixed seniority taxonomy.
type SeniorityBand string

const (
	SeniorityIntern   SeniorityBand = "intern"
	SeniorityEntry    SeniorityBand = "entry"
	SeniorityMid      SeniorityBand = "mid"
	SenioritySenior   SeniorityBand = "senior"
	SeniorityLead     SeniorityBand = "lead"
	SeniorityManager  SeniorityBand = "manager"
	SeniorityDirector SeniorityBand = "director"
	SeniorityExec     SeniorityBand = "exec"
)

// ValidSeniority reports whether b is one of the fixed bands.
func ValidSeniority(b SeniorityBand) bool {
	switch b {
	case SeniorityIntern, SeniorityEntry, SeniorityMid, SenioritySenior,
		SeniorityLead, SeniorityManager, SeniorityDirector, SeniorityExec:
		return true
	}
	return false
}

// TitleParseResult is the canonicalizer output for one raw title. It is
// computed fresh per observation and folded into the observed row; it is
// never persisted on its own.
type TitleParseResult struct {
	Role                *string
	RoleConfidence      float64
	Seniority           *SeniorityBand
	SeniorityConfidence float64

	// Token lists are diagnostic metadata for review tooling. They never
	// influence confidence.
	LevelTokens    []string
	FunctionTokens []string
	DomainTokens   []string
}
