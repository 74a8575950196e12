package domain

import "time"

// ClosureReason is assigned when a lifecycle is closed by the sweep, bucketed
// by how long the posting stayed visible.
type ClosureReason string

const (
	ClosureLikelyFilled      ClosureReason = "likely_filled"
	ClosurePossiblyFilled    ClosureReason = "possibly_filled"
	ClosurePossiblyCancelled ClosureReason = "possibly_cancelled"
)

type PostingStatus string

const (
	StatusActive PostingStatus = "active"
	StatusClosed PostingStatus = "closed"
)

// PostingLifecycle tracks one posting identity (source, external id) across
// repeated sightings. first_seen is immutable once set; last_seen only moves
// forward; disappeared_at is set at most once, by the closure sweep.
type PostingLifecycle struct {
	ID                int64
	Source            string
	ExternalID        string
	FirstSeen         time.Time
	LastSeen          time.Time
	DisappearedAt     *time.Time
	FilledProbability *float64
	ClosureReason     *ClosureReason
	DurationDays      *int
}

// Closed reports whether the lifecycle reached its terminal state.
func (p PostingLifecycle) Closed() bool { return p.DisappearedAt != nil }

// ObservedJob is one persisted sighting-lineage. Rows from id-bearing sources
// reference a PostingLifecycle; rows from aggregate/no-id sources stand alone.
// DuplicateOf points at the earliest content-identical row for the employer
// and is never self-referential.
type ObservedJob struct {
	ID          int64
	LifecycleID *int64
	Source      string
	ExternalID  string
	Employer    string
	Metro       string
	MetroConf   float64
	RawTitle    string

	Role          *string
	RoleConf      float64
	Seniority     *SeniorityBand
	SeniorityConf float64

	SalaryMin *float64
	SalaryMax *float64
	Openings  int

	Status      PostingStatus
	FirstSeen   time.Time
	LastSeen    time.Time
	Fingerprint string
	DuplicateOf *int64
	NeedsReview bool
	Confidence  float64
	AsOf        time.Time
}
