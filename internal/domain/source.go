package domain

// Source is a registered data source. Immutable after registration; the
// engine looks sources up by name and never mutates them at runtime.
type Source struct {
	ID     int64
	Name   string
	Tier   string // A/B/C reliability tier
	Weight float64
}
