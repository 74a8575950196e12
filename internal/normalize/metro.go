package normalize

import (
	"sort"
	"strings"
)

// Confidence levels for metro assignment. Exact alias hits are near-certain;
// a raw location we had to pass through unmapped still groups rows but is a
// weak signal, and the aggregator discounts it.
const (
	metroConfAlias    = 0.95
	metroConfContains = 0.75
	metroConfFallback = 0.40
)

// metroAliases maps lowercased city/area spellings to canonical metro labels.
// The table is intentionally static data; deployments can extend it through
// config, never mutate it at runtime.
var metroAliases = map[string]string{
	"remote": "Remote",

	"san francisco":       "San Francisco Bay Area",
	"sf":                  "San Francisco Bay Area",
	"south san francisco": "San Francisco Bay Area",
	"oakland":             "San Francisco Bay Area",
	"san jose":            "San Francisco Bay Area",
	"palo alto":           "San Francisco Bay Area",
	"mountain view":       "San Francisco Bay Area",
	"sunnyvale":           "San Francisco Bay Area",
	"menlo park":          "San Francisco Bay Area",
	"redwood city":        "San Francisco Bay Area",
	"bay area":            "San Francisco Bay Area",

	"new york":      "New York Metro",
	"new york city": "New York Metro",
	"nyc":           "New York Metro",
	"brooklyn":      "New York Metro",
	"manhattan":     "New York Metro",
	"jersey city":   "New York Metro",

	"seattle":  "Seattle Metro",
	"bellevue": "Seattle Metro",
	"redmond":  "Seattle Metro",
	"kirkland": "Seattle Metro",

	"austin":     "Austin Metro",
	"round rock": "Austin Metro",

	"boston":     "Boston Metro",
	"cambridge":  "Boston Metro",
	"somerville": "Boston Metro",

	"chicago": "Chicago Metro",

	"los angeles":  "Los Angeles Metro",
	"la":           "Los Angeles Metro",
	"santa monica": "Los Angeles Metro",
	"culver city":  "Los Angeles Metro",
	"irvine":       "Los Angeles Metro",

	"denver":  "Denver Metro",
	"boulder": "Denver Metro",

	"washington":      "Washington DC Metro",
	"washington dc":   "Washington DC Metro",
	"washington d.c.": "Washington DC Metro",
	"dc":              "Washington DC Metro",
	"arlington":       "Washington DC Metro",
	"alexandria":      "Washington DC Metro",
	"mclean":          "Washington DC Metro",
	"reston":          "Washington DC Metro",

	"atlanta": "Atlanta Metro",

	"dallas":     "Dallas-Fort Worth",
	"fort worth": "Dallas-Fort Worth",
	"plano":      "Dallas-Fort Worth",
	"dfw":        "Dallas-Fort Worth",

	"houston": "Houston Metro",

	"miami": "Miami Metro",

	"phoenix":    "Phoenix Metro",
	"scottsdale": "Phoenix Metro",
	"tempe":      "Phoenix Metro",

	"portland": "Portland Metro",

	"san diego": "San Diego Metro",

	"minneapolis": "Minneapolis-St. Paul",
	"st. paul":    "Minneapolis-St. Paul",

	"philadelphia": "Philadelphia Metro",

	"raleigh": "Raleigh-Durham",
	"durham":  "Raleigh-Durham",

	"salt lake city": "Salt Lake City Metro",

	"nashville": "Nashville Metro",

	"pittsburgh": "Pittsburgh Metro",

	"detroit": "Detroit Metro",

	"toronto":   "Toronto Metro",
	"vancouver": "Vancouver Metro",
	"london":    "London Metro",
	"dublin":    "Dublin Metro",
	"berlin":    "Berlin Metro",
	"amsterdam": "Amsterdam Metro",
	"bangalore": "Bengaluru Metro",
	"bengaluru": "Bengaluru Metro",
}

// MetroTable resolves raw location strings to canonical metro labels. It is
// built once at startup and shared read-only across workers.
type MetroTable struct {
	aliases map[string]string
	ordered []string // alias keys, longest first, for deterministic substring scans
}

// NewMetroTable builds the default table, overlaying any extra aliases from
// config (lowercased alias -> metro label).
func NewMetroTable(extra map[string]string) *MetroTable {
	m := make(map[string]string, len(metroAliases)+len(extra))
	for k, v := range metroAliases {
		m[k] = v
	}
	for k, v := range extra {
		k = strings.ToLower(CleanText(k))
		if k == "" || CleanText(v) == "" {
			continue
		}
		m[k] = CleanText(v)
	}

	ordered := make([]string, 0, len(m))
	for k := range m {
		ordered = append(ordered, k)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if len(ordered[i]) != len(ordered[j]) {
			return len(ordered[i]) > len(ordered[j])
		}
		return ordered[i] < ordered[j]
	})

	return &MetroTable{aliases: m, ordered: ordered}
}

// Metro maps a raw location string to (metro, confidence). Empty input maps
// to ("", 0). Unmapped locations pass through cleaned, at low confidence, so
// rows still group while the weak assignment discounts the aggregate.
func (t *MetroTable) Metro(rawLocation string) (string, float64) {
	loc := CleanText(rawLocation)
	if loc == "" {
		return "", 0
	}

	low := strings.ToLower(loc)

	// exact segment match: "Austin, TX" -> "austin"
	for _, seg := range strings.Split(low, ",") {
		seg = strings.TrimSpace(seg)
		if m, ok := t.aliases[seg]; ok {
			return m, metroConfAlias
		}
	}

	// substring match catches "Greater Boston" and "Seattle area"
	for _, alias := range t.ordered {
		if len(alias) >= 4 && strings.Contains(low, alias) {
			return t.aliases[alias], metroConfContains
		}
	}

	return loc, metroConfFallback
}
