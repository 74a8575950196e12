package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy plus everything wrong or
// suspicious about it. Errors block startup; warnings are logged and ignored.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}

	if out.Lifecycle.StalenessDays <= 0 {
		res.addErr("lifecycle.staleness_days must be > 0")
	} else if out.Lifecycle.StalenessDays < 3 {
		res.addWarn("lifecycle.staleness_days is very low (%d); slow sources will close postings prematurely.", out.Lifecycle.StalenessDays)
	}

	if out.Review.Threshold < 0 || out.Review.Threshold > 1 {
		res.addErr("review.threshold must be within [0,1]")
	}

	if out.Aggregation.WindowDays <= 0 {
		res.addErr("aggregation.window_days must be > 0")
	}
	if out.Aggregation.MaxParallelKeys <= 0 {
		res.addErr("aggregation.max_parallel_keys must be > 0")
	}
	if out.Aggregation.UpsertsPerSec <= 0 {
		res.addErr("aggregation.upserts_per_sec must be > 0")
	}

	if len(out.Sources) == 0 {
		res.addErr("no sources registered; every observation would be skipped as unknown-source")
	}

	seen := map[string]bool{}
	for i, s := range out.Sources {
		name := strings.TrimSpace(s.Name)
		out.Sources[i].Name = name
		if name == "" {
			res.addErr("sources[%d].name is required", i)
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			res.addErr("duplicate source %q", name)
		}
		seen[key] = true

		tier := strings.ToUpper(strings.TrimSpace(s.Tier))
		out.Sources[i].Tier = tier
		switch tier {
		case "A", "B", "C":
		default:
			res.addErr("sources[%d] (%s): tier must be A, B or C", i, name)
		}
		if s.Weight < 0 || s.Weight > 1 {
			res.addErr("sources[%d] (%s): weight must be within [0,1]", i, name)
		}
	}

	for alias, metro := range out.Metros {
		if strings.TrimSpace(alias) == "" || strings.TrimSpace(metro) == "" {
			res.addWarn("metros has an empty alias or label; it will be ignored")
		}
	}

	return out, res
}
