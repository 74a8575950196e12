package taxonomy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"jobsignal-engine/internal/domain"
)

// LoadRules reads a YAML rules file and overlays it on the built-in cascade.
// Sections present in the file replace the corresponding built-in section
// wholesale; omitted sections keep their defaults. Order in the file is
// preserved verbatim.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read taxonomy rules: %w", err)
	}
	var override Rules
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Rules{}, fmt.Errorf("parse taxonomy rules: %w", err)
	}

	rules := DefaultRules()
	if len(override.Seniority) > 0 {
		rules.Seniority = override.Seniority
	}
	if len(override.Roles) > 0 {
		rules.Roles = override.Roles
	}
	if len(override.Fallbacks) > 0 {
		rules.Fallbacks = override.Fallbacks
	}
	if err := validateRules(rules); err != nil {
		return Rules{}, fmt.Errorf("taxonomy rules %s: %w", path, err)
	}
	return rules, nil
}

func validateRules(r Rules) error {
	for i, sr := range r.Seniority {
		if !domain.ValidSeniority(sr.Band) {
			return fmt.Errorf("seniority_rules[%d]: unknown band %q", i, sr.Band)
		}
		if sr.Confidence <= 0 || sr.Confidence > 1 {
			return fmt.Errorf("seniority_rules[%d]: confidence %v out of range", i, sr.Confidence)
		}
		if len(sr.Any) == 0 && len(sr.Suffixes) == 0 {
			return fmt.Errorf("seniority_rules[%d]: no patterns", i)
		}
	}
	for i, rr := range r.Roles {
		if rr.Role == "" {
			return fmt.Errorf("role_rules[%d]: empty role", i)
		}
		if len(rr.Any) == 0 {
			return fmt.Errorf("role_rules[%d] (%s): no patterns", i, rr.Role)
		}
	}
	for i, fr := range r.Fallbacks {
		if fr.Role == "" {
			return fmt.Errorf("fallback_rules[%d]: empty role", i)
		}
		if fr.Function == "" {
			return fmt.Errorf("fallback_rules[%d] (%s): empty function word", i, fr.Role)
		}
		if fr.Confidence <= 0 || fr.Confidence > 1 {
			return fmt.Errorf("fallback_rules[%d] (%s): confidence %v out of range", i, fr.Role, fr.Confidence)
		}
	}
	return nil
}
