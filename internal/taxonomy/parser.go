package taxonomy

import (
	"strings"
	"unicode"

	"jobsignal-engine/internal/domain"
)

// Parser applies a compiled rule cascade to raw titles. It is immutable after
// construction and safe for concurrent use.
type Parser struct {
	seniority []compiledSeniorityRule
	roles     []compiledRoleRule
	fallbacks []compiledFallbackRule
}

type compiledSeniorityRule struct {
	band     domain.SeniorityBand
	conf     float64
	any      []string
	suffixes []string
}

type compiledRoleRule struct {
	role string
	any  []string
}

type compiledFallbackRule struct {
	role     string
	conf     float64
	function string
	domains  []string
}

// NewParser compiles rules into a Parser. Needles are normalized with the
// same tokenizer applied to titles, so YAML overrides may use punctuation
// freely ("Co-Op", "FP&A").
func NewParser(rules Rules) *Parser {
	p := &Parser{}
	for _, r := range rules.Seniority {
		cr := compiledSeniorityRule{band: r.Band, conf: r.Confidence}
		for _, a := range r.Any {
			if n := normPhrase(a); n != "" {
				cr.any = append(cr.any, n)
			}
		}
		for _, s := range r.Suffixes {
			if n := normPhrase(s); n != "" {
				cr.suffixes = append(cr.suffixes, n)
			}
		}
		p.seniority = append(p.seniority, cr)
	}
	for _, r := range rules.Roles {
		cr := compiledRoleRule{role: r.Role}
		for _, a := range r.Any {
			if n := normPhrase(a); n != "" {
				cr.any = append(cr.any, n)
			}
		}
		p.roles = append(p.roles, cr)
	}
	for _, r := range rules.Fallbacks {
		cr := compiledFallbackRule{role: r.Role, conf: r.Confidence, function: normPhrase(r.Function)}
		for _, d := range r.Domains {
			if n := normPhrase(d); n != "" {
				cr.domains = append(cr.domains, n)
			}
		}
		p.fallbacks = append(p.fallbacks, cr)
	}
	return p
}

// Parse canonicalizes one raw title. Empty or whitespace-only input yields
// null role and null seniority at confidence 0.0; a non-empty title that
// matches no seniority cue falls back to the mid band at low confidence.
func (p *Parser) Parse(rawTitle string) domain.TitleParseResult {
	tokens := tokenize(rawTitle)
	if len(tokens) == 0 {
		return domain.TitleParseResult{}
	}
	padded := " " + strings.Join(tokens, " ") + " "
	last := tokens[len(tokens)-1]

	res := domain.TitleParseResult{}
	res.LevelTokens, res.FunctionTokens, res.DomainTokens = classifyTokens(tokens)

	for _, r := range p.seniority {
		if matchAny(padded, r.any) || matchSuffix(last, r.suffixes) {
			band := r.band
			res.Seniority = &band
			res.SeniorityConfidence = r.conf
			break
		}
	}
	if res.Seniority == nil {
		band := DefaultSeniorityBand
		res.Seniority = &band
		res.SeniorityConfidence = DefaultSeniorityConfidence
	}

	for _, r := range p.roles {
		if matchAny(padded, r.any) {
			role := r.role
			res.Role = &role
			res.RoleConfidence = RoleRuleConfidence
			return res
		}
	}
	for _, r := range p.fallbacks {
		if r.function == "" || !hasPhrase(padded, r.function) {
			continue
		}
		if len(r.domains) == 0 || matchAny(padded, r.domains) {
			role := r.role
			res.Role = &role
			res.RoleConfidence = r.conf
			return res
		}
	}
	return res
}

// ShouldQueueForReview reports whether a parse is weak enough to route to a
// human queue: a non-empty title whose role is missing or below threshold.
// Empty input produces nothing to review.
func ShouldQueueForReview(res domain.TitleParseResult, threshold float64) bool {
	if res.Role == nil && res.Seniority == nil {
		return false
	}
	if res.Role == nil {
		return true
	}
	return res.RoleConfidence < threshold
}

func matchAny(padded string, needles []string) bool {
	for _, n := range needles {
		if hasPhrase(padded, n) {
			return true
		}
	}
	return false
}

func matchSuffix(last string, suffixes []string) bool {
	for _, s := range suffixes {
		if last == s {
			return true
		}
	}
	return false
}

// hasPhrase matches needle on token boundaries inside an already padded,
// normalized title.
func hasPhrase(padded, needle string) bool {
	return strings.Contains(padded, " "+needle+" ")
}

// tokenize lowercases and splits on every non-alphanumeric rune, so
// "Sr. Engineer (L4) / Remote" and "sr engineer l4 remote" tokenize alike.
func tokenize(s string) []string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Fields(b.String())
}

func normPhrase(s string) string {
	return strings.Join(tokenize(s), " ")
}

var levelVocab = map[string]bool{
	"intern": true, "internship": true, "junior": true, "jr": true,
	"entry": true, "graduate": true, "trainee": true, "apprentice": true, "associate": true,
	"mid": true, "intermediate": true,
	"senior": true, "sr": true, "lead": true, "principal": true, "staff": true,
	"manager": true, "mgr": true, "supervisor": true, "director": true, "head": true,
	"vp": true, "president": true, "chief": true, "ceo": true, "cto": true, "cfo": true,
	"i": true, "ii": true, "iii": true, "iv": true, "1": true, "2": true, "3": true, "4": true,
}

var functionVocab = map[string]bool{
	"engineer": true, "developer": true, "programmer": true, "architect": true,
	"analyst": true, "scientist": true, "administrator": true, "consultant": true,
	"designer": true, "researcher": true, "writer": true, "specialist": true,
	"coordinator": true, "representative": true, "assistant": true, "technician": true,
	"nurse": true, "physician": true, "pharmacist": true, "therapist": true,
	"accountant": true, "auditor": true, "controller": true, "attorney": true,
	"recruiter": true, "teacher": true, "instructor": true, "professor": true,
	"driver": true, "operator": true, "mechanic": true, "electrician": true,
	"plumber": true, "welder": true, "machinist": true, "carpenter": true,
	"chef": true, "cook": true, "guard": true, "planner": true,
}

var tokenNoise = map[string]bool{
	"of": true, "and": true, "the": true, "for": true, "a": true, "an": true,
	"in": true, "at": true, "to": true, "with": true, "on": true, "or": true,
	"remote": true, "hybrid": true, "onsite": true, "full": true, "part": true, "time": true,
}

// classifyTokens buckets tokens for diagnostics and review tooling. The
// buckets never feed back into rule matching.
func classifyTokens(tokens []string) (level, function, domainTokens []string) {
	for _, t := range tokens {
		switch {
		case levelVocab[t]:
			level = append(level, t)
		case functionVocab[t]:
			function = append(function, t)
		case tokenNoise[t]:
		default:
			domainTokens = append(domainTokens, t)
		}
	}
	return level, function, domainTokens
}
