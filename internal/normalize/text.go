package normalize

import "strings"

func CleanText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

var legalSuffixes = []string{
	"inc", "inc.", "incorporated",
	"llc", "l.l.c.", "llp",
	"ltd", "ltd.", "limited",
	"corp", "corp.", "corporation",
	"co", "co.", "company",
	"gmbh", "plc", "s.a.", "pty",
}

// Employer canonicalizes an employer name for grouping: whitespace collapse
// plus trailing legal-suffix stripping. Casing is preserved so the stored
// value stays presentable.
func Employer(raw string) string {
	s := CleanText(raw)
	if s == "" {
		return ""
	}

	// strip one trailing legal suffix, with or without a leading comma
	lower := strings.ToLower(s)
	for _, suf := range legalSuffixes {
		for _, sep := range []string{", ", " "} {
			tail := sep + suf
			if strings.HasSuffix(lower, tail) && len(s) > len(tail) {
				s = strings.TrimSpace(s[:len(s)-len(tail)])
				s = strings.TrimRight(s, ",")
				return s
			}
		}
	}
	return s
}
