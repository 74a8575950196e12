// Package dedup finds content-identical postings within one employer and
// annotates later sightings as duplicates of the earliest. Annotation is
// metadata only; no row is ever deleted or merged.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobsignal-engine/internal/normalize"
)

// Fingerprint hashes the content identity of a posting: normalized title,
// employer, metro and description. Whitespace, casing, punctuation noise and
// HTML markup in descriptions do not affect the hash.
func Fingerprint(title, employer, metro, description string) string {
	parts := []string{
		strings.ToLower(normalize.CleanText(title)),
		strings.ToLower(normalize.CleanText(employer)),
		strings.ToLower(normalize.CleanText(metro)),
		strings.ToLower(normalize.CleanText(StripHTML(description))),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}

// StripHTML reduces a description to its text content. Many boards ship the
// same description with different markup; hashing the rendered text keeps
// those equal. Non-HTML input passes through unchanged.
func StripHTML(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return doc.Text()
}
