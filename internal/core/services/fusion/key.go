package fusion

import (
	"regexp"
	"strings"
)

// Canonical key pattern: program identifier, 4-digit year, 4+ digit sequence.
var (
	keyExact    = regexp.MustCompile(`^CVE-\d{4}-\d{4,}$`)
	keyEmbedded = regexp.MustCompile(`CVE-\d{4}-\d{4,}`)
)

// ResolveKey normalizes a raw feed identifier into a canonical CVE key.
//
// Rules, in order: trim whitespace, upper-case, validate against the exact
// pattern. On mismatch, try to extract an embedded identifier (scrape feeds
// wrap the CVE in free text); exactly one distinct identifier resolves,
// zero or several (ambiguous) does not.
func ResolveKey(raw string) (string, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", false
	}
	if keyExact.MatchString(s) {
		return s, true
	}

	distinct := ExtractKeys(s)
	if len(distinct) == 1 {
		return distinct[0], true
	}
	return "", false
}

// ExtractKeys returns every distinct canonical identifier embedded in free
// text, in order of first appearance. Matching is case-insensitive.
func ExtractKeys(text string) []string {
	matches := keyEmbedded.FindAllString(strings.ToUpper(text), -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	var distinct []string
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			distinct = append(distinct, m)
		}
	}
	return distinct
}
