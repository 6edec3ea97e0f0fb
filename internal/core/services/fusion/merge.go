package fusion

import (
	"strings"

	"github.com/lcalzada-xor/cvefuse/internal/core/domain"
)

// List-field union helpers. Each preserves order of first appearance and
// never removes an existing entry; deduplication uses the field-specific
// identity (normalized CPE string, reference URL, catalog ID, PoC URL).

// NormalizeCPE canonicalizes a product identifier so the affected-products
// set deduplicates across feeds that differ only in case or padding.
func NormalizeCPE(cpe string) string {
	return strings.ToLower(strings.TrimSpace(cpe))
}

// MergeProducts unions affected-product strings, deduplicated by
// normalized CPE.
func MergeProducts(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, p := range existing {
		seen[NormalizeCPE(p)] = true
	}
	for _, p := range incoming {
		n := NormalizeCPE(p)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		existing = append(existing, n)
	}
	return existing
}

// MergeReferences unions references, deduplicated by URL.
func MergeReferences(existing, incoming []domain.Reference) []domain.Reference {
	seen := make(map[string]bool, len(existing))
	for _, r := range existing {
		seen[r.URL] = true
	}
	for _, r := range incoming {
		if r.URL == "" || seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		existing = append(existing, r)
	}
	return existing
}

// MergeExploits unions exploit catalog entries, deduplicated by catalog ID.
func MergeExploits(existing, incoming []domain.ExploitEntry) []domain.ExploitEntry {
	seen := make(map[string]bool, len(existing))
	for _, e := range existing {
		seen[e.ID] = true
	}
	for _, e := range incoming {
		if e.ID == "" || seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		existing = append(existing, e)
	}
	return existing
}

// MergePoCs unions proof-of-concept links, deduplicated by URL.
func MergePoCs(existing, incoming []domain.PoCEntry) []domain.PoCEntry {
	seen := make(map[string]bool, len(existing))
	for _, p := range existing {
		seen[p.URL] = true
	}
	for _, p := range incoming {
		if p.URL == "" || seen[p.URL] {
			continue
		}
		seen[p.URL] = true
		existing = append(existing, p)
	}
	return existing
}
