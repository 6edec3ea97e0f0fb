package enrich

import (
	"context"

	"github.com/lcalzada-xor/cvefuse/internal/core/domain"
	"github.com/lcalzada-xor/cvefuse/internal/core/services/fusion"
)

// GitHubPoCLink attaches proof-of-concept repository links from the
// PoC-in-GitHub corpus. The corpus is fetched and normalized upstream; an
// unavailable fetch shows up here as an empty slice, which is a no-op pass,
// not an error.
//
// Documents flow through the store's normal merge-in contract, so
// deduplication by PoC URL and the diversion of blank/unresolvable cve_id
// entries to diagnostics come from the same code path as ingestion.
type GitHubPoCLink struct {
	corpus []domain.SourceDocument
}

// NewGitHubPoCLink creates the pass over an already-fetched corpus.
func NewGitHubPoCLink(corpus []domain.SourceDocument) *GitHubPoCLink {
	return &GitHubPoCLink{corpus: corpus}
}

func (p *GitHubPoCLink) Name() string { return "github-poc-link" }

func (p *GitHubPoCLink) Run(ctx context.Context, store *fusion.Store) error {
	for _, doc := range p.corpus {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		store.Merge(doc)
	}
	return nil
}
