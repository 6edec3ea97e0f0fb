package enrich

import (
	"context"

	"github.com/lcalzada-xor/cvefuse/internal/core/domain"
	"github.com/lcalzada-xor/cvefuse/internal/core/services/fusion"
)

// ExploitDBURLPrefix is the canonical public URL for an Exploit-DB entry.
const ExploitDBURLPrefix = "https://www.exploit-db.com/exploits/"

// ExploitCatalogCrossref walks the fused records and guarantees that every
// exploit catalog entry is reachable: entries without a URL get the
// canonical Exploit-DB link, each entry's URL is mirrored into the
// record-level references (deduplicated by URL), and records with any
// exploit or PoC material get the has-exploit-PoC flag. Strictly additive.
type ExploitCatalogCrossref struct{}

func NewExploitCatalogCrossref() *ExploitCatalogCrossref {
	return &ExploitCatalogCrossref{}
}

func (p *ExploitCatalogCrossref) Name() string { return "exploit-catalog-crossref" }

func (p *ExploitCatalogCrossref) Run(ctx context.Context, store *fusion.Store) error {
	store.Each(func(rec *domain.UnifiedRecord) {
		for i := range rec.Exploits {
			if rec.Exploits[i].URL == "" && rec.Exploits[i].ID != "" {
				rec.Exploits[i].URL = ExploitDBURLPrefix + rec.Exploits[i].ID
			}
			if url := rec.Exploits[i].URL; url != "" {
				rec.References = fusion.MergeReferences(rec.References, []domain.Reference{{
					URL:    url,
					Source: string(domain.SourceExploitDB),
					Tags:   []string{"exploit"},
				}})
			}
		}
		if len(rec.Exploits) > 0 || len(rec.PoCs) > 0 {
			rec.HasExploitPoC = true
		}
	})
	return ctx.Err()
}
