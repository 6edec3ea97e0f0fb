package enrich

import (
	"context"
	"strings"

	"github.com/lcalzada-xor/cvefuse/internal/core/domain"
	"github.com/lcalzada-xor/cvefuse/internal/core/services/fusion"
)

// UnpatchedFlag derives the triage flags downstream tooling filters on:
//
//   - high_unpatched: severity HIGH or CRITICAL with patch availability
//     confirmed false. An unknown patch state does not qualify; collapsing
//     unknown to false would misrepresent unreviewed CVEs as
//     confirmed-unpatched.
//   - critical_with_poc: CRITICAL severity with at least one known exploit
//     or PoC link.
type UnpatchedFlag struct{}

func NewUnpatchedFlag() *UnpatchedFlag {
	return &UnpatchedFlag{}
}

func (p *UnpatchedFlag) Name() string { return "unpatched-flag" }

func (p *UnpatchedFlag) Run(ctx context.Context, store *fusion.Store) error {
	store.Each(func(rec *domain.UnifiedRecord) {
		sev := strings.ToUpper(rec.Severity)
		if (sev == "HIGH" || sev == "CRITICAL") && rec.PatchAvailable == domain.TriFalse {
			rec.HighUnpatched = true
		}
		if sev == "CRITICAL" && (rec.HasExploitPoC || len(rec.Exploits) > 0 || len(rec.PoCs) > 0) {
			rec.CriticalWithPoC = true
		}
	})
	return ctx.Err()
}
