package enrich

import (
	"context"
	"log/slog"

	"github.com/lcalzada-xor/cvefuse/internal/core/services/fusion"
)

// Pass is an additive post-fusion enrichment stage. A pass reads the fusion
// store (and at most one external corpus) and attaches fields; it never
// removes existing data. An error means the pass could not complete; the
// pipeline reports it and moves on, it is never fatal.
type Pass interface {
	Name() string
	Run(ctx context.Context, store *fusion.Store) error
}

// RunAll executes passes in the given, fixed order and returns the names of
// the passes that failed. Partial enrichment is strictly better than none.
func RunAll(ctx context.Context, store *fusion.Store, passes []Pass) []string {
	var failed []string
	for _, p := range passes {
		if err := p.Run(ctx, store); err != nil {
			slog.Warn("enrichment pass failed", "pass", p.Name(), "error", err)
			failed = append(failed, p.Name())
			continue
		}
		slog.Info("enrichment pass complete", "pass", p.Name())
	}
	return failed
}
