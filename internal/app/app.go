package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lcalzada-xor/cvefuse/internal/adapters/feeds"
	pdfreport "github.com/lcalzada-xor/cvefuse/internal/adapters/reporting"
	"github.com/lcalzada-xor/cvefuse/internal/adapters/storage"
	"github.com/lcalzada-xor/cvefuse/internal/adapters/web"
	"github.com/lcalzada-xor/cvefuse/internal/config"
	"github.com/lcalzada-xor/cvefuse/internal/core/domain"
	"github.com/lcalzada-xor/cvefuse/internal/core/ports"
	"github.com/lcalzada-xor/cvefuse/internal/core/services/enrich"
	"github.com/lcalzada-xor/cvefuse/internal/core/services/export"
	"github.com/lcalzada-xor/cvefuse/internal/core/services/fusion"
	"github.com/lcalzada-xor/cvefuse/internal/core/services/reporting"
	"github.com/lcalzada-xor/cvefuse/internal/telemetry"
)

// Application is the facade for the fusion pipeline: it owns the fusion
// store, the feed adapters, persistence and the optional status server, and
// drives one fetch-merge-enrich-materialize run.
type Application struct {
	Config *config.Config
	Store  *fusion.Store

	adapters   []ports.SourceAdapter
	pocAdapter ports.SourceAdapter
	repo       ports.DatasetRepository
	webServer  *web.Server

	reportBuilder *reporting.ReportBuilder
	pdfExporter   *pdfreport.PDFExporter
}

// New creates a new Application instance and bootstraps its components.
func New(cfg *config.Config) (*Application, error) {
	telemetry.InitMetrics()

	app := &Application{
		Config:        cfg,
		Store:         fusion.NewStore(fusion.DefaultPriorities()),
		reportBuilder: reporting.NewReportBuilder(),
		pdfExporter:   pdfreport.NewPDFExporter(),
	}

	fetcher := feeds.NewFetcher(cfg.CacheDir(), cfg.FetchRPS)

	// Primary feeds merge during ingestion, in declaration order.
	app.adapters = append(app.adapters,
		feeds.NewNVDAdapter(fetcher, cfg.NVDFeedURL),
		feeds.NewKEVAdapter(fetcher, cfg.KEVCatalogURL),
		feeds.NewExploitDBAdapter(fetcher, cfg.ExploitDBCSVURL),
	)
	if len(cfg.PacketStormURLs) > 0 {
		app.adapters = append(app.adapters, feeds.NewPacketStormAdapter(fetcher, cfg.PacketStormURLs))
	}
	if len(cfg.VulnHubURLs) > 0 {
		app.adapters = append(app.adapters, feeds.NewVulnHubAdapter(fetcher, cfg.VulnHubURLs))
	}

	// The PoC corpus feeds the github-poc-link enrichment pass instead.
	if cfg.GitHubPoCURL != "" {
		app.pocAdapter = feeds.NewGitHubPoCAdapter(fetcher, cfg.GitHubPoCURL)
	}

	if cfg.DBPath != "" {
		repo, err := storage.NewSQLiteAdapter(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open snapshot database: %w", err)
		}
		app.repo = repo
	}

	if cfg.Addr != "" {
		app.webServer = web.NewServer(cfg.Addr, app.Store)
	}

	return app, nil
}

// Run executes one full pipeline run: concurrent fetch, serialized merge,
// enrichment passes in fixed order, then materialization, persistence and
// reporting. A failed source contributes zero documents and is recorded in
// the run summary; it never aborts the run.
func (app *Application) Run(ctx context.Context) error {
	runID := uuid.New().String()
	startedAt := time.Now()
	slog.Info("Run starting", "run_id", runID)

	if app.webServer != nil {
		go func() {
			if err := app.webServer.Run(ctx); err != nil {
				slog.Error("Status server failed", "error", err)
			}
		}()
	}

	// Fetch concurrently, merge serially in adapter declaration order so
	// runs over the same inputs materialize identically. Each goroutine
	// writes only its own slot.
	results := make([][]domain.SourceDocument, len(app.adapters))
	errSlots := make([]string, len(app.adapters))
	g, gctx := errgroup.WithContext(ctx)
	for i, adapter := range app.adapters {
		g.Go(func() error {
			docs, err := adapter.Fetch(gctx)
			if err != nil {
				slog.Warn("Source unavailable", "source", adapter.Name(), "error", err)
				telemetry.FetchErrors.WithLabelValues(string(adapter.Name())).Inc()
				errSlots[i] = err.Error()
				return nil
			}
			results[i] = docs
			return nil
		})
	}

	var pocCorpus []domain.SourceDocument
	var pocErr string
	if app.pocAdapter != nil {
		g.Go(func() error {
			docs, err := app.pocAdapter.Fetch(gctx)
			if err != nil {
				slog.Warn("Source unavailable", "source", app.pocAdapter.Name(), "error", err)
				telemetry.FetchErrors.WithLabelValues(string(app.pocAdapter.Name())).Inc()
				pocErr = err.Error()
				return nil
			}
			pocCorpus = docs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	fetchErrors := map[domain.SourceName]string{}
	for i, adapter := range app.adapters {
		if errSlots[i] != "" {
			fetchErrors[adapter.Name()] = errSlots[i]
		}
	}
	if app.pocAdapter != nil && pocErr != "" {
		fetchErrors[app.pocAdapter.Name()] = pocErr
	}

	fetched := map[domain.SourceName]int{}

	for i, adapter := range app.adapters {
		name := string(adapter.Name())
		fetched[adapter.Name()] = len(results[i])
		telemetry.DocumentsFetched.WithLabelValues(name).Add(float64(len(results[i])))
		for _, doc := range results[i] {
			res := app.Store.Merge(doc)
			if res.Merged {
				telemetry.DocumentsMerged.WithLabelValues(name).Inc()
			} else {
				telemetry.DocumentsDiverted.WithLabelValues(name).Inc()
			}
		}
	}
	if app.pocAdapter != nil {
		fetched[app.pocAdapter.Name()] = len(pocCorpus)
		telemetry.DocumentsFetched.WithLabelValues(string(app.pocAdapter.Name())).Add(float64(len(pocCorpus)))
	}

	passes := []enrich.Pass{
		enrich.NewGitHubPoCLink(pocCorpus),
		enrich.NewExploitCatalogCrossref(),
		enrich.NewUnpatchedFlag(),
	}
	for _, name := range enrich.RunAll(ctx, app.Store, passes) {
		telemetry.PassFailures.WithLabelValues(name).Inc()
	}

	snapshot := app.Store.Snapshot()

	if err := app.materialize(snapshot); err != nil {
		return err
	}

	if app.repo != nil {
		if err := app.repo.SaveSnapshot(ctx, snapshot); err != nil {
			slog.Error("Snapshot persistence failed", "error", err)
		}
	}

	summary := app.buildSummary(runID, startedAt, fetched, fetchErrors)
	slog.Info("Run complete",
		"run_id", runID,
		"records", summary.Records,
		"unresolved", summary.Unresolved,
		"duration", summary.FinishedAt.Sub(summary.StartedAt).String(),
	)

	if app.Config.PDFPath != "" {
		if err := app.writePDFReport(snapshot, summary); err != nil {
			slog.Error("PDF report failed", "error", err)
		}
	}

	return nil
}

// Close releases held resources.
func (app *Application) Close() error {
	if app.repo != nil {
		return app.repo.Close()
	}
	return nil
}

// materialize writes the JSONL master dataset, its CSV projection and the
// triage summary CSV from one snapshot.
func (app *Application) materialize(snapshot []domain.UnifiedRecord) error {
	if err := writeFile(app.Config.JSONLPath, func(f *os.File) error {
		return export.WriteJSONL(f, snapshot)
	}); err != nil {
		return fmt.Errorf("write JSONL dataset: %w", err)
	}
	if err := writeFile(app.Config.CSVPath, func(f *os.File) error {
		return export.WriteCSV(f, snapshot)
	}); err != nil {
		return fmt.Errorf("write CSV dataset: %w", err)
	}
	if err := writeFile(app.Config.SummaryPath, func(f *os.File) error {
		return export.WriteSummaryCSV(f, snapshot)
	}); err != nil {
		return fmt.Errorf("write summary CSV: %w", err)
	}
	return nil
}

func (app *Application) buildSummary(runID string, startedAt time.Time, fetched map[domain.SourceName]int, fetchErrors map[domain.SourceName]string) *domain.RunSummary {
	summary := &domain.RunSummary{
		RunID:      runID,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
		Records:    app.Store.Len(),
		Unresolved: len(app.Store.Unresolved()),
		PerSource:  map[domain.SourceName]domain.SourceStats{},
	}

	for name, stats := range app.Store.Stats() {
		stats.Fetched = fetched[name]
		summary.PerSource[name] = stats
	}
	for name, count := range fetched {
		if _, ok := summary.PerSource[name]; !ok {
			summary.PerSource[name] = domain.SourceStats{Fetched: count}
		}
	}
	for name, msg := range fetchErrors {
		stats := summary.PerSource[name]
		stats.Error = msg
		summary.PerSource[name] = stats
	}

	return summary
}

func (app *Application) writePDFReport(snapshot []domain.UnifiedRecord, summary *domain.RunSummary) error {
	report := app.reportBuilder.Build(snapshot, summary)
	data, err := app.pdfExporter.ExportRunReport(report)
	if err != nil {
		return err
	}
	return os.WriteFile(app.Config.PDFPath, data, 0o644)
}

func writeFile(path string, write func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
