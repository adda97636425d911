package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/designscore/analyzer"
	"github.com/hazyhaar/designscore/config"
	"github.com/hazyhaar/designscore/dbopen"
	"github.com/hazyhaar/designscore/guard"
	"github.com/hazyhaar/designscore/observability"
	"github.com/hazyhaar/designscore/report"
	"github.com/hazyhaar/designscore/shield"
	"github.com/hazyhaar/designscore/snapshot"
	"github.com/hazyhaar/designscore/store"
)

const workerName = "designscore"

// app wires the components shared by every subcommand.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	metrics  *observability.MetricsManager
	events   *observability.EventLogger
	audit    *observability.AuditLogger
	browser  *snapshot.BrowserProvider
	provider snapshot.Provider
	renderer *report.Renderer
	analyzer *analyzer.Analyzer
}

type appOptions struct {
	noReport bool
}

func newApp(cfg *config.Config, logger *slog.Logger, opts appOptions) (*app, error) {
	st, err := store.Open(cfg.DBPath,
		dbopen.WithSchema(shield.Schema),
		dbopen.WithSchema(observability.Schema),
	)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		metrics: observability.NewMetricsManager(st.DB, 100, 10*time.Second),
		events:  observability.NewEventLogger(st.DB),
		audit:   observability.NewAuditLogger(st.DB, 1000),
		browser: snapshot.NewBrowserProvider(cfg.Browser, logger),
	}
	a.provider = newProvider(cfg.Provider, a.browser, logger)

	loc, err := cfg.Location()
	if err != nil {
		a.Close()
		return nil, err
	}
	rendOpts := []report.Option{
		report.WithThresholds(cfg.Thresholds),
		report.WithLocation(loc),
		report.WithMarkdown(*cfg.Report.Markdown),
		report.WithLogger(logger),
	}
	if cfg.Report.Template != "" {
		tmpl, err := report.LoadTemplate(cfg.Report.Template)
		if err != nil {
			a.Close()
			return nil, err
		}
		rendOpts = append(rendOpts, report.WithTemplate(tmpl))
	}
	a.renderer = report.New(a.browser, rendOpts...)

	anOpts := []analyzer.Option{
		analyzer.WithWeights(cfg.Weights),
		analyzer.WithURLPolicy(guard.URLPolicy{AllowPrivate: cfg.AllowPrivate}),
		analyzer.WithCatalog(a.store),
		analyzer.WithMetrics(a.metrics),
		analyzer.WithEvents(a.events),
		analyzer.WithLogger(logger),
	}
	if !opts.noReport {
		anOpts = append(anOpts, analyzer.WithRenderer(a.renderer))
	}
	a.analyzer = analyzer.New(a.provider, cfg.ResultsDir, anOpts...)
	return a, nil
}

// newProvider selects the snapshot provider for mode. The browser provider
// is shared with the PDF printer, so Chrome runs at most once.
func newProvider(mode string, browser *snapshot.BrowserProvider, logger *slog.Logger) snapshot.Provider {
	static := snapshot.NewStaticProvider(snapshot.WithStaticLogger(logger))
	switch mode {
	case config.ProviderStatic:
		return static
	case config.ProviderAuto:
		return snapshot.NewAutoProvider(static, browser, logger)
	default:
		return browser
	}
}

// Close flushes observability buffers and releases Chrome and the catalog.
func (a *app) Close() error {
	var errs []error
	errs = append(errs, a.audit.Close(), a.metrics.Close())
	if err := a.browser.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close browser: %w", err))
	}
	errs = append(errs, a.store.Close())
	return errors.Join(errs...)
}

// cleanupLoop applies the retention policy once an hour.
func (a *app) cleanupLoop(ctx context.Context) {
	tick := time.NewTicker(time.Hour)
	defer tick.Stop()
	for {
		if err := observability.Cleanup(ctx, a.store.DB, a.cfg.Retention); err != nil && ctx.Err() == nil {
			a.logger.Warn("retention cleanup failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}
