// Package analyzer scores the visual design quality of a web page.
//
// Three extractors reduce a page snapshot to dimension results:
//
//	typography  font family discipline      {70, 90}
//	color       fg/bg pair coherence        [50, 100]
//	layout      flex/grid usage             {60, 90}
//
// Score combines them with Weights into a ScoreBreakdown and Recommend maps
// the breakdown to guidance. Analyzer runs the full pipeline for one URL:
// snapshot, screenshot, extraction, scoring, result.json, catalog and a
// best-effort report.
//
// Usage:
//
//	a := analyzer.New(provider, "results",
//		analyzer.WithCatalog(st),
//		analyzer.WithRenderer(rd),
//	)
//	res, out, err := a.Analyze(ctx, "https://example.com")
package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/designscore/guard"
	"github.com/hazyhaar/designscore/idgen"
	"github.com/hazyhaar/designscore/kit"
	"github.com/hazyhaar/designscore/observability"
	"github.com/hazyhaar/designscore/snapshot"
)

// ErrInvalidURL marks a URL rejected before any analysis work.
var ErrInvalidURL = errors.New("analyzer: invalid url")

// Run directory file names.
const (
	ScreenshotFile = "homepage.png"
	ResultFile     = "result.json"
)

const serviceName = "designscore"

// Renderer produces report artifacts for a finished analysis.
type Renderer interface {
	Render(ctx context.Context, res *AnalysisResult, screenshotPath, outDir string) (RenderedReport, error)
}

// Catalog indexes finished analyses.
type Catalog interface {
	Insert(ctx context.Context, res *AnalysisResult, resultPath string) error
	SetReport(ctx context.Context, id string, rep RenderedReport, renderErr error) error
}

// RunOutcome describes where a run's artifacts landed.
type RunOutcome struct {
	RunDir         string
	ResultPath     string
	ScreenshotPath string
	Report         RenderedReport
	// ReportErr is set when rendering failed. The analysis itself succeeded.
	ReportErr error
	Duration  time.Duration
}

// Analyzer runs the analysis pipeline.
type Analyzer struct {
	provider   snapshot.Provider
	resultsDir string
	weights    Weights
	policy     guard.URLPolicy
	newID      idgen.Generator
	now        func() time.Time
	catalog    Catalog
	renderer   Renderer
	metrics    observability.Recorder
	events     observability.EventSink
	logger     *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

func WithWeights(w Weights) Option { return func(a *Analyzer) { a.weights = w } }

// WithURLPolicy controls SSRF checks on submitted URLs.
func WithURLPolicy(p guard.URLPolicy) Option { return func(a *Analyzer) { a.policy = p } }

func WithIDGenerator(gen idgen.Generator) Option { return func(a *Analyzer) { a.newID = gen } }

func WithClock(now func() time.Time) Option { return func(a *Analyzer) { a.now = now } }

func WithCatalog(c Catalog) Option { return func(a *Analyzer) { a.catalog = c } }

// WithRenderer enables report rendering after each run.
func WithRenderer(r Renderer) Option { return func(a *Analyzer) { a.renderer = r } }

func WithMetrics(m observability.Recorder) Option { return func(a *Analyzer) { a.metrics = m } }

func WithEvents(e observability.EventSink) Option { return func(a *Analyzer) { a.events = e } }

func WithLogger(l *slog.Logger) Option { return func(a *Analyzer) { a.logger = l } }

// New creates an Analyzer writing run directories under resultsDir.
func New(provider snapshot.Provider, resultsDir string, opts ...Option) *Analyzer {
	a := &Analyzer{
		provider:   provider,
		resultsDir: resultsDir,
		weights:    DefaultWeights(),
		newID:      idgen.RunID,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// ResultsDir returns the root of all run directories.
func (a *Analyzer) ResultsDir() string { return a.resultsDir }

// Analyze runs the full pipeline for rawURL. On error nothing is persisted
// and the run directory is removed. A report failure is not an error: it is
// returned in RunOutcome.ReportErr.
func (a *Analyzer) Analyze(ctx context.Context, rawURL string) (*AnalysisResult, *RunOutcome, error) {
	start := a.now()
	logger := kit.Logger(ctx, a.logger)

	u, err := guard.ValidateURL(rawURL, a.policy)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	pageURL := u.String()

	id := a.newID()
	if err := guard.ValidateIdentifier(id); err != nil {
		return nil, nil, fmt.Errorf("analyzer: run id: %w", err)
	}
	runDir := filepath.Join(a.resultsDir, id)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("analyzer: create run dir: %w", err)
	}

	res, err := a.collect(ctx, id, pageURL, runDir, start)
	if err != nil {
		if rmErr := os.RemoveAll(runDir); rmErr != nil {
			logger.Warn("analyzer: remove run dir", "dir", runDir, "error", rmErr)
		}
		logger.Error("analyzer: run failed", "url", pageURL, "run_id", id, "error", err)
		a.event(ctx, observability.BusinessEvent{
			EventType: observability.EventAnalysisFailed,
			EntityID:  id,
			Action:    "analyze",
			Details:   detailsJSON(map[string]string{"url": pageURL, "error": err.Error()}),
		})
		return nil, nil, err
	}

	out := &RunOutcome{
		RunDir:         runDir,
		ResultPath:     filepath.Join(runDir, ResultFile),
		ScreenshotPath: filepath.Join(runDir, ScreenshotFile),
	}

	if a.catalog != nil {
		if err := a.catalog.Insert(ctx, res, out.ResultPath); err != nil {
			os.RemoveAll(runDir)
			return nil, nil, fmt.Errorf("analyzer: catalog insert: %w", err)
		}
	}

	if a.renderer != nil {
		a.render(ctx, res, out)
	}

	out.Duration = a.now().Sub(start)
	if a.metrics != nil {
		a.metrics.Record(observability.DurationMetric(observability.MetricAnalysisDurationMs, out.Duration, nil))
		a.metrics.Record(&observability.Metric{
			Name:  observability.MetricAnalysisTotalScore,
			Value: float64(res.Breakdown.Total),
			Unit:  "score",
		})
	}
	a.event(ctx, observability.BusinessEvent{
		EventType: observability.EventAnalysisCompleted,
		EntityID:  id,
		Action:    "analyze",
		Details:   detailsJSON(map[string]any{"url": pageURL, "total": res.Breakdown.Total}),
		Success:   true,
	})
	logger.Info("analyzer: run complete",
		"run_id", id, "url", pageURL, "total", res.Breakdown.Total,
		"typography", res.Breakdown.Typography, "color", res.Breakdown.Color,
		"layout", res.Breakdown.Layout, "duration", out.Duration)
	return res, out, nil
}

// collect acquires the snapshot and produces the persisted result.json.
func (a *Analyzer) collect(ctx context.Context, id, pageURL, runDir string, start time.Time) (*AnalysisResult, error) {
	snap, err := a.provider.Open(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer snap.Close()

	png, err := snap.Screenshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: screenshot: %w", snapshot.ErrAcquisition, err)
	}
	if err := os.WriteFile(filepath.Join(runDir, ScreenshotFile), png, 0o644); err != nil {
		return nil, fmt.Errorf("analyzer: write screenshot: %w", err)
	}

	var t, c, l DimensionResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { t, err = ExtractTypography(gctx, snap); return err })
	g.Go(func() (err error) { c, err = ExtractColor(gctx, snap); return err })
	g.Go(func() (err error) { l, err = ExtractLayout(gctx, snap); return err })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	breakdown, err := Score(a.weights, t, c, l)
	if err != nil {
		return nil, err
	}

	res := &AnalysisResult{
		ID:         id,
		URL:        pageURL,
		Title:      snap.Title(),
		CreatedAt:  start.UTC(),
		Screenshot: ScreenshotFile,
		Typography: t,
		Color:      c,
		Layout:     l,
		Breakdown:  breakdown,
	}
	if err := WriteResult(filepath.Join(runDir, ResultFile), res); err != nil {
		return nil, err
	}
	return res, nil
}

func (a *Analyzer) render(ctx context.Context, res *AnalysisResult, out *RunOutcome) {
	logger := kit.Logger(ctx, a.logger)
	start := time.Now()
	rep, err := a.renderer.Render(ctx, res, out.ScreenshotPath, out.RunDir)
	if a.metrics != nil {
		a.metrics.Record(observability.DurationMetric(observability.MetricReportDurationMs, time.Since(start),
			map[string]string{"ok": fmt.Sprint(err == nil)}))
	}
	if err != nil {
		out.ReportErr = err
		logger.Error("analyzer: report failed", "run_id", res.ID, "error", err)
		a.event(ctx, observability.BusinessEvent{
			EventType: observability.EventReportFailed,
			EntityID:  res.ID,
			Action:    "render",
			Details:   detailsJSON(map[string]string{"error": err.Error()}),
		})
	} else {
		out.Report = rep
	}
	if a.catalog != nil {
		if cerr := a.catalog.SetReport(ctx, res.ID, rep, err); cerr != nil {
			logger.Warn("analyzer: record report", "run_id", res.ID, "error", cerr)
		}
	}
}

func (a *Analyzer) event(ctx context.Context, e observability.BusinessEvent) {
	if a.events == nil {
		return
	}
	e.ServiceName = serviceName
	e.EntityType = "analysis"
	a.events.LogEvent(context.WithoutCancel(ctx), e)
}

func detailsJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// WriteResult writes res as indented JSON.
func WriteResult(path string, res *AnalysisResult) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("analyzer: marshal result: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("analyzer: write result: %w", err)
	}
	return nil
}

// ReadResult loads a result.json written by WriteResult.
func ReadResult(path string) (*AnalysisResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("analyzer: read result: %w", err)
	}
	var res AnalysisResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("analyzer: decode result: %w", err)
	}
	return &res, nil
}
