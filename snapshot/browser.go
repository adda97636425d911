package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/designscore/snapshot/internal/browser"
)

// BrowserConfig configures the Chrome-backed provider.
type BrowserConfig struct {
	RemoteURL        string        `yaml:"remote"`
	Bin              string        `yaml:"bin"`
	Headful          bool          `yaml:"headful"`
	XvfbDisplay      string        `yaml:"xvfb_display"`
	MemoryLimit      int64         `yaml:"memory_limit"`
	RecycleInterval  time.Duration `yaml:"recycle_interval"`
	ResourceBlocking []string      `yaml:"resource_blocking"`
	NavTimeout       time.Duration `yaml:"nav_timeout"`
	IdleWindow       time.Duration `yaml:"idle_window"`
	ViewportWidth    int           `yaml:"viewport_width"`
	ViewportHeight   int           `yaml:"viewport_height"`
}

// A4 in inches with 10mm margins.
const (
	a4Width  = 8.27
	a4Height = 11.69
	a4Margin = 10.0 / 25.4
)

// BrowserProvider renders pages in a shared Chrome instance.
type BrowserProvider struct {
	mgr    *browser.Manager
	tabOpt browser.TabOptions
	logger *slog.Logger
}

// NewBrowserProvider creates a provider. Chrome starts lazily on first use or
// eagerly with Start.
func NewBrowserProvider(cfg BrowserConfig, logger *slog.Logger) *BrowserProvider {
	if logger == nil {
		logger = slog.Default()
	}
	level := browser.LevelHeadless
	if cfg.Headful {
		level = browser.LevelHeadful
	}
	return &BrowserProvider{
		mgr: browser.NewManager(browser.Config{
			RemoteURL:        cfg.RemoteURL,
			Bin:              cfg.Bin,
			MemoryLimit:      cfg.MemoryLimit,
			RecycleInterval:  cfg.RecycleInterval,
			ResourceBlocking: cfg.ResourceBlocking,
			Stealth:          level,
			XvfbDisplay:      cfg.XvfbDisplay,
			Logger:           logger,
		}),
		tabOpt: browser.TabOptions{
			NavTimeout: cfg.NavTimeout,
			IdleWindow: cfg.IdleWindow,
			Width:      cfg.ViewportWidth,
			Height:     cfg.ViewportHeight,
		},
		logger: logger,
	}
}

// Start launches Chrome. ctx bounds the recycle monitor.
func (p *BrowserProvider) Start(ctx context.Context) error {
	if err := p.mgr.Start(ctx); err != nil {
		return fmt.Errorf("snapshot: start browser: %w", err)
	}
	return nil
}

// Close shuts Chrome down.
func (p *BrowserProvider) Close() error {
	return p.mgr.Close()
}

// Open navigates a fresh tab to pageURL and waits for network idle.
func (p *BrowserProvider) Open(ctx context.Context, pageURL string) (Snapshot, error) {
	if err := p.Start(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAcquisition, err)
	}
	tab, err := browser.OpenTab(ctx, p.mgr, pageURL, p.tabOpt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAcquisition, err)
	}

	title, err := tab.Eval(ctx, titleScript)
	if err != nil {
		p.logger.Warn("snapshot: read title failed", "url", pageURL, "error", err)
	}
	return &browserSnapshot{tab: tab, url: pageURL, title: SanitizeTitle(title)}, nil
}

// PrintPDF renders a self-contained HTML document to an A4 PDF with 10mm
// margins and backgrounds.
func (p *BrowserProvider) PrintPDF(ctx context.Context, html string) ([]byte, error) {
	if err := p.Start(ctx); err != nil {
		return nil, err
	}
	return browser.PrintPDF(ctx, p.mgr, html, browser.PDFOptions{
		PaperWidth:      a4Width,
		PaperHeight:     a4Height,
		Margin:          a4Margin,
		PrintBackground: true,
	})
}

type browserSnapshot struct {
	tab   *browser.Tab
	url   string
	title string
}

func (s *browserSnapshot) URL() string   { return s.url }
func (s *browserSnapshot) Title() string { return s.title }

func (s *browserSnapshot) Select(ctx context.Context, selector string, limit int) ([]StyleSample, error) {
	raw, err := s.tab.Eval(ctx, styleReducer, selector, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: select %q: %v", ErrAcquisition, selector, err)
	}
	var samples []StyleSample
	if err := json.Unmarshal([]byte(raw), &samples); err != nil {
		return nil, fmt.Errorf("%w: decode styles: %v", ErrAcquisition, err)
	}
	return limitSamples(samples, limit), nil
}

func (s *browserSnapshot) Screenshot(ctx context.Context) ([]byte, error) {
	data, err := s.tab.Screenshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAcquisition, err)
	}
	return data, nil
}

func (s *browserSnapshot) Close() error {
	return s.tab.Close()
}
