package browser

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// TabOptions controls navigation readiness.
type TabOptions struct {
	// NavTimeout bounds navigation plus network idle. Default: 30s.
	NavTimeout time.Duration
	// IdleWindow is how long the network must stay quiet. Default: 500ms.
	IdleWindow time.Duration
	// Viewport width/height in CSS pixels. Default: 1280x720.
	Width, Height int
}

func (o *TabOptions) defaults() {
	if o.NavTimeout <= 0 {
		o.NavTimeout = 30 * time.Second
	}
	if o.IdleWindow <= 0 {
		o.IdleWindow = 500 * time.Millisecond
	}
	if o.Width <= 0 {
		o.Width = 1280
	}
	if o.Height <= 0 {
		o.Height = 720
	}
}

// Tab is an open page that counts against the manager's recycle guard until Close.
type Tab struct {
	Page    *rod.Page
	PageURL string
	router  *rod.HijackRouter
	manager *Manager
}

// OpenTab creates a stealth tab, navigates to pageURL and waits until the
// network has been idle for IdleWindow and the load event has fired.
func OpenTab(ctx context.Context, mgr *Manager, pageURL string, opts TabOptions) (*Tab, error) {
	opts.defaults()

	b, err := mgr.acquire()
	if err != nil {
		return nil, err
	}

	page, err := stealth.Page(b)
	if err != nil {
		mgr.release()
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}
	tab := &Tab{Page: page, PageURL: pageURL, manager: mgr}

	if len(mgr.cfg.ResourceBlocking) > 0 {
		tab.router = applyResourceBlocking(page, mgr.cfg.ResourceBlocking)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  opts.Width,
		Height: opts.Height,
	}); err != nil {
		mgr.cfg.Logger.Warn("browser: set viewport failed", "error", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, opts.NavTimeout)
	defer cancel()
	p := page.Context(navCtx)

	waitIdle := p.WaitRequestIdle(opts.IdleWindow, nil, nil, nil)
	if err := p.Navigate(pageURL); err != nil {
		tab.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	waitIdle()
	if err := navCtx.Err(); err != nil {
		tab.Close()
		return nil, fmt.Errorf("browser: wait network idle %s: %w", pageURL, err)
	}
	if err := p.WaitLoad(); err != nil {
		tab.Close()
		return nil, fmt.Errorf("browser: wait load %s: %w", pageURL, err)
	}
	return tab, nil
}

// Eval runs a JS function in the page and returns its string result.
func (t *Tab) Eval(ctx context.Context, js string, args ...any) (string, error) {
	res, err := t.Page.Context(ctx).Eval(js, args...)
	if err != nil {
		return "", fmt.Errorf("browser: eval: %w", err)
	}
	return res.Value.Str(), nil
}

// Screenshot captures the full scrollable page as PNG.
func (t *Tab) Screenshot(ctx context.Context) ([]byte, error) {
	data, err := t.Page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("browser: screenshot: %w", err)
	}
	return data, nil
}

// Close closes the page and releases the recycle guard. Safe to call twice.
func (t *Tab) Close() error {
	if t.Page == nil {
		return nil
	}
	if t.router != nil {
		t.router.Stop()
	}
	err := t.Page.Close()
	t.Page = nil
	t.manager.release()
	return err
}

// PDFOptions is the print layout in inches.
type PDFOptions struct {
	PaperWidth, PaperHeight float64
	Margin                  float64
	PrintBackground         bool
}

// PrintPDF loads a self-contained HTML document into a blank tab and prints it.
func PrintPDF(ctx context.Context, mgr *Manager, html string, opts PDFOptions) ([]byte, error) {
	b, err := mgr.acquire()
	if err != nil {
		return nil, err
	}
	defer mgr.release()

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("browser: create print tab: %w", err)
	}
	defer page.Close()

	p := page.Context(ctx)
	if err := p.SetDocumentContent(html); err != nil {
		return nil, fmt.Errorf("browser: set content: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return nil, fmt.Errorf("browser: wait load: %w", err)
	}

	r, err := p.PDF(&proto.PagePrintToPDF{
		PaperWidth:      inches(opts.PaperWidth),
		PaperHeight:     inches(opts.PaperHeight),
		MarginTop:       inches(opts.Margin),
		MarginBottom:    inches(opts.Margin),
		MarginLeft:      inches(opts.Margin),
		MarginRight:     inches(opts.Margin),
		PrintBackground: opts.PrintBackground,
	})
	if err != nil {
		return nil, fmt.Errorf("browser: print pdf: %w", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("browser: read pdf stream: %w", err)
	}
	return data, nil
}

func inches(v float64) *float64 { return &v }
