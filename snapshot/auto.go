package snapshot

import (
	"context"
	"log/slog"
)

// AutoProvider tries a static fetch first and escalates to the browser when
// the page looks like a client-rendered shell.
type AutoProvider struct {
	static  *StaticProvider
	browser Provider
	logger  *slog.Logger
}

// NewAutoProvider combines a static provider with a browser-backed one.
func NewAutoProvider(static *StaticProvider, browser Provider, logger *slog.Logger) *AutoProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &AutoProvider{static: static, browser: browser, logger: logger}
}

// Open implements Provider.
func (a *AutoProvider) Open(ctx context.Context, pageURL string) (Snapshot, error) {
	body, err := a.static.fetch(ctx, pageURL)
	if err == nil && IsSufficient(body) {
		return ParseHTML(pageURL, body)
	}
	if err != nil {
		a.logger.Debug("snapshot: static fetch failed, escalating", "url", pageURL, "error", err)
	} else {
		a.logger.Debug("snapshot: insufficient static html, escalating", "url", pageURL, "size", len(body))
	}
	return a.browser.Open(ctx, pageURL)
}
