// Package snapshot defines the page snapshot contract consumed by the analyzer
// and the providers that satisfy it.
//
// A Snapshot is a stable, rendered view of one page: a queryable set of
// elements with their computed styles, plus a full-page raster. Providers:
//
//   - BrowserProvider: Chrome via Rod, stealth tab, waits for network idle.
//   - StaticProvider: HTTP GET + golang.org/x/net/html, inline styles only.
//   - AutoProvider: static first, escalates to the browser for SPA shells.
//
// Every failure to load or render a page wraps ErrAcquisition.
package snapshot

import (
	"context"
	"errors"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ErrAcquisition marks a failure to load or render the target page.
var ErrAcquisition = errors.New("snapshot: acquisition failed")

// BodyDescendants is the selector every extractor reads from.
const BodyDescendants = "body *"

// StyleSample is one element's computed properties relevant to scoring.
type StyleSample struct {
	Tag             string `json:"tag"`
	FontFamily      string `json:"fontFamily"`
	FontSize        string `json:"fontSize"`
	FontWeight      string `json:"fontWeight"`
	Color           string `json:"color"`
	BackgroundColor string `json:"backgroundColor"`
	Display         string `json:"display"`
}

// Snapshot is a borrowed view of a rendered page. Close releases it.
type Snapshot interface {
	URL() string
	Title() string
	// Select returns up to limit elements matching selector, in document
	// order. limit <= 0 means no cap.
	Select(ctx context.Context, selector string, limit int) ([]StyleSample, error)
	// Screenshot returns a full-page PNG.
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// Provider acquires snapshots.
type Provider interface {
	Open(ctx context.Context, pageURL string) (Snapshot, error)
}

const maxTitleLen = 200

var titlePolicy = bluemonday.StrictPolicy()

// SanitizeTitle strips markup from a page title and bounds its length.
// The result is plain text; callers still escape it when embedding in HTML.
func SanitizeTitle(raw string) string {
	clean := html.UnescapeString(titlePolicy.Sanitize(raw))
	clean = strings.Join(strings.Fields(clean), " ")
	if r := []rune(clean); len(r) > maxTitleLen {
		clean = string(r[:maxTitleLen])
	}
	return clean
}

func limitSamples(in []StyleSample, limit int) []StyleSample {
	if limit > 0 && len(in) > limit {
		return in[:limit]
	}
	return in
}
