package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/designscore/guard"
)

// maxStaticBody caps a static fetch to prevent runaway downloads.
const maxStaticBody = 10 << 20

// StaticProvider fetches pages over plain HTTP and resolves styles from
// inline style attributes only. Stylesheets and scripts are not evaluated, so
// it approximates what a browser would compute; it needs no Chrome.
type StaticProvider struct {
	client *http.Client
	ua     string
	logger *slog.Logger
}

// StaticOption configures a StaticProvider.
type StaticOption func(*StaticProvider)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) StaticOption {
	return func(p *StaticProvider) { p.client = c }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) StaticOption {
	return func(p *StaticProvider) { p.ua = ua }
}

// WithStaticLogger sets a custom logger.
func WithStaticLogger(l *slog.Logger) StaticOption {
	return func(p *StaticProvider) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewStaticProvider creates a StaticProvider with a 30s client timeout.
func NewStaticProvider(opts ...StaticOption) *StaticProvider {
	p := &StaticProvider{
		client: &http.Client{Timeout: 30 * time.Second},
		ua:     "Mozilla/5.0 (compatible; designscore/1.0)",
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Open fetches pageURL and parses it.
func (p *StaticProvider) Open(ctx context.Context, pageURL string) (Snapshot, error) {
	body, err := p.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return ParseHTML(pageURL, body)
}

func (p *StaticProvider) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: new request: %v", ErrAcquisition, err)
	}
	req.Header.Set("User-Agent", p.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", ErrAcquisition, pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: fetch %s: status %d", ErrAcquisition, pageURL, resp.StatusCode)
	}
	body, err := guard.LimitedReadAll(resp.Body, maxStaticBody)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrAcquisition, err)
	}

	p.logger.Debug("snapshot: static fetch", "url", pageURL, "status", resp.StatusCode, "size", len(body))
	return body, nil
}

// ParseHTML builds a static snapshot from an HTML document.
func ParseHTML(pageURL string, body []byte) (Snapshot, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %v", ErrAcquisition, err)
	}
	s := &staticSnapshot{url: pageURL}
	s.title = SanitizeTitle(findTitle(doc))
	if b := findFirst(doc, atom.Body); b != nil {
		s.elements = resolveStyles(b)
	}
	return s, nil
}

type staticSnapshot struct {
	url      string
	title    string
	elements []StyleSample // body descendants, document order
}

func (s *staticSnapshot) URL() string   { return s.url }
func (s *staticSnapshot) Title() string { return s.title }

// Select supports "body *", "*" and bare tag names.
func (s *staticSnapshot) Select(_ context.Context, selector string, limit int) ([]StyleSample, error) {
	sel := strings.TrimSpace(strings.ToLower(selector))
	var out []StyleSample
	switch sel {
	case BodyDescendants, "*":
		out = append(out, s.elements...)
	default:
		if strings.ContainsAny(sel, " .#[:>+~") {
			return nil, fmt.Errorf("snapshot: static selector %q not supported", selector)
		}
		for _, e := range s.elements {
			if e.Tag == sel {
				out = append(out, e)
			}
		}
	}
	return limitSamples(out, limit), nil
}

func (s *staticSnapshot) Screenshot(context.Context) ([]byte, error) {
	return placeholderPNG(), nil
}

func (s *staticSnapshot) Close() error { return nil }

// inherited holds the properties CSS inherits down the tree.
type inherited struct {
	fontFamily, fontSize, fontWeight, color string
}

var rootStyle = inherited{
	fontFamily: `"Times New Roman"`,
	fontSize:   "16px",
	fontWeight: "400",
	color:      "rgb(0, 0, 0)",
}

const transparent = "rgba(0, 0, 0, 0)"

func resolveStyles(body *html.Node) []StyleSample {
	var out []StyleSample
	bodyStyle := applyTag(rootStyle, body.DataAtom)
	bodyStyle, _, _ = applyInline(bodyStyle, attr(body, "style"))

	var walk func(n *html.Node, parent inherited)
	walk = func(n *html.Node, parent inherited) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			st := applyTag(parent, c.DataAtom)
			st, bg, display := applyInline(st, attr(c, "style"))
			if bg == "" {
				bg = transparent
			}
			if display == "" {
				display = defaultDisplay(c)
			}
			out = append(out, StyleSample{
				Tag:             strings.ToLower(c.Data),
				FontFamily:      st.fontFamily,
				FontSize:        st.fontSize,
				FontWeight:      st.fontWeight,
				Color:           st.color,
				BackgroundColor: bg,
				Display:         display,
			})
			walk(c, st)
		}
	}
	walk(body, bodyStyle)
	return out
}

var headingSizes = map[atom.Atom]string{
	atom.H1: "32px", atom.H2: "24px", atom.H3: "18.72px",
	atom.H4: "16px", atom.H5: "13.28px", atom.H6: "10.72px",
}

func applyTag(st inherited, a atom.Atom) inherited {
	if size, ok := headingSizes[a]; ok {
		st.fontSize = size
		st.fontWeight = "700"
	}
	switch a {
	case atom.B, atom.Strong, atom.Th:
		st.fontWeight = "700"
	case atom.Code, atom.Pre, atom.Kbd, atom.Samp:
		st.fontFamily = "monospace"
	case atom.Small:
		st.fontSize = "13.33px"
	}
	return st
}

// applyInline parses a style attribute. Returns the updated inherited set plus
// the non-inherited background-color and display, empty when not declared.
func applyInline(st inherited, style string) (inherited, string, string) {
	var bg, display string
	for _, decl := range strings.Split(style, ";") {
		prop, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		val = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(val), "!important"))
		if val == "" || strings.EqualFold(val, "inherit") {
			continue
		}
		switch prop {
		case "font-family":
			st.fontFamily = val
		case "font-size":
			st.fontSize = val
		case "font-weight":
			st.fontWeight = normalizeWeight(val)
		case "color":
			st.color = val
		case "background-color", "background":
			bg = val
		case "display":
			display = strings.ToLower(val)
		}
	}
	return st, bg, display
}

func normalizeWeight(v string) string {
	switch strings.ToLower(v) {
	case "normal":
		return "400"
	case "bold":
		return "700"
	}
	return v
}

func defaultDisplay(n *html.Node) string {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Template, atom.Noscript, atom.Head, atom.Meta, atom.Link, atom.Title:
		return "none"
	case atom.A, atom.Span, atom.B, atom.Strong, atom.Em, atom.I, atom.U, atom.Small, atom.Code,
		atom.Abbr, atom.Label, atom.Sub, atom.Sup, atom.Kbd, atom.Samp, atom.Q, atom.Cite, atom.Time,
		atom.Mark, atom.Br, atom.Svg:
		return "inline"
	case atom.Img, atom.Button, atom.Input, atom.Select, atom.Textarea:
		return "inline-block"
	case atom.Li:
		return "list-item"
	case atom.Table:
		return "table"
	case atom.Tr:
		return "table-row"
	case atom.Td, atom.Th:
		return "table-cell"
	}
	if hasAttr(n, "hidden") {
		return "none"
	}
	return "block"
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

func findTitle(doc *html.Node) string {
	t := findFirst(doc, atom.Title)
	if t == nil || t.FirstChild == nil {
		return ""
	}
	return t.FirstChild.Data
}
