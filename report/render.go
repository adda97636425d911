// Package report renders an analysis into a self-contained HTML document,
// an A4 PDF and a Markdown summary.
//
// The HTML embeds the screenshot as a data URI so the artifact has no
// external references. All dynamic text is HTML-escaped before it reaches
// the template. A render is all-or-nothing: artifacts are staged under
// temporary names and renamed only after every one of them succeeded.
package report

import (
	"context"
	_ "embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/hazyhaar/designscore/analyzer"
)

// ErrRender wraps every failure to produce report artifacts.
var ErrRender = errors.New("report: render failed")

// Artifact file names inside a run directory.
const (
	HTMLFile     = "report.html"
	PDFFile      = "report.pdf"
	MarkdownFile = "report.md"
)

const (
	colorRowCap = 8
	noDataRow   = `<tr><td colspan="2">No data</td></tr>`
	dateLayout  = "2006-01-02 15:04:05 MST"
)

//go:embed template.html
var defaultTemplate string

// DefaultTemplate returns the built-in report template.
func DefaultTemplate() *Template {
	return ParseTemplate(defaultTemplate)
}

// PDFPrinter converts an HTML document to PDF bytes.
type PDFPrinter interface {
	PrintPDF(ctx context.Context, html string) ([]byte, error)
}

// Renderer produces report artifacts. It is safe for concurrent use.
type Renderer struct {
	tmpl       *Template
	printer    PDFPrinter
	thresholds analyzer.Thresholds
	loc        *time.Location
	markdown   bool
	md         *converter.Converter
	logger     *slog.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

func WithTemplate(t *Template) Option { return func(r *Renderer) { r.tmpl = t } }

func WithThresholds(th analyzer.Thresholds) Option { return func(r *Renderer) { r.thresholds = th } }

// WithLocation sets the time zone of the DATE placeholder. Default UTC.
func WithLocation(loc *time.Location) Option { return func(r *Renderer) { r.loc = loc } }

// WithMarkdown toggles the report.md artifact. Default on.
func WithMarkdown(on bool) Option { return func(r *Renderer) { r.markdown = on } }

func WithLogger(l *slog.Logger) Option { return func(r *Renderer) { r.logger = l } }

// New creates a Renderer printing PDFs through printer.
func New(printer PDFPrinter, opts ...Option) *Renderer {
	r := &Renderer{
		tmpl:       DefaultTemplate(),
		printer:    printer,
		thresholds: analyzer.DefaultThresholds(),
		loc:        time.UTC,
		markdown:   true,
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Render writes report.html, report.pdf and, when enabled, report.md into
// outDir. On error no artifact of this call is left behind.
func (r *Renderer) Render(ctx context.Context, res *analyzer.AnalysisResult, screenshotPath, outDir string) (analyzer.RenderedReport, error) {
	png, err := os.ReadFile(screenshotPath)
	if err != nil {
		return analyzer.RenderedReport{}, fmt.Errorf("%w: read screenshot: %w", ErrRender, err)
	}
	if r.printer == nil {
		return analyzer.RenderedReport{}, fmt.Errorf("%w: no pdf printer configured", ErrRender)
	}

	page := r.HTML(res, png)
	var st stage
	defer st.discard()

	if err := st.write(outDir, HTMLFile, []byte(page)); err != nil {
		return analyzer.RenderedReport{}, err
	}

	pdf, err := r.printer.PrintPDF(ctx, page)
	if err != nil {
		return analyzer.RenderedReport{}, fmt.Errorf("%w: print pdf: %w", ErrRender, err)
	}
	if err := st.write(outDir, PDFFile, pdf); err != nil {
		return analyzer.RenderedReport{}, err
	}
	pages, err := validatePDF(st.tempPath(PDFFile))
	if err != nil {
		return analyzer.RenderedReport{}, err
	}

	rep := analyzer.RenderedReport{
		HTMLPath: filepath.Join(outDir, HTMLFile),
		PDFPath:  filepath.Join(outDir, PDFFile),
	}
	if r.markdown {
		md, err := r.Markdown(res)
		if err != nil {
			return analyzer.RenderedReport{}, err
		}
		if err := st.write(outDir, MarkdownFile, []byte(md)); err != nil {
			return analyzer.RenderedReport{}, err
		}
		rep.MarkdownPath = filepath.Join(outDir, MarkdownFile)
	}

	if err := st.commit(); err != nil {
		return analyzer.RenderedReport{}, err
	}
	r.logger.Debug("report: rendered", "run_id", res.ID, "dir", outDir, "pdf_pages", pages, "html_bytes", len(page))
	return rep, nil
}

// HTML returns the filled template for res and the screenshot bytes.
func (r *Renderer) HTML(res *analyzer.AnalysisResult, png []byte) string {
	return r.tmpl.Execute(Values(res, png, analyzer.Recommend(res.Breakdown, r.thresholds), r.loc))
}

// Values computes every placeholder value. All text is escaped.
func Values(res *analyzer.AnalysisResult, png []byte, recs []analyzer.Recommendation, loc *time.Location) map[string]string {
	if loc == nil {
		loc = time.UTC
	}
	b := res.Breakdown
	tH, cH, lH := barHeight(b.Typography), barHeight(b.Color), barHeight(b.Layout)
	layout := res.Layout.Layout()

	return map[string]string{
		"URL":               esc(res.URL),
		"TITLE":             esc(res.Title),
		"RUN_ID":            esc(res.ID),
		"DATE":              esc(res.CreatedAt.In(loc).Format(dateLayout)),
		"TOTAL":             strconv.Itoa(b.Total),
		"T":                 strconv.Itoa(clamp(b.Typography)),
		"C":                 strconv.Itoa(clamp(b.Color)),
		"L":                 strconv.Itoa(clamp(b.Layout)),
		"SCREENSHOT_BASE64": "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		"TYPO_ROWS":         typographyRows(res.Typography.Typography()),
		"COLOR_ROWS":        colorRows(res.Color.Color()),
		"LAYOUT_GRID":       strconv.Itoa(layout.Grid),
		"LAYOUT_FLEX":       strconv.Itoa(layout.Flex),
		"LAYOUT_BLOCK":      strconv.Itoa(layout.Block),
		"BAR_T_H":           strconv.Itoa(tH),
		"BAR_T_Y":           strconv.Itoa(barY(tH)),
		"BAR_C_H":           strconv.Itoa(cH),
		"BAR_C_Y":           strconv.Itoa(barY(cH)),
		"BAR_L_H":           strconv.Itoa(lH),
		"BAR_L_Y":           strconv.Itoa(barY(lH)),
		"RECOMMENDATIONS":   recommendationItems(recs),
	}
}

// Markdown returns a text summary of res: scores, recommendations and the
// extracted details, without the screenshot.
func (r *Renderer) Markdown(res *analyzer.AnalysisResult) (string, error) {
	recs := analyzer.Recommend(res.Breakdown, r.thresholds)
	var b strings.Builder
	fmt.Fprintf(&b, "<h1>Design quality report</h1><p><a href=\"%s\">%s</a><br>%s</p>",
		esc(res.URL), esc(res.URL), esc(res.CreatedAt.In(r.loc).Format(dateLayout)))
	if res.Title != "" {
		fmt.Fprintf(&b, "<p><em>%s</em></p>", esc(res.Title))
	}

	b.WriteString("<table><thead><tr><th>Dimension</th><th>Score</th><th>Assessment</th></tr></thead><tbody>")
	scores := []int{res.Breakdown.Typography, res.Breakdown.Color, res.Breakdown.Layout, res.Breakdown.Total}
	for i, rec := range recs {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%d</td><td>%s</td></tr>", esc(string(rec.Dimension)), scores[i], esc(rec.Summary))
	}
	b.WriteString("</tbody></table>")

	b.WriteString("<h2>Recommendations</h2><ul>")
	for _, rec := range recs {
		fmt.Fprintf(&b, "<li>%s</li>", esc(rec.Advice))
	}
	b.WriteString("</ul>")

	b.WriteString("<h2>Typography</h2><ul>")
	for _, f := range res.Typography.Typography().TopFamilies {
		fmt.Fprintf(&b, "<li>%s: %d elements</li>", esc(f.Family), f.Count)
	}
	b.WriteString("</ul>")

	l := res.Layout.Layout()
	fmt.Fprintf(&b, "<h2>Layout</h2><p>flex %d, grid %d, block %d</p>", l.Flex, l.Grid, l.Block)

	md, err := r.md.ConvertString(b.String())
	if err != nil {
		return "", fmt.Errorf("%w: markdown: %w", ErrRender, err)
	}
	return md + "\n", nil
}

func esc(s string) string { return html.EscapeString(s) }

func clamp(v int) int { return max(0, min(100, v)) }

// barHeight maps a score to a bar of 0..100 units.
func barHeight(score int) int { return clamp(score) }

// barY is the top of a bar whose baseline sits at y=110.
func barY(h int) int { return 10 + (100 - h) }

func typographyRows(d analyzer.TypographyDetails) string {
	if len(d.TopFamilies) == 0 {
		return noDataRow
	}
	var b strings.Builder
	for _, f := range d.TopFamilies {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%d elements</td></tr>", esc(f.Family), f.Count)
	}
	return b.String()
}

func colorRows(d analyzer.ColorDetails) string {
	if len(d.Pairs) == 0 {
		return noDataRow
	}
	pairs := d.Pairs
	if len(pairs) > colorRowCap {
		pairs = pairs[:colorRowCap]
	}
	var b strings.Builder
	for _, p := range pairs {
		b.WriteString("<tr><td><code>")
		b.WriteString(esc(p.FG))
		b.WriteString("</code> / <code>")
		b.WriteString(esc(p.BG))
		b.WriteString("</code>")
		if p.Contrast > 0 {
			fmt.Fprintf(&b, " <small>%.2f:1</small>", p.Contrast)
		}
		b.WriteString(`</td><td><div style="display:flex;gap:6px;align-items:center">`)
		b.WriteString(swatch(p.FG))
		b.WriteString(swatch(p.BG))
		b.WriteString("</div></td></tr>")
	}
	return b.String()
}

const swatchStyle = "display:inline-block;width:24px;height:16px;border:1px solid #ddd"

func swatch(color string) string {
	style := swatchStyle
	if safeCSSColor(color) {
		style += ";background:" + esc(color)
	}
	return `<span style="` + style + `"></span>`
}

// safeCSSColor rejects values that could break out of a style declaration.
func safeCSSColor(s string) bool {
	if s == "" || len(s) > 64 {
		return false
	}
	lower := strings.ToLower(s)
	if strings.Contains(lower, "url(") || strings.Contains(lower, "expression(") {
		return false
	}
	return !strings.ContainsAny(s, ";:\"'<>{}\\&")
}

func recommendationItems(recs []analyzer.Recommendation) string {
	var b strings.Builder
	for _, r := range recs {
		fmt.Fprintf(&b, "<li><strong>%s: %s.</strong> %s</li>",
			esc(dimensionLabel(r.Dimension)), esc(r.Summary), esc(r.Advice))
	}
	return b.String()
}

func dimensionLabel(d analyzer.Dimension) string {
	s := string(d)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func validatePDF(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: open pdf: %w", ErrRender, err)
	}
	defer f.Close()

	pdfCtx, err := api.ReadValidateAndOptimize(f, model.NewDefaultConfiguration())
	if err != nil {
		return 0, fmt.Errorf("%w: invalid pdf: %w", ErrRender, err)
	}
	if pdfCtx.PageCount < 1 {
		return 0, fmt.Errorf("%w: pdf has no pages", ErrRender)
	}
	return pdfCtx.PageCount, nil
}
