// Package mcpserver exposes designscore as MCP tools.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/designscore/analyzer"
	"github.com/hazyhaar/designscore/kit"
	"github.com/hazyhaar/designscore/observability"
	"github.com/hazyhaar/designscore/store"
)

// Runner executes one analysis.
type Runner interface {
	Analyze(ctx context.Context, rawURL string) (*analyzer.AnalysisResult, *analyzer.RunOutcome, error)
}

// Catalog is the read side of the run catalog.
type Catalog interface {
	Get(ctx context.Context, id string) (*store.Entry, error)
	Result(ctx context.Context, id string) (*analyzer.AnalysisResult, error)
	List(ctx context.Context, limit int) ([]*store.Entry, error)
}

// Tools holds the dependencies of the designscore tools.
type Tools struct {
	Runner     Runner
	Catalog    Catalog
	Weights    analyzer.Weights
	Thresholds analyzer.Thresholds
	Audit      *observability.AuditLogger // optional
}

// NewServer returns an MCP server with every tool registered.
func NewServer(t *Tools, version string) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "designscore", Version: version}, nil)
	t.Register(srv)
	return srv
}

// Register adds the designscore tools to srv.
func (t *Tools) Register(srv *mcp.Server) {
	if t.Weights == (analyzer.Weights{}) {
		t.Weights = analyzer.DefaultWeights()
	}
	if t.Thresholds == (analyzer.Thresholds{}) {
		t.Thresholds = analyzer.DefaultThresholds()
	}
	t.registerAnalyzeTool(srv)
	t.registerGetTool(srv)
	t.registerListTool(srv)
	t.registerRecommendTool(srv)
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// audited wraps an endpoint with an audit log entry per call.
func (t *Tools) audited(op string, next kit.Endpoint) kit.Endpoint {
	if t.Audit == nil {
		return next
	}
	return func(ctx context.Context, req any) (any, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		t.Audit.LogAsync(t.Audit.NewEntry("mcp", op, req, resp, err, time.Since(start)))
		return resp, err
	}
}

// --- analyze ---

type analyzeRequest struct {
	URL string `json:"url"`
}

type analyzeResponse struct {
	ID              string                    `json:"id"`
	URL             string                    `json:"url"`
	Scores          analyzer.ScoreBreakdown   `json:"scores"`
	Recommendations []analyzer.Recommendation `json:"recommendations"`
	ResultPath      string                    `json:"resultPath"`
	Report          analyzer.RenderedReport   `json:"report"`
	ReportError     string                    `json:"reportError,omitempty"`
}

func (t *Tools) registerAnalyzeTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "designscore_analyze",
		Description: "Analyze the design quality of a web page. Returns typography, color, layout and total scores with recommendations.",
		InputSchema: inputSchema(map[string]any{
			"url": map[string]any{"type": "string", "description": "Absolute http(s) URL of the page"},
		}, []string{"url"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*analyzeRequest)
		if r.URL == "" {
			return nil, errors.New("url is required")
		}
		res, out, err := t.Runner.Analyze(ctx, r.URL)
		if err != nil {
			if errors.Is(err, analyzer.ErrInvalidURL) {
				return nil, errors.New("invalid url")
			}
			kit.Logger(ctx, nil).Error("mcp: analysis failed", "url", r.URL, "error", err)
			return nil, errors.New("analysis failed")
		}
		resp := &analyzeResponse{
			ID:              res.ID,
			URL:             res.URL,
			Scores:          res.Breakdown,
			Recommendations: analyzer.Recommend(res.Breakdown, t.Thresholds),
			ResultPath:      out.ResultPath,
			Report:          out.Report,
		}
		if out.ReportErr != nil {
			resp.ReportError = "report rendering failed"
		}
		return resp, nil
	}

	kit.RegisterMCPTool(srv, tool, t.audited("analyze", endpoint), kit.DecodeArgs[analyzeRequest]())
}

// --- get ---

type getRequest struct {
	ID string `json:"id"`
}

type getResponse struct {
	Entry           *store.Entry              `json:"entry"`
	Result          *analyzer.AnalysisResult  `json:"result"`
	Recommendations []analyzer.Recommendation `json:"recommendations"`
	Summaries       []string                  `json:"summaries"`
}

func (t *Tools) registerGetTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "designscore_get",
		Description: "Get a past analysis by run id, including the full extracted details.",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Run id returned by designscore_analyze"},
		}, []string{"id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*getRequest)
		e, err := t.Catalog.Get(ctx, r.ID)
		if err != nil {
			return nil, catalogError(err, r.ID)
		}
		res, err := t.Catalog.Result(ctx, r.ID)
		if err != nil {
			return nil, catalogError(err, r.ID)
		}
		recs := analyzer.Recommend(e.Scores, t.Thresholds)
		return &getResponse{
			Entry:           e,
			Result:          res,
			Recommendations: recs,
			Summaries:       analyzer.Summaries(recs),
		}, nil
	}

	kit.RegisterMCPTool(srv, tool, t.audited("get", endpoint), kit.DecodeArgs[getRequest]())
}

func catalogError(err error, id string) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("analysis %q not found", id)
	}
	return errors.New("catalog unavailable")
}

// --- list ---

type listRequest struct {
	Limit int `json:"limit,omitempty"`
}

func (t *Tools) registerListTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "designscore_list",
		Description: "List recent analyses, newest first.",
		InputSchema: inputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Max results (default 50)"},
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*listRequest)
		entries, err := t.Catalog.List(ctx, r.Limit)
		if err != nil {
			return nil, errors.New("catalog unavailable")
		}
		if entries == nil {
			entries = []*store.Entry{}
		}
		return map[string]any{"analyses": entries}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, kit.DecodeArgs[listRequest]())
}

// --- recommend ---

type recommendRequest struct {
	Typography *int `json:"typography"`
	Color      *int `json:"color"`
	Layout     *int `json:"layout"`
}

type recommendResponse struct {
	Scores          analyzer.ScoreBreakdown   `json:"scores"`
	Recommendations []analyzer.Recommendation `json:"recommendations"`
	Summaries       []string                  `json:"summaries"`
}

func (t *Tools) registerRecommendTool(srv *mcp.Server) {
	score := map[string]any{"type": "integer", "minimum": 0, "maximum": 100}
	tool := &mcp.Tool{
		Name:        "designscore_recommend",
		Description: "Compute the weighted total and recommendations for given dimension scores (0-100).",
		InputSchema: inputSchema(map[string]any{
			"typography": score,
			"color":      score,
			"layout":     score,
		}, []string{"typography", "color", "layout"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*recommendRequest)
		if r.Typography == nil || r.Color == nil || r.Layout == nil {
			return nil, errors.New("typography, color and layout are required")
		}
		b, err := analyzer.Score(t.Weights,
			analyzer.DimensionResult{Dimension: analyzer.Typography, Score: *r.Typography, Details: analyzer.TypographyDetails{}},
			analyzer.DimensionResult{Dimension: analyzer.Color, Score: *r.Color, Details: analyzer.ColorDetails{}},
			analyzer.DimensionResult{Dimension: analyzer.Layout, Score: *r.Layout, Details: analyzer.LayoutDetails{}},
		)
		if err != nil {
			return nil, err
		}
		recs := analyzer.Recommend(b, t.Thresholds)
		return &recommendResponse{Scores: b, Recommendations: recs, Summaries: analyzer.Summaries(recs)}, nil
	}

	kit.RegisterMCPTool(srv, tool, t.audited("recommend", endpoint), kit.DecodeArgs[recommendRequest]())
}
