package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/designscore/analyzer"
	"github.com/hazyhaar/designscore/dbopen"
	"github.com/hazyhaar/designscore/guard"
	"github.com/hazyhaar/designscore/observability"
	"github.com/hazyhaar/designscore/shield"
	"github.com/hazyhaar/designscore/snapshot"
	"github.com/hazyhaar/designscore/store"
)

const testPage = `<!DOCTYPE html><html><head><title>Test Shop</title></head>
<body style="font-family: Arial">
<header style="display:flex; background-color: #fff"><h1>Shop</h1></header>
<main><p style="font-family: Georgia">Hello</p><p>World</p></main>
</body></html>`

type pageProvider struct {
	html string
	err  error
}

func (p pageProvider) Open(_ context.Context, u string) (snapshot.Snapshot, error) {
	if p.err != nil {
		return nil, p.err
	}
	return snapshot.ParseHTML(u, []byte(p.html))
}

type fixture struct {
	handler http.Handler
	store   *store.Store
	dir     string
}

func newFixture(t *testing.T, p snapshot.Provider, opts ...Option) *fixture {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(store.Schema))
	st := &store.Store{DB: db}
	dir := t.TempDir()
	a := analyzer.New(p, dir,
		analyzer.WithURLPolicy(guard.URLPolicy{AllowPrivate: true}),
		analyzer.WithIDGenerator(func() string { return "run_1" }),
		analyzer.WithCatalog(st),
	)
	srv := New(a, st, dir, opts...)
	return &fixture{handler: srv.Routes(shield.TraceID), store: st, dir: dir}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestAnalyze_OK(t *testing.T) {
	f := newFixture(t, pageProvider{html: testPage})

	w := f.do(t, "POST", "/api/analyze", `{"url":"https://shop.test/"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[analyzeResponse](t, w)
	if !resp.OK || resp.ID != "run_1" || !strings.HasSuffix(resp.ResultPath, "run_1/result.json") {
		t.Errorf("response = %+v", resp)
	}
	if w.Header().Get("X-Trace-ID") == "" {
		t.Error("missing trace header")
	}

	e, err := f.store.Get(context.Background(), "run_1")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if e.Scores.Total != resp.TotalScore {
		t.Errorf("catalog total %d, response total %d", e.Scores.Total, resp.TotalScore)
	}

	// Listing, detail and artifacts.
	w = f.do(t, "GET", "/api/analyses", "")
	list := decode[map[string][]store.Entry](t, w)
	if len(list["analyses"]) != 1 || list["analyses"][0].ID != "run_1" {
		t.Errorf("list = %+v", list)
	}

	w = f.do(t, "GET", "/api/analyses/run_1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	detail := decode[struct {
		ID              string                    `json:"id"`
		Recommendations []analyzer.Recommendation `json:"recommendations"`
	}](t, w)
	if detail.ID != "run_1" || len(detail.Recommendations) != 4 {
		t.Errorf("detail = %+v", detail)
	}

	w = f.do(t, "GET", "/results/run_1/result.json", "")
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("result.json: %d %q", w.Code, w.Header().Get("Content-Type"))
	}
	var res analyzer.AnalysisResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil || res.ID != "run_1" {
		t.Errorf("served result = %+v, %v", res, err)
	}

	w = f.do(t, "GET", "/results/run_1/homepage.png", "")
	if w.Code != http.StatusOK || !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Errorf("screenshot: %d", w.Code)
	}
}

func TestAnalyze_BadRequests(t *testing.T) {
	f := newFixture(t, pageProvider{html: testPage})
	tests := []struct {
		name, body, wantErr string
	}{
		{"malformed json", `{"url":`, "invalid request body"},
		{"missing url", `{}`, "url is required"},
		{"bad scheme", `{"url":"ftp://example.test/"}`, "invalid url"},
		{"not a url", `{"url":"not a url"}`, "invalid url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, "POST", "/api/analyze", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", w.Code)
			}
			if got := decode[map[string]string](t, w)["error"]; got != tt.wantErr {
				t.Errorf("error = %q, want %q", got, tt.wantErr)
			}
		})
	}
}

func TestAnalyze_SSRFIs400(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(store.Schema))
	st := &store.Store{DB: db}
	a := analyzer.New(pageProvider{html: testPage}, t.TempDir(), analyzer.WithCatalog(st))
	h := New(a, st, t.TempDir()).Routes()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/api/analyze", strings.NewReader(`{"url":"http://127.0.0.1/"}`)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAnalyze_FailureIs500Generic(t *testing.T) {
	acqErr := errors.Join(snapshot.ErrAcquisition, errors.New("net::ERR_NAME_NOT_RESOLVED at 10.1.2.3"))
	f := newFixture(t, pageProvider{err: acqErr})

	w := f.do(t, "POST", "/api/analyze", `{"url":"https://down.test/"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if strings.Contains(body, "ERR_NAME") || strings.Contains(body, "10.1.2.3") {
		t.Errorf("internal details leaked: %s", body)
	}
	if decode[map[string]string](t, w)["error"] != "analysis failed" {
		t.Errorf("body = %s", body)
	}
}

func TestAnalyze_AuditRecorded(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(store.Schema))
	if err := observability.Init(db); err != nil {
		t.Fatal(err)
	}
	audit := observability.NewAuditLogger(db, 10)
	st := &store.Store{DB: db}
	a := analyzer.New(pageProvider{html: testPage}, t.TempDir(),
		analyzer.WithURLPolicy(guard.URLPolicy{AllowPrivate: true}), analyzer.WithCatalog(st))
	h := New(a, st, t.TempDir(), WithAudit(audit)).Routes(shield.TraceID)

	for _, body := range []string{`{"url":"https://ok.test/"}`, `{"url":"ftp://x"}`} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/analyze", strings.NewReader(body)))
	}
	audit.Close()

	entries, err := audit.Query(context.Background(), observability.AuditFilter{ComponentName: "api"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	statuses := map[string]int{}
	for _, e := range entries {
		statuses[e.Status]++
		if e.OperationType != "analyze" || e.RequestID == "" {
			t.Errorf("entry = %+v", e)
		}
	}
	if statuses["success"] != 1 || statuses["error"] != 1 {
		t.Errorf("statuses = %v", statuses)
	}
}

func TestGet_NotFoundAndInvalid(t *testing.T) {
	f := newFixture(t, pageProvider{html: testPage})
	if w := f.do(t, "GET", "/api/analyses/missing", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing: %d", w.Code)
	}
	if w := f.do(t, "GET", "/api/analyses/bad%20id", ""); w.Code != http.StatusBadRequest {
		t.Errorf("invalid id: %d", w.Code)
	}
}

func TestList_Limit(t *testing.T) {
	f := newFixture(t, pageProvider{html: testPage})
	if w := f.do(t, "GET", "/api/analyses?limit=abc", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit: %d", w.Code)
	}
	w := f.do(t, "GET", "/api/analyses?limit=5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := decode[map[string][]store.Entry](t, w)["analyses"]; got == nil || len(got) != 0 {
		t.Errorf("empty catalog should list [], got %v", got)
	}
}

func TestResultFile_Rejects(t *testing.T) {
	f := newFixture(t, pageProvider{html: testPage})
	f.do(t, "POST", "/api/analyze", `{"url":"https://shop.test/"}`)

	for _, path := range []string{
		"/results/run_1/secret.txt",
		"/results/..%2F..%2Fetc/result.json",
		"/results/run_1/..%2Fresult.json",
		"/results/nope/result.json",
	} {
		if w := f.do(t, "GET", path, ""); w.Code != http.StatusNotFound {
			t.Errorf("%s: status %d, want 404", path, w.Code)
		}
	}
}

func TestHealth(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(store.Schema))
	if err := observability.Init(db); err != nil {
		t.Fatal(err)
	}
	st := &store.Store{DB: db}
	h := New(nil, st, t.TempDir(), WithHealth(db, "designscore", time.Minute)).Routes()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	if got := decode[healthResponse](t, w); w.Code != http.StatusOK || got.Status != "degraded" {
		t.Errorf("no heartbeat: %d %+v", w.Code, got)
	}

	if err := observability.NewHeartbeatWriter(db, "designscore", time.Minute).WriteHeartbeat(context.Background()); err != nil {
		t.Fatal(err)
	}
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	got := decode[healthResponse](t, w)
	if got.Status != "ok" || got.Heartbeat == nil || !got.Heartbeat.Alive {
		t.Errorf("with heartbeat: %+v", got)
	}

	w = httptest.NewRecorder()
	New(nil, st, t.TempDir()).Routes().ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("bare health: %d", w.Code)
	}
}
