package snapshot

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const samplePage = `<!DOCTYPE html>
<html><head><title>Shop &amp; <b>Co</b></title></head>
<body style="font-family: Inter, sans-serif; color: #333">
<header style="display: flex; background-color: rgb(255, 255, 255)">
  <h1>Brand</h1>
  <nav style="display:grid"><a href="/">Home</a></nav>
</header>
<main>
  <p style="font-family: Georgia; font-weight: bold">Lead</p>
  <p>Body <code>x</code></p>
</main>
<script>var a = 1;</script>
</body></html>`

func TestParseHTML_Styles(t *testing.T) {
	snap, err := ParseHTML("https://example.com", []byte(samplePage))
	if err != nil {
		t.Fatalf("ParseHTML: %v", err)
	}
	defer snap.Close()

	if got := snap.Title(); got != "Shop & Co" {
		t.Errorf("title = %q", got)
	}

	els, err := snap.Select(context.Background(), BodyDescendants, 0)
	if err != nil {
		t.Fatal(err)
	}
	tags := make([]string, len(els))
	for i, e := range els {
		tags[i] = e.Tag
	}
	want := "header h1 nav a main p p code script"
	if got := strings.Join(tags, " "); got != want {
		t.Fatalf("tags = %q, want %q", got, want)
	}

	header, h1, nav, a := els[0], els[1], els[2], els[3]
	if header.Display != "flex" || header.BackgroundColor != "rgb(255, 255, 255)" {
		t.Errorf("header = %+v", header)
	}
	if h1.FontFamily != "Inter, sans-serif" || h1.Color != "#333" || h1.FontWeight != "700" || h1.FontSize != "32px" {
		t.Errorf("h1 = %+v", h1)
	}
	if h1.BackgroundColor != transparent || h1.Display != "block" {
		t.Errorf("h1 non-inherited = %q %q", h1.BackgroundColor, h1.Display)
	}
	if nav.Display != "grid" {
		t.Errorf("nav display = %q", nav.Display)
	}
	if a.Display != "inline" {
		t.Errorf("a display = %q", a.Display)
	}

	lead := els[5]
	if lead.FontFamily != "Georgia" || lead.FontWeight != "700" {
		t.Errorf("lead = %+v", lead)
	}
	code := els[7]
	if code.FontFamily != "monospace" || code.FontSize != "16px" {
		t.Errorf("code = %+v", code)
	}
	if els[8].Display != "none" {
		t.Errorf("script display = %q", els[8].Display)
	}
}

func TestParseHTML_RootDefaults(t *testing.T) {
	snap, err := ParseHTML("u", []byte(`<html><body><div></div></body></html>`))
	if err != nil {
		t.Fatal(err)
	}
	els, _ := snap.Select(context.Background(), BodyDescendants, 0)
	if len(els) != 1 {
		t.Fatalf("got %d elements", len(els))
	}
	want := StyleSample{
		Tag:             "div",
		FontFamily:      `"Times New Roman"`,
		FontSize:        "16px",
		FontWeight:      "400",
		Color:           "rgb(0, 0, 0)",
		BackgroundColor: transparent,
		Display:         "block",
	}
	if els[0] != want {
		t.Errorf("got %+v, want %+v", els[0], want)
	}
}

func TestSelect_LimitAndTag(t *testing.T) {
	snap, _ := ParseHTML("u", []byte(samplePage))
	ctx := context.Background()

	els, err := snap.Select(ctx, BodyDescendants, 3)
	if err != nil || len(els) != 3 {
		t.Fatalf("limit: len=%d err=%v", len(els), err)
	}
	ps, err := snap.Select(ctx, "p", 0)
	if err != nil || len(ps) != 2 {
		t.Fatalf("tag: len=%d err=%v", len(ps), err)
	}
	if _, err := snap.Select(ctx, "div.card > p", 0); err == nil {
		t.Error("expected error for complex selector")
	}
}

func TestStaticScreenshot_IsPNG(t *testing.T) {
	snap, _ := ParseHTML("u", []byte(samplePage))
	data, err := snap.Screenshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 1 || b.Dy() != 1 {
		t.Errorf("bounds = %v", b)
	}
}

func TestStaticProvider_Open(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	p := NewStaticProvider(WithUserAgent("test-agent"))
	snap, err := p.Open(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if snap.URL() != srv.URL {
		t.Errorf("url = %q", snap.URL())
	}
	if ua != "test-agent" {
		t.Errorf("user agent = %q", ua)
	}
}

func TestStaticProvider_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewStaticProvider().Open(context.Background(), srv.URL)
	if !errors.Is(err, ErrAcquisition) {
		t.Fatalf("err = %v, want ErrAcquisition", err)
	}
}

func TestStaticProvider_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := NewStaticProvider().Open(context.Background(), addr)
	if !errors.Is(err, ErrAcquisition) {
		t.Fatalf("err = %v, want ErrAcquisition", err)
	}
}

type stubProvider struct {
	calls int
}

func (s *stubProvider) Open(_ context.Context, u string) (Snapshot, error) {
	s.calls++
	return ParseHTML(u, []byte(`<html><body><div style="display:grid"></div></body></html>`))
}

func TestAutoProvider_Escalates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/spa":
			w.Write([]byte(`<!DOCTYPE html><html><head><title>App</title></head><body><div id="root"></div><script src="/main.js"></script></body></html>`))
		default:
			w.Write([]byte(`<!DOCTYPE html><html><head><title>Doc</title></head><body><article><p>` +
				strings.Repeat("Plenty of readable words in this article. ", 20) + `</p></article></body></html>`))
		}
	}))
	defer srv.Close()

	stub := &stubProvider{}
	auto := NewAutoProvider(NewStaticProvider(), stub, nil)
	ctx := context.Background()

	if _, err := auto.Open(ctx, srv.URL+"/doc"); err != nil {
		t.Fatal(err)
	}
	if stub.calls != 0 {
		t.Fatalf("static page escalated: calls=%d", stub.calls)
	}
	if _, err := auto.Open(ctx, srv.URL+"/spa"); err != nil {
		t.Fatal(err)
	}
	if stub.calls != 1 {
		t.Fatalf("SPA shell not escalated: calls=%d", stub.calls)
	}
}

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Plain", "Plain"},
		{"  Spaced \n\t out  ", "Spaced out"},
		{"<script>alert(1)</script>Home", "Home"},
		{"Tom &amp; Jerry", "Tom & Jerry"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SanitizeTitle(tt.in); got != tt.want {
			t.Errorf("SanitizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	long := strings.Repeat("é", 300)
	if got := []rune(SanitizeTitle(long)); len(got) != maxTitleLen {
		t.Errorf("long title len = %d", len(got))
	}
}
