package snapshot

import (
	"strings"
	"testing"
)

func TestIsSufficient_StaticPage(t *testing.T) {
	html := []byte(`<!DOCTYPE html>
<html>
<head><title>Test Page</title></head>
<body>
<main>
<article>
<h1>Article Title</h1>
<p>Lorem ipsum dolor sit amet, consectetur adipiscing elit. Sed do eiusmod tempor incididunt ut labore et dolore magna aliqua. Ut enim ad minim veniam, quis nostrud exercitation ullamco laboris nisi ut aliquip ex ea commodo consequat. Duis aute irure dolor in reprehenderit in voluptate velit esse cillum dolore eu fugiat nulla pariatur.</p>
</article>
</main>
</body>
</html>`)
	if !IsSufficient(html) {
		t.Error("expected sufficient for static page with content")
	}
}

func TestIsSufficient_SPAShell(t *testing.T) {
	html := []byte(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>App</title></head>
<body>
<div id="root"></div>
<script src="/static/js/main.chunk.js"></script>
</body>
</html>`)
	if IsSufficient(html) {
		t.Error("expected insufficient for SPA shell")
	}
}

func TestIsSufficient_TooShort(t *testing.T) {
	if IsSufficient([]byte(`<html><body>hi</body></html>`)) {
		t.Error("expected insufficient for very short content")
	}
}

func TestTextMarkupRatio_ScriptIsMarkup(t *testing.T) {
	script := "<script>" + strings.Repeat("x", 500) + "</script>"
	text, markup := textMarkupRatio([]byte("<p>hello</p>" + script))
	if text != 5 {
		t.Errorf("text = %d, want 5", text)
	}
	if markup < 500 {
		t.Errorf("markup = %d, want script body counted", markup)
	}
}

func TestTextMarkupRatio_UnclosedStyle(t *testing.T) {
	text, _ := textMarkupRatio([]byte("<style>body{color:red}"))
	if text != 0 {
		t.Errorf("text = %d, want 0", text)
	}
}
