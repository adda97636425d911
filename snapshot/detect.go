package snapshot

import (
	"bytes"
	"strings"
)

// IsSufficient reports whether a static HTML body carries enough text
// relative to markup that a browser render is not needed.
func IsSufficient(html []byte) bool {
	if len(html) < 256 {
		return false
	}

	textLen, markupLen := textMarkupRatio(html)
	total := textLen + markupLen
	if total == 0 {
		return false
	}

	// Under 10% text is likely an SPA shell.
	if float64(textLen)/float64(total) < 0.10 {
		return false
	}
	if textLen < 200 {
		return false
	}

	lower := bytes.ToLower(html)
	for _, ind := range spaIndicators {
		if bytes.Contains(lower, []byte(ind)) {
			return false
		}
	}
	return true
}

var spaIndicators = []string{
	`<div id="root"></div>`,
	`<div id="app"></div>`,
	`<div id="__next"></div>`,
	"<noscript>you need to enable javascript",
	"<noscript>enable javascript",
}

// textMarkupRatio approximates the byte count of visible text vs markup.
// Script and style bodies count as markup.
func textMarkupRatio(html []byte) (text, markup int) {
	s := string(html)
	inTag := false
	for i := 0; i < len(s); {
		ch := s[i]
		if ch == '<' {
			if raw := rawTextElement(s[i:]); raw != "" {
				n := skipRawText(s[i:], raw)
				markup += n
				i += n
				continue
			}
			inTag = true
			markup++
			i++
			continue
		}
		if ch == '>' {
			inTag = false
			markup++
			i++
			continue
		}
		if inTag {
			markup++
		} else if ch != ' ' && ch != '\t' && ch != '\n' && ch != '\r' {
			text++
		}
		i++
	}
	return text, markup
}

func rawTextElement(s string) string {
	rest := strings.ToLower(s[:min(len(s), 8)])
	switch {
	case strings.HasPrefix(rest, "<script"):
		return "script"
	case strings.HasPrefix(rest, "<style"):
		return "style"
	}
	return ""
}

// skipRawText returns the length of a <script> or <style> element starting
// at s[0], or len(s) when it is never closed.
func skipRawText(s, name string) int {
	idx := strings.Index(strings.ToLower(s), "</"+name)
	if idx == -1 {
		return len(s)
	}
	end := strings.IndexByte(s[idx:], '>')
	if end == -1 {
		return len(s)
	}
	return idx + end + 1
}
