package report

import (
	"fmt"
	"os"
	"strings"
)

const (
	openDelim  = "{{"
	closeDelim = "}}"
)

// Template is a document with {{NAME}} placeholders, parsed once.
// NAME is upper-case letters, digits and underscores; anything else between
// braces is literal text.
type Template struct {
	parts []part
}

type part struct {
	text string
	name string // placeholder name; empty for literal text
}

// ParseTemplate splits src into literal and placeholder parts.
func ParseTemplate(src string) *Template {
	t := &Template{}
	for len(src) > 0 {
		i := strings.Index(src, openDelim)
		if i < 0 {
			t.literal(src)
			break
		}
		j := strings.Index(src[i+len(openDelim):], closeDelim)
		if j < 0 {
			t.literal(src)
			break
		}
		name := src[i+len(openDelim) : i+len(openDelim)+j]
		if !validName(name) {
			// Keep scanning after the first brace so "{{{{URL}}" still finds URL.
			t.literal(src[:i+1])
			src = src[i+1:]
			continue
		}
		t.literal(src[:i])
		t.parts = append(t.parts, part{text: openDelim + name + closeDelim, name: name})
		src = src[i+len(openDelim)+j+len(closeDelim):]
	}
	return t
}

// LoadTemplate reads and parses a template file.
func LoadTemplate(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: load template: %w", ErrRender, err)
	}
	return ParseTemplate(string(data)), nil
}

func (t *Template) literal(s string) {
	if s == "" {
		return
	}
	if n := len(t.parts); n > 0 && t.parts[n-1].name == "" {
		t.parts[n-1].text += s
		return
	}
	t.parts = append(t.parts, part{text: s})
}

func validName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_') {
			return false
		}
	}
	return true
}

// Execute substitutes every placeholder found in values in a single pass.
// Unknown placeholders are kept verbatim and substituted text is never
// scanned again.
func (t *Template) Execute(values map[string]string) string {
	var b strings.Builder
	for _, p := range t.parts {
		if p.name != "" {
			if v, ok := values[p.name]; ok {
				b.WriteString(v)
				continue
			}
		}
		b.WriteString(p.text)
	}
	return b.String()
}

// Placeholders lists the distinct placeholder names in order of first use.
func (t *Template) Placeholders() []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range t.parts {
		if p.name != "" && !seen[p.name] {
			seen[p.name] = true
			out = append(out, p.name)
		}
	}
	return out
}
