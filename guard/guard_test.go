package guard

import (
	"errors"
	"net"
	"strings"
	"testing"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr error
	}{
		{"https://93.184.216.34/page", nil},
		{"http://93.184.216.34", nil},
		{"ftp://evil.com/data", ErrUnsafeScheme},
		{"javascript:alert(1)", ErrUnsafeScheme},
		{"example.com", ErrUnsafeScheme},
		{"http:///nohost", ErrNoHost},
		{"http://127.0.0.1/admin", ErrSSRF},
		{"http://localhost:3000/", ErrSSRF},
		{"http://10.0.0.1/internal", ErrSSRF},
		{"http://192.168.1.1/api", ErrSSRF},
		{"http://[::1]/api", ErrSSRF},
		{"http://172.16.0.1/secret", ErrSSRF},
	}
	for _, tt := range tests {
		_, err := ValidateURL(tt.url, URLPolicy{})
		if tt.wantErr == nil {
			if err != nil {
				t.Errorf("ValidateURL(%q): unexpected error %v", tt.url, err)
			}
			continue
		}
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("ValidateURL(%q) = %v, want %v", tt.url, err, tt.wantErr)
		}
	}
}

func TestValidateURL_AllowPrivate(t *testing.T) {
	u, err := ValidateURL("  http://127.0.0.1:8080/shop  ", URLPolicy{AllowPrivate: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Host != "127.0.0.1:8080" {
		t.Fatalf("host = %q", u.Host)
	}
	if _, err := ValidateURL("file:///etc/passwd", URLPolicy{AllowPrivate: true}); !errors.Is(err, ErrUnsafeScheme) {
		t.Fatalf("scheme check must still apply, got %v", err)
	}
}

func TestSafePath(t *testing.T) {
	tests := []struct {
		base, input string
		wantErr     bool
	}{
		{"/data/results", "20261019T101500Z_abc123/report.pdf", false},
		{"/data/results", "../etc/passwd", true},
		{"/data/results", "run/../../outside", true},
		{"/data/results", "homepage.png", false},
	}
	for _, tt := range tests {
		_, err := SafePath(tt.base, tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("SafePath(%q, %q) error=%v, wantErr=%v", tt.base, tt.input, err, tt.wantErr)
		}
	}
}

func TestValidateIdentifier(t *testing.T) {
	if err := ValidateIdentifier("20261019T101500Z_abc123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, bad := range []string{"", "..", "../etc", "has spaces", "a/b", strings.Repeat("a", 129)} {
		if err := ValidateIdentifier(bad); err == nil {
			t.Errorf("ValidateIdentifier(%q): expected error", bad)
		}
	}
}

func TestLimitedReadAll(t *testing.T) {
	data := strings.Repeat("x", 100)
	got, err := LimitedReadAll(strings.NewReader(data), 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 100 {
		t.Fatalf("expected 100 bytes, got %d", len(got))
	}
	if _, err := LimitedReadAll(strings.NewReader(data), 50); err == nil {
		t.Fatal("expected error for oversized read")
	}
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip      string
		private bool
	}{
		{"127.0.0.1", true},
		{"10.0.0.1", true},
		{"172.16.0.1", true},
		{"192.168.0.1", true},
		{"0.0.0.0", true},
		{"8.8.8.8", false},
		{"::1", true},
	}
	for _, tt := range tests {
		if got := isPrivateIP(net.ParseIP(tt.ip)); got != tt.private {
			t.Errorf("isPrivateIP(%s) = %v, want %v", tt.ip, got, tt.private)
		}
	}
}
