// Package guard validates the untrusted inputs designscore receives: the page
// URL to analyse (scheme, host, SSRF), run identifiers used as directory names,
// and bounded reads of remote bodies.
package guard

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"path/filepath"
	"strings"
)

var (
	// ErrPathTraversal is returned when a user-supplied path escapes its base.
	ErrPathTraversal = errors.New("guard: path traversal detected")
	// ErrSSRF is returned when a URL targets a private or loopback address.
	ErrSSRF = errors.New("guard: URL targets a private or loopback address")
	// ErrUnsafeScheme is returned when a URL uses a non-HTTP(S) scheme.
	ErrUnsafeScheme = errors.New("guard: only http and https schemes are allowed")
	// ErrNoHost is returned when a URL has no hostname.
	ErrNoHost = errors.New("guard: URL has no host")
)

// URLPolicy controls ValidateURL.
type URLPolicy struct {
	// AllowPrivate disables the SSRF check. Used for local development and tests.
	AllowPrivate bool
}

// ValidateURL checks that rawURL is absolute http/https with a hostname and,
// unless the policy allows it, does not target a private or loopback address.
// DNS is resolved to catch internal hostnames; resolution failures pass so that
// the snapshot provider reports the real network error.
func ValidateURL(rawURL string, p URLPolicy) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("guard: invalid URL: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, ErrUnsafeScheme
	}
	host := u.Hostname()
	if host == "" {
		return nil, ErrNoHost
	}
	if p.AllowPrivate {
		return u, nil
	}

	if ip := net.ParseIP(host); ip != nil {
		if isPrivateIP(ip) {
			return nil, ErrSSRF
		}
		return u, nil
	}
	if strings.EqualFold(host, "localhost") {
		return nil, ErrSSRF
	}

	addrs, err := net.LookupHost(host)
	if err != nil {
		return u, nil
	}
	for _, a := range addrs {
		if ip := net.ParseIP(a); ip != nil && isPrivateIP(ip) {
			return nil, ErrSSRF
		}
	}
	return u, nil
}

// SafePath joins base and userInput, rejecting anything that escapes base.
func SafePath(base, userInput string) (string, error) {
	if strings.Contains(userInput, "..") {
		return "", ErrPathTraversal
	}
	cleaned := filepath.Join(base, filepath.Clean("/"+userInput))
	if !strings.HasPrefix(cleaned, filepath.Clean(base)+string(filepath.Separator)) &&
		cleaned != filepath.Clean(base) {
		return "", ErrPathTraversal
	}
	return cleaned, nil
}

// ValidateIdentifier accepts run identifiers: alphanumeric, underscore, hyphen, dot.
func ValidateIdentifier(s string) error {
	if s == "" {
		return fmt.Errorf("guard: identifier must not be empty")
	}
	if len(s) > 128 {
		return fmt.Errorf("guard: identifier too long (max 128)")
	}
	if s == "." || strings.Contains(s, "..") {
		return ErrPathTraversal
	}
	for _, r := range s {
		if !isIdentChar(r) {
			return fmt.Errorf("guard: invalid character %q in identifier", r)
		}
	}
	return nil
}

// LimitedReadAll reads at most maxBytes from r and fails if r holds more.
func LimitedReadAll(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("guard: body exceeds %d bytes", maxBytes)
	}
	return data, nil
}

func isIdentChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.'
}

var privateRanges = func() []*net.IPNet {
	var nets []*net.IPNet
	for _, cidr := range []string{
		"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16",
		"169.254.0.0/16", "100.64.0.0/10", "fc00::/7", "::1/128",
	} {
		_, n, err := net.ParseCIDR(cidr)
		if err == nil {
			nets = append(nets, n)
		}
	}
	return nets
}()

func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}
	for _, n := range privateRanges {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
