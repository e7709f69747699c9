package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// SiteKeyFromOrigin derives the stable site identifier from a reported
// page or origin URL. Clients share a site when their URLs resolve to
// the same hostname; scheme, port, path, and a leading "www." label are
// ignored, so "https://www.example.com/post/1" and "http://example.com"
// both map to "example.com".
func SiteKeyFromOrigin(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("empty origin")
	}

	// url.Parse treats "example.com/page" as a relative path.
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("unparsable origin %q: %w", raw, err)
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return "", fmt.Errorf("origin %q has no hostname", raw)
	}
	return host, nil
}
