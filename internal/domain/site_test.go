package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSiteKeyFromOrigin(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		want   string
	}{
		{"plain https origin", "https://example.com", "example.com"},
		{"http origin", "http://example.com", "example.com"},
		{"www stripped", "https://www.example.com", "example.com"},
		{"path ignored", "https://example.com/post/1?x=2", "example.com"},
		{"port ignored", "https://example.com:8443", "example.com"},
		{"case folded", "https://EXAMPLE.com", "example.com"},
		{"bare hostname", "example.com", "example.com"},
		{"bare hostname with path", "example.com/page", "example.com"},
		{"subdomain kept", "https://blog.example.com", "blog.example.com"},
		{"whitespace trimmed", "  https://example.com  ", "example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SiteKeyFromOrigin(tt.origin)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSiteKeyFromOrigin_SameSiteDifferentPages(t *testing.T) {
	a, err := SiteKeyFromOrigin("https://www.example.com/post/1")
	require.NoError(t, err)
	b, err := SiteKeyFromOrigin("http://example.com/")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSiteKeyFromOrigin_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		origin string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"no hostname", "https:///path"},
		{"scheme only", "https://"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SiteKeyFromOrigin(tt.origin)
			assert.Error(t, err)
		})
	}
}
