package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFullFilter_ShouldTrack(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		query string
		want  bool
	}{
		{"root page", "/", "", true},
		{"article", "/blog/hello-world", "", true},
		{"html page", "/about.html", "", true},
		{"versioned path", "/v1.2/docs", "", true},
		{"stylesheet", "/static/app.css", "", false},
		{"uppercase image", "/IMG/Photo.JPG", "", false},
		{"woff2 font", "/fonts/inter.woff2", "", false},
		{"web manifest", "/site.webmanifest", "", false},
		{"wp login", "/wp-login.php", "", false},
		{"wp admin", "/wp-admin/options.php", "", false},
		{"wp admin mixed case", "/WP-Admin/", "", false},
		{"well known", "/.well-known/security.txt", "", false},
		{"xmlrpc", "/xmlrpc.php", "", false},
		{"wp-content php", "/wp-content/plugins/x/ajax.php", "", false},
		{"wp-content image dir", "/wp-content/uploads/", "", true},
		{"open bridge query", "/", "ob=open-bridge&id=1", false},
		{"open bridge later param", "/shop", "a=1&ob=open-bridge", false},
		{"ordinary query", "/search", "q=shoes", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FullFilter.ShouldTrack(tt.path, tt.query))
		})
	}
}

func TestExtensionFilter_IgnoresPathRules(t *testing.T) {
	assert.True(t, ExtensionFilter.ShouldTrack("/wp-admin/", ""))
	assert.True(t, ExtensionFilter.ShouldTrack("/", "ob=open-bridge"))
	assert.False(t, ExtensionFilter.ShouldTrack("/app.js", ""))
}

func TestIgnoredExtensions_Count(t *testing.T) {
	assert.Len(t, ignoredExtensions, 42)
}

func TestFilterByName(t *testing.T) {
	assert.Same(t, ExtensionFilter, FilterByName("extension"))
	assert.Same(t, FullFilter, FilterByName("full"))
	assert.Same(t, FullFilter, FilterByName(""))
	assert.Equal(t, "extension", ExtensionFilter.Name())
}

func TestExtension(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/a/b.css", ".css"},
		{"/a/b", ""},
		{"/a.b/c", ".b/c"},
		{"/archive.tar.zip", ".zip"},
	}
	for _, tt := range tests {
		if got := extension(tt.in); got != tt.want {
			t.Errorf("extension(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
