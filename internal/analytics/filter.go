// Package analytics decides which requests are reported to the bot-check
// endpoint and dispatches those reports off the request path.
//
// DESIGN: Static filter tables are built once at package init and never mutated.
// Two canonical filters exist:
//   - FullFilter:      extension + excluded path prefix + excluded pattern
//   - ExtensionFilter: extension only (what framework-hook integrations use)
package analytics

import (
	"regexp"
	"strings"
)

// ignoredExtensions are static assets that never count as page views.
var ignoredExtensions = map[string]struct{}{}

func init() {
	for _, ext := range []string{
		".js", ".css", ".xml", ".png", ".jpg", ".jpeg", ".gif", ".pdf",
		".doc", ".ico", ".rss", ".zip", ".mp3", ".rar", ".exe", ".wmv",
		".avi", ".ppt", ".mpg", ".mpeg", ".tif", ".wav", ".mov", ".psd",
		".ai", ".xls", ".mp4", ".m4a", ".swf", ".dat", ".dmg", ".iso",
		".flv", ".m4v", ".torrent", ".woff", ".woff2", ".ttf", ".svg",
		".webmanifest", ".webp", ".avif",
	} {
		ignoredExtensions[ext] = struct{}{}
	}
}

// excludedPrefixes are admin and bot-trap paths.
var excludedPrefixes = []string{
	"/wp-login.php",
	"/wp-cron.php",
	"/wp-admin/",
	"/.well-known/",
	"/xmlrpc.php",
}

// excludedPatterns run against lowercased path + "?" + raw query.
var excludedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/wp-content/.*\.php$`), // WordPress plugin PHP files
	regexp.MustCompile(`\?.*ob=open-bridge`),  // Open Bridge tracking events
}

// Filter decides whether a request is trackable.
type Filter struct {
	name     string
	prefixes []string
	patterns []*regexp.Regexp
}

var (
	// FullFilter applies extension, prefix and pattern exclusions.
	FullFilter = &Filter{name: "full", prefixes: excludedPrefixes, patterns: excludedPatterns}
	// ExtensionFilter applies only the extension exclusion.
	ExtensionFilter = &Filter{name: "extension"}
)

// FilterByName returns the named filter, defaulting to FullFilter.
func FilterByName(name string) *Filter {
	if name == ExtensionFilter.name {
		return ExtensionFilter
	}
	return FullFilter
}

// Name returns the filter's config name.
func (f *Filter) Name() string { return f.name }

// ShouldTrack reports whether a request for path?rawQuery should be reported.
func (f *Filter) ShouldTrack(path, rawQuery string) bool {
	lower := strings.ToLower(path)

	if _, ignored := ignoredExtensions[extension(lower)]; ignored {
		return false
	}

	for _, p := range f.prefixes {
		if strings.HasPrefix(lower, p) {
			return false
		}
	}

	if len(f.patterns) > 0 {
		full := lower
		if rawQuery != "" {
			full += "?" + rawQuery
		}
		for _, re := range f.patterns {
			if re.MatchString(full) {
				return false
			}
		}
	}

	return true
}

// extension returns the substring from the last '.', or "" when there is none.
// Unlike path.Ext it does not stop at '/', so "/v1.2/page" yields ".2/page",
// which never matches an entry.
func extension(p string) string {
	if i := strings.LastIndexByte(p, '.'); i >= 0 {
		return p[i:]
	}
	return ""
}
