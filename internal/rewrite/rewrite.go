// Package rewrite splices vendor markup into HTML documents.
//
// DESIGN: Two splices, each anchored on the first occurrence of a closing tag:
//   - schema: every existing JSON-LD <script> is removed, one new tag goes before </head>
//   - pixel:  the tracking script goes before </body> unless the marker is already present
//
// Documents without the anchor are returned unchanged. Functions here are pure;
// callers always pass a private copy of the body.
package rewrite

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	headClose = "</head>"
	bodyClose = "</body>"
	indent    = "  "
)

// ldJSONPattern matches JSON-LD script tags, attributes in any order, body non-greedy.
var ldJSONPattern = regexp.MustCompile(`(?i)<script[^>]*type=["']application/ld\+json["'][^>]*>[\s\S]*?</script>`)

// Pixel identifies the tracking script.
type Pixel struct {
	ScriptURL string // src of the injected <script>
	Marker    string // substring meaning "already injected"
}

// Tag returns the indented pixel <script> tag.
func (p Pixel) Tag() string {
	return indent + `<script src="` + p.ScriptURL + `"></script>`
}

// SchemaTag wraps a compact JSON document in an indented JSON-LD <script> tag.
func SchemaTag(schemaJSON []byte) string {
	return indent + `<script type="application/ld+json">` + string(schemaJSON) + `</script>`
}

// StripSchemas removes every JSON-LD script tag from html.
func StripSchemas(html string) string {
	return ldJSONPattern.ReplaceAllLiteralString(html, "")
}

// ReplaceSchema strips existing JSON-LD tags and inserts schemaJSON before </head>.
// Running it twice still leaves exactly one JSON-LD tag.
func ReplaceSchema(html string, schemaJSON []byte) string {
	html = StripSchemas(html)
	return insertBefore(html, headClose, SchemaTag(schemaJSON))
}

// InjectPixel inserts the pixel tag before </body> unless the marker is present.
// The result is idempotent: InjectPixel(InjectPixel(x)) == InjectPixel(x).
func InjectPixel(html string, p Pixel) string {
	if p.Marker != "" && strings.Contains(html, p.Marker) {
		return html
	}
	return insertBefore(html, bodyClose, p.Tag())
}

// HasPixel reports whether the document already carries the pixel.
func HasPixel(html string, p Pixel) bool {
	return p.Marker != "" && strings.Contains(html, p.Marker)
}

// SchemaLoaderScript returns a <script> that fetches schemaURL in the browser and
// appends it to document.head as JSON-LD. Used when the body transform cannot
// await the schema fetch itself.
func SchemaLoaderScript(schemaURL string) string {
	return `
  <script>
    (async () => {
      try {
        const response = await fetch(` + strconv.Quote(schemaURL) + `);
        if (response.ok) {
          const schema = await response.json();
          const script = document.createElement('script');
          script.type = 'application/ld+json';
          script.textContent = JSON.stringify(schema);
          document.head.appendChild(script);
        }
      } catch (e) {
        console.error('Failed to load LunaLift schema:', e);
      }
    })();
  </script>`
}

// InjectSchemaLoader inserts the client-side schema loader before </head>.
func InjectSchemaLoader(html, schemaURL string) string {
	return insertBefore(html, headClose, SchemaLoaderScript(schemaURL))
}

// insertBefore places fragment plus a newline before the first anchor.
func insertBefore(html, anchor, fragment string) string {
	return strings.Replace(html, anchor, fragment+"\n"+anchor, 1)
}
