package rewrite

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var testPixel = Pixel{
	ScriptURL: "https://optimize.lunalift.ai/pixel.js",
	Marker:    "optimize.lunalift.ai/pixel.js",
}

const page = `<!DOCTYPE html>
<html>
<head>
<title>Acme</title>
</head>
<body>
<h1>Hello</h1>
</body>
</html>`

func TestReplaceSchema_InsertsBeforeHead(t *testing.T) {
	out := ReplaceSchema(page, []byte(`{"@type":"Organization"}`))

	assert.Contains(t, out, "<title>Acme</title>\n  <script type=\"application/ld+json\">{\"@type\":\"Organization\"}</script>\n</head>")
	assert.Equal(t, 1, strings.Count(out, "application/ld+json"))
}

func TestReplaceSchema_ReplacesNotAppends(t *testing.T) {
	doc := `<html><head>
<script type="application/ld+json">{"old":1}</script>
<SCRIPT id="x" TYPE='application/ld+json' data-a="b">
  {"old": 2}
</SCRIPT>
<script src="/app.js"></script>
</head><body></body></html>`

	out := ReplaceSchema(doc, []byte(`{"new":true}`))

	assert.Equal(t, 1, strings.Count(strings.ToLower(out), "application/ld+json"))
	assert.NotContains(t, out, `"old"`)
	assert.Contains(t, out, `{"new":true}`)
	assert.Contains(t, out, `<script src="/app.js"></script>`, "other scripts are kept")

	again := ReplaceSchema(out, []byte(`{"new":true}`))
	assert.Equal(t, 1, strings.Count(again, "application/ld+json"))
}

func TestReplaceSchema_NonGreedyBody(t *testing.T) {
	doc := `<head><script type="application/ld+json">{"a":1}</script><script>keep()</script></head>`

	out := StripSchemas(doc)
	assert.Equal(t, `<head><script>keep()</script></head>`, out)
}

func TestReplaceSchema_NoHeadAnchor(t *testing.T) {
	doc := `<div><script type="application/ld+json">{}</script></div>`
	out := ReplaceSchema(doc, []byte(`{"a":1}`))

	assert.Equal(t, `<div></div>`, out, "existing tags are still stripped")
}

func TestReplaceSchema_OnlyFirstHeadClose(t *testing.T) {
	doc := `<head></head><template></head></template>`
	out := ReplaceSchema(doc, []byte(`{}`))

	assert.Equal(t, 1, strings.Count(out, "application/ld+json"))
	assert.True(t, strings.HasPrefix(out, "<head>  <script type=\"application/ld+json\">{}</script>\n</head>"))
}

func TestInjectPixel(t *testing.T) {
	out := InjectPixel(page, testPixel)

	assert.Contains(t, out, "<h1>Hello</h1>\n  <script src=\"https://optimize.lunalift.ai/pixel.js\"></script>\n</body>")
	assert.True(t, HasPixel(out, testPixel))
}

func TestInjectPixel_Idempotent(t *testing.T) {
	once := InjectPixel(page, testPixel)
	twice := InjectPixel(once, testPixel)

	assert.Equal(t, once, twice)
	assert.Equal(t, 1, strings.Count(twice, "pixel.js"))
}

func TestInjectPixel_SkipsWhenMarkerPresent(t *testing.T) {
	doc := `<body><script async src="//optimize.lunalift.ai/pixel.js?v=2"></script></body>`
	assert.Equal(t, doc, InjectPixel(doc, testPixel))
}

func TestInjectPixel_NoBodyAnchor(t *testing.T) {
	doc := `<p>fragment</p>`
	assert.Equal(t, doc, InjectPixel(doc, testPixel))
}

func TestInjectSchemaLoader(t *testing.T) {
	out := InjectSchemaLoader(page, "https://acme-com.lunalift.ai/.schema.json")

	assert.Contains(t, out, `await fetch("https://acme-com.lunalift.ai/.schema.json")`)
	assert.Contains(t, out, "document.head.appendChild(script)")
	assert.True(t, strings.Index(out, "appendChild") < strings.Index(out, "</head>"))
}
