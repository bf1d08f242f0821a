// Package config - defaults.go centralizes magic numbers and default values.
//
// DESIGN: All default values that appear in multiple places should be defined here.
// This makes configuration more maintainable and auditable.
package config

import "time"

// =============================================================================
// VENDOR ENDPOINTS
// =============================================================================

// DefaultVendorDomain is appended to the derived customer subdomain.
// www.acme.com -> https://acme-com.lunalift.ai
const DefaultVendorDomain = "lunalift.ai"

// DefaultPixelScriptURL is the tracking pixel injected before </body>.
const DefaultPixelScriptURL = "https://optimize.lunalift.ai/pixel.js"

// DefaultPixelMarker is the substring that identifies an already injected pixel.
const DefaultPixelMarker = "optimize.lunalift.ai/pixel.js"

// DefaultBotCheckURL receives the analytics POST for trackable requests.
const DefaultBotCheckURL = "https://optimize.lunalift.ai/bot-check"

// =============================================================================
// OUTBOUND TIMEOUTS
// =============================================================================

// DefaultSchemaTimeout bounds the schema fetch on the page critical path.
// A timeout is treated like any other failed fetch: the schema is skipped.
const DefaultSchemaTimeout = 300 * time.Millisecond

// DefaultReportTimeout bounds the background analytics POST.
const DefaultReportTimeout = 500 * time.Millisecond

// DefaultPassThroughTimeout bounds llms.txt / .md requests to the vendor CDN.
const DefaultPassThroughTimeout = 10 * time.Second

// =============================================================================
// ANALYTICS DISPATCH
// =============================================================================

// DefaultAnalyticsWorkers is the number of goroutines sending analytics reports.
const DefaultAnalyticsWorkers = 4

// DefaultAnalyticsQueueSize is how many reports may wait before new ones are dropped.
const DefaultAnalyticsQueueSize = 1024

// =============================================================================
// HTTP SERVER
// =============================================================================

// DefaultServerPort is the listen port for the gateway.
const DefaultServerPort = 8080

// DefaultReadTimeout for the HTTP server.
const DefaultReadTimeout = 30 * time.Second

// DefaultWriteTimeout for the HTTP server.
const DefaultWriteTimeout = 60 * time.Second

// DefaultShutdownTimeout is how long in-flight requests and analytics reports get on shutdown.
const DefaultShutdownTimeout = 10 * time.Second

// MaxHTMLBodySize is the largest origin HTML document the buffered rewriter will splice (10MB).
// Larger documents are passed through unmodified.
const MaxHTMLBodySize = 10 * 1024 * 1024

// MaxErrorBodyLogLen limits vendor response bodies quoted in errors and logs.
const MaxErrorBodyLogLen = 500

// =============================================================================
// ROUTE SCOPE
// =============================================================================

// DefaultSkipPattern mirrors the framework matcher of the Next.js integration:
// framework static assets, the favicon and common image files never reach the transformer.
const DefaultSkipPattern = `^/(_next/static|_next/image|favicon\.ico)|\.(svg|png|jpg|jpeg|gif|webp)$`

// =============================================================================
// CLIENT IP
// =============================================================================

// DefaultClientIPHeaders are consulted in order before falling back to RemoteAddr.
var DefaultClientIPHeaders = []string{"CF-Connecting-IP", "X-Real-IP", "X-Forwarded-For"}
