// Package gateway - intercept.go captures the origin handler's response.
//
// DESIGN: The origin writes into an interceptor instead of the client.
// The first body byte (or the end of the handler) commits the response, and
// classify decides once, from status and headers, what happens to it:
//   - modeDirect: forwarded untouched as it is written
//   - modeBuffer: kept in a private buffer for the buffered rewrite
//   - modeSplice: streamed through a rewrite.Splicer
//
// A buffered body that outgrows its limit degrades to modeDirect.
//
// classify and the splicer run on the origin handler's goroutine; transforming
// marks those spans so a panic raised there is not mistaken for an origin panic.
package gateway

import (
	"bytes"
	"net/http"

	"github.com/lunalift/edge-gateway/internal/rewrite"
)

type interceptMode int

const (
	modeUndecided interceptMode = iota
	modeDirect
	modeBuffer
	modeSplice
)

// classifyFunc chooses the mode for a committed response. For modeSplice it
// also returns the inserts to apply.
type classifyFunc func(status int, h http.Header) (interceptMode, []rewrite.Insert)

type responseInterceptor struct {
	w        http.ResponseWriter
	classify classifyFunc
	limit    int

	header  http.Header
	status  int
	mode    interceptMode
	body    bytes.Buffer
	splicer *rewrite.Splicer

	overflowed   bool
	forwarded    bool // something reached the client
	transforming bool // gateway code is running inside an origin Write
	origBytes    int
}

func newResponseInterceptor(w http.ResponseWriter, limit int, classify classifyFunc) *responseInterceptor {
	return &responseInterceptor{
		w:        w,
		classify: classify,
		limit:    limit,
		header:   make(http.Header),
	}
}

func (ri *responseInterceptor) Header() http.Header { return ri.header }

func (ri *responseInterceptor) WriteHeader(code int) {
	if ri.mode != modeUndecided || ri.status != 0 {
		return
	}
	// Informational responses go straight through and do not commit.
	if code >= 100 && code < 200 && code != http.StatusSwitchingProtocols {
		copyHeaders(ri.w, ri.header)
		ri.w.WriteHeader(code)
		return
	}
	ri.status = code
}

func (ri *responseInterceptor) Write(p []byte) (int, error) {
	if ri.mode == modeUndecided {
		ri.commit(p)
	}
	ri.origBytes += len(p)

	switch ri.mode {
	case modeBuffer:
		if ri.body.Len()+len(p) > ri.limit {
			ri.overflow()
			return ri.w.Write(p)
		}
		return ri.body.Write(p)
	case modeSplice:
		ri.transforming = true
		n, err := ri.splicer.Write(p)
		ri.transforming = false
		return n, err
	default:
		return ri.w.Write(p)
	}
}

// Flush forwards buffered bytes where the mode allows it.
func (ri *responseInterceptor) Flush() {
	if ri.mode == modeUndecided {
		ri.commit(nil)
	}
	if ri.mode == modeBuffer {
		return
	}
	if f, ok := ri.w.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the client connection (hijack, deadlines).
func (ri *responseInterceptor) Unwrap() http.ResponseWriter { return ri.w }

// commit settles status, sniffs a missing Content-Type like net/http does and
// picks the mode.
func (ri *responseInterceptor) commit(first []byte) {
	ri.transforming = true
	if ri.status == 0 {
		ri.status = http.StatusOK
	}
	if _, ok := ri.header["Content-Type"]; !ok && len(first) > 0 {
		ri.header.Set("Content-Type", http.DetectContentType(first))
	}

	mode, inserts := ri.classify(ri.status, ri.header)
	ri.mode = mode

	if mode == modeSplice {
		ri.header.Del("Content-Length")
		ri.splicer = rewrite.NewSplicer(ri.w, inserts...)
	}
	if mode != modeBuffer {
		ri.forward()
	}
	ri.transforming = false
}

func (ri *responseInterceptor) forward() {
	copyHeaders(ri.w, ri.header)
	ri.w.WriteHeader(ri.status)
	ri.forwarded = true
}

// overflow gives up on buffering and forwards what was captured so far.
func (ri *responseInterceptor) overflow() {
	ri.mode = modeDirect
	ri.overflowed = true
	ri.forward()
	_, _ = ri.w.Write(ri.body.Bytes())
	ri.body.Reset()
}

// finish is called once the origin handler has returned.
func (ri *responseInterceptor) finish() error {
	if ri.mode == modeUndecided {
		ri.commit(nil)
	}
	if ri.mode == modeSplice {
		return ri.splicer.Close()
	}
	return nil
}

// buffered reports whether the complete response is held for rewriting.
func (ri *responseInterceptor) buffered() bool {
	return ri.mode == modeBuffer
}

// writeCaptured sends the captured response to the client unchanged.
func (ri *responseInterceptor) writeCaptured() {
	if ri.forwarded {
		return
	}
	ri.forward()
	_, _ = ri.w.Write(ri.body.Bytes())
}
