package gateway

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lunalift/edge-gateway/internal/config"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"cloudflare header wins", map[string]string{"CF-Connecting-IP": "203.0.113.1", "X-Forwarded-For": "198.51.100.1"}, "10.0.0.1:5000", "203.0.113.1"},
		{"real ip", map[string]string{"X-Real-IP": "203.0.113.2"}, "10.0.0.1:5000", "203.0.113.2"},
		{"leftmost forwarded-for", map[string]string{"X-Forwarded-For": " 198.51.100.9 , 10.0.0.2"}, "10.0.0.1:5000", "198.51.100.9"},
		{"remote addr without port", nil, "192.0.2.44:1234", "192.0.2.44"},
		{"ipv6 remote addr", nil, "[2001:db8::1]:443", "2001:db8::1"},
		{"remote addr without port already", nil, "192.0.2.45", "192.0.2.45"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(r, config.DefaultClientIPHeaders))
		})
	}
}

func TestPageURL(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/blog/post?ref=x", nil)
	r.Host = "www.acme.com"
	assert.Equal(t, "http://www.acme.com/blog/post?ref=x", pageURL(r))

	r.Header.Set("X-Forwarded-Proto", "HTTPS, http")
	assert.Equal(t, "https://www.acme.com/blog/post?ref=x", pageURL(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Host = "acme.com"
	r.TLS = &tls.ConnectionState{}
	assert.Equal(t, "https://acme.com/", pageURL(r))
}

func TestIsLoopback(t *testing.T) {
	assert.True(t, isLoopback("127.0.0.1:8080"))
	assert.True(t, isLoopback("[::1]:8080"))
	assert.True(t, isLoopback("127.0.0.1"))
	assert.False(t, isLoopback("192.0.2.1:8080"))
	assert.False(t, isLoopback("not-an-ip"))
}

func TestRequestID(t *testing.T) {
	g := newBoundaryGateway(t, http.NotFoundHandler())

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderRequestID, "abc-123")
	assert.Equal(t, "abc-123", g.getRequestID(r))

	r.Header.Del(HeaderRequestID)
	assert.Len(t, g.getRequestID(r), 36)
}

func TestNewRequestState_EscapedPath(t *testing.T) {
	g := newBoundaryGateway(t, http.NotFoundHandler())
	r := httptest.NewRequest(http.MethodGet, "/caf%C3%A9/menu", nil)

	st := g.newRequestState(r)
	assert.Equal(t, "/caf%C3%A9/menu", st.path)
}

func TestStatusRecorder(t *testing.T) {
	w := httptest.NewRecorder()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	rec.WriteHeader(http.StatusNotFound)
	rec.WriteHeader(http.StatusInternalServerError)
	assert.Equal(t, http.StatusNotFound, rec.status)
}
