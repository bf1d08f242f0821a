package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/lunalift/edge-gateway/internal/config"
)

// ErrNoOrigin is returned when no origin URL is configured.
var ErrNoOrigin = errors.New("origin.url is required")

// NewOriginProxy returns a reverse proxy to the configured origin site.
// Accept-Encoding is stripped so HTML arrives uncompressed and can be spliced.
func NewOriginProxy(cfg config.OriginConfig) (http.Handler, error) {
	if cfg.URL == "" {
		return nil, ErrNoOrigin
	}
	target, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing origin.url: %w", err)
	}
	if target.Scheme != "http" && target.Scheme != "https" || target.Host == "" {
		return nil, fmt.Errorf("origin.url must be an absolute http(s) URL, got %q", cfg.URL)
	}

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			if cfg.PreserveHost {
				pr.Out.Host = pr.In.Host
			}
			pr.Out.Header.Del("Accept-Encoding")
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.Warn().Err(err).Str("path", r.URL.Path).Msg("origin request failed")
			w.WriteHeader(http.StatusBadGateway)
		},
	}, nil
}
