package gateway

import (
	"time"

	"github.com/lunalift/edge-gateway/internal/config"
	"github.com/lunalift/edge-gateway/internal/monitoring"
)

func buildInitEvent(cfg *config.Config) *monitoring.InitEvent {
	ev := &monitoring.InitEvent{
		Timestamp:        time.Now(),
		Event:            "gateway_init",
		ServerPort:       cfg.Server.Port,
		OriginURL:        cfg.Origin.URL,
		VendorDomain:     cfg.Vendor.Domain,
		VendorBaseURL:    cfg.Vendor.BaseURL,
		RewriteMode:      cfg.Rewrite.Mode,
		AnalyticsEnabled: cfg.Analytics.Enabled,
		SkipPattern:      cfg.Routes.SkipPattern,
		TelemetryPath:    cfg.Monitoring.TelemetryPath,
	}

	if cfg.Analytics.Enabled {
		ev.AnalyticsFilter = cfg.Analytics.Filter
		ev.AnalyticsWorkers = cfg.Analytics.Workers
	}

	return ev
}
