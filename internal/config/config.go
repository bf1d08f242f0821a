// Package config loads the gateway configuration.
//
// DESIGN: A single YAML file describes the gateway. Values may reference
// environment variables as ${VAR} or ${VAR:-default}; they are expanded
// before parsing. Anything left unset falls back to defaults.go.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Rewrite modes. See RewriteConfig.CanAwaitDuringBodyTransform.
const (
	RewriteModeServer   = "server"
	RewriteModeDeferred = "deferred"
)

// Analytics filter sets.
const (
	FilterFull      = "full"
	FilterExtension = "extension"
)

// Config is the top-level gateway configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Origin     OriginConfig     `yaml:"origin"`
	Routes     RoutesConfig     `yaml:"routes"`
	Vendor     VendorConfig     `yaml:"vendor"`
	Rewrite    RewriteConfig    `yaml:"rewrite"`
	Analytics  AnalyticsConfig  `yaml:"analytics"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// ServerConfig configures the listening HTTP server.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// OriginConfig points at the customer site being fronted.
type OriginConfig struct {
	URL          string `yaml:"url"`
	PreserveHost bool   `yaml:"preserve_host"` // send the inbound Host to the origin
}

// RoutesConfig scopes which requests reach the transformer at all.
type RoutesConfig struct {
	SkipPattern string `yaml:"skip_pattern"` // regexp on the request path; "" disables skipping
}

// VendorConfig describes the vendor CDN and analytics endpoints.
type VendorConfig struct {
	Domain             string        `yaml:"domain"`
	BaseURL            string        `yaml:"base_url"` // fixed base instead of the host-derived one (staging)
	PixelScriptURL     string        `yaml:"pixel_script_url"`
	PixelMarker        string        `yaml:"pixel_marker"`
	BotCheckURL        string        `yaml:"bot_check_url"`
	SchemaTimeout      time.Duration `yaml:"schema_timeout"`
	ReportTimeout      time.Duration `yaml:"report_timeout"`
	PassThroughTimeout time.Duration `yaml:"pass_through_timeout"`
	ClientIPHeaders    []string      `yaml:"client_ip_headers"`
}

// RewriteConfig configures HTML splicing.
type RewriteConfig struct {
	Mode             string `yaml:"mode"`               // "server" or "deferred"
	HTMLCacheControl string `yaml:"html_cache_control"` // overrides Cache-Control on rewritten pages when set
}

// CanAwaitDuringBodyTransform reports whether the schema fetch may block the body
// transform. When false, schema injection is deferred to a client-side loader.
func (r RewriteConfig) CanAwaitDuringBodyTransform() bool {
	return r.Mode != RewriteModeDeferred
}

// AnalyticsConfig configures the bot-check reporter.
type AnalyticsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Filter    string `yaml:"filter"` // "full" or "extension"
	Workers   int    `yaml:"workers"`
	QueueSize int    `yaml:"queue_size"`
	RateLimit int    `yaml:"rate_limit"` // reports per second, 0 = unlimited
}

// MonitoringConfig configures logging and telemetry.
type MonitoringConfig struct {
	LogLevel         string `yaml:"log_level"`
	TelemetryEnabled bool   `yaml:"telemetry_enabled"`
	TelemetryPath    string `yaml:"telemetry_path"`
	LogToStdout      bool   `yaml:"log_to_stdout"`
}

// Default returns a config populated entirely from defaults.go.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultServerPort,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Origin: OriginConfig{
			PreserveHost: true,
		},
		Routes: RoutesConfig{
			SkipPattern: DefaultSkipPattern,
		},
		Vendor: VendorConfig{
			Domain:             DefaultVendorDomain,
			PixelScriptURL:     DefaultPixelScriptURL,
			PixelMarker:        DefaultPixelMarker,
			BotCheckURL:        DefaultBotCheckURL,
			SchemaTimeout:      DefaultSchemaTimeout,
			ReportTimeout:      DefaultReportTimeout,
			PassThroughTimeout: DefaultPassThroughTimeout,
			ClientIPHeaders:    append([]string(nil), DefaultClientIPHeaders...),
		},
		Rewrite: RewriteConfig{
			Mode: RewriteModeServer,
		},
		Analytics: AnalyticsConfig{
			Enabled:   true,
			Filter:    FilterFull,
			Workers:   DefaultAnalyticsWorkers,
			QueueSize: DefaultAnalyticsQueueSize,
		},
		Monitoring: MonitoringConfig{
			LogLevel: "info",
		},
	}
}

// Load reads a YAML config file. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	// #nosec G304 -- path comes from the operator's --config flag
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses YAML config bytes on top of the defaults.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := Default()
	expanded := ExpandEnvWithDefaults(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults replaces explicit zero values that mean "use the default".
func (c *Config) applyDefaults() {
	if c.Analytics.Workers == 0 {
		c.Analytics.Workers = DefaultAnalyticsWorkers
	}
	if c.Analytics.QueueSize == 0 {
		c.Analytics.QueueSize = DefaultAnalyticsQueueSize
	}
}

// Validate checks the config for values the gateway cannot run with.
// It never modifies the config.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if strings.TrimSpace(c.Vendor.Domain) == "" && c.Vendor.BaseURL == "" {
		return fmt.Errorf("vendor.domain is required when vendor.base_url is not set")
	}
	switch c.Rewrite.Mode {
	case RewriteModeServer, RewriteModeDeferred:
	default:
		return fmt.Errorf("rewrite.mode must be %q or %q, got %q", RewriteModeServer, RewriteModeDeferred, c.Rewrite.Mode)
	}
	switch c.Analytics.Filter {
	case FilterFull, FilterExtension:
	default:
		return fmt.Errorf("analytics.filter must be %q or %q, got %q", FilterFull, FilterExtension, c.Analytics.Filter)
	}
	if c.Analytics.Workers < 0 {
		return fmt.Errorf("analytics.workers must not be negative")
	}
	if c.Analytics.QueueSize < 0 {
		return fmt.Errorf("analytics.queue_size must not be negative")
	}
	if c.Analytics.RateLimit < 0 {
		return fmt.Errorf("analytics.rate_limit must not be negative")
	}
	if c.Routes.SkipPattern != "" {
		if _, err := regexp.Compile(c.Routes.SkipPattern); err != nil {
			return fmt.Errorf("routes.skip_pattern: %w", err)
		}
	}
	return nil
}

var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// ExpandEnvWithDefaults replaces ${VAR} and ${VAR:-default} with environment values.
// Unset or empty variables take the default (or "" when none is given).
func ExpandEnvWithDefaults(s string) string {
	return envRefPattern.ReplaceAllStringFunc(s, func(ref string) string {
		m := envRefPattern.FindStringSubmatch(ref)
		if v := os.Getenv(m[1]); v != "" {
			return v
		}
		return m[3]
	})
}
