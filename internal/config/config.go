// Package config handles TOML configuration loading and validation.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// configSearchPaths lists paths checked in order when no explicit config is given.
var configSearchPaths = []string{
	"/etc/ghproxy/config.toml",
	"configs/config.toml",
}

// defaultUserAgent identifies the proxy on outbound requests.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) ghproxy/1.0"

// CLI holds command-line arguments parsed by Kong.
type CLI struct {
	Config    string `kong:"short='c',help='Path to TOML config file.',env='CONFIG_PATH'"`
	Host      string `kong:"help='Listen host (overrides config).',env='HOST'"`
	Port      int    `kong:"short='p',help='Listen port (overrides config).',env='PORT'"`
	Timeout   int    `kong:"help='Upstream request timeout in seconds (overrides config).',env='GHPROXY_TIMEOUT'"`
	CacheTTL  *int   `kong:"name='cache-ttl',help='Response cache TTL in seconds; 0 or less disables caching (overrides config).',env='GHPROXY_CACHE_TTL'"`
	CacheSize int    `kong:"name='cache-size',help='Maximum response cache entries (overrides config).',env='GHPROXY_CACHE_MAXSIZE'"`
	UserAgent string `kong:"name='user-agent',help='Outbound User-Agent string (overrides config).',env='GHPROXY_USER_AGENT'"`
	LogLevel  string `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`
}

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Proxy   ProxyConfig   `toml:"proxy"`
	Log     LogConfig     `toml:"log"`
	Metrics MetricsConfig `toml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"` // 0 means "use default" (8000); TOML cannot distinguish 0 from unset
}

// ProxyConfig holds settings for upstream fetching and the response cache.
//
// CacheTTLSeconds is a pointer because zero is meaningful: 0 or a negative
// value disables caching, while an absent key means the 60-second default.
type ProxyConfig struct {
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	CacheTTLSeconds *int   `toml:"cache_ttl_seconds"`
	CacheMaxEntries int    `toml:"cache_max_entries"`
	UserAgent       string `toml:"user_agent"`
	ChunkBytes      int    `toml:"chunk_bytes"`
	IdleConnections int    `toml:"idle_connections"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load reads the TOML config file, if any, and applies CLI overrides.
// When no explicit path is given (via --config or CONFIG_PATH), it searches
// /etc/ghproxy/config.toml then configs/config.toml; every setting has a
// default, so running without any config file at all is fine.
func Load(cli *CLI) (*Config, error) {
	var cfg Config

	path := cli.Config
	if path == "" {
		path = findConfig()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyCLI(cli)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// applyCLI overrides config values with non-zero CLI flags.
func (c *Config) applyCLI(cli *CLI) {
	if cli.Host != "" {
		c.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	if cli.Timeout != 0 {
		c.Proxy.TimeoutSeconds = cli.Timeout
	}
	if cli.CacheTTL != nil {
		c.Proxy.CacheTTLSeconds = cli.CacheTTL
	}
	if cli.CacheSize != 0 {
		c.Proxy.CacheMaxEntries = cli.CacheSize
	}
	if cli.UserAgent != "" {
		c.Proxy.UserAgent = cli.UserAgent
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
}

func (c *Config) validate() error {
	// Numeric bounds.
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 0–65535; got %d", c.Server.Port)
	}
	if c.Proxy.TimeoutSeconds < 0 {
		return fmt.Errorf("proxy.timeout_seconds must be non-negative; got %d", c.Proxy.TimeoutSeconds)
	}
	if c.Proxy.CacheMaxEntries < 0 {
		return fmt.Errorf("proxy.cache_max_entries must be non-negative; got %d", c.Proxy.CacheMaxEntries)
	}
	if c.Proxy.ChunkBytes < 0 {
		return fmt.Errorf("proxy.chunk_bytes must be non-negative; got %d", c.Proxy.ChunkBytes)
	}
	if c.Proxy.IdleConnections < 0 {
		return fmt.Errorf("proxy.idle_connections must be non-negative; got %d", c.Proxy.IdleConnections)
	}

	// Log fields.
	level := strings.ToLower(c.Log.Level)
	switch level {
	case "debug", "info", "warn", "error", "":
		// valid
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level)
	}
	format := strings.ToLower(c.Log.Format)
	switch format {
	case "json", "text", "":
		// valid
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format)
	}

	// Metrics path validation (only when metrics are enabled).
	if c.Metrics.Enabled && c.Metrics.Path != "" {
		p := c.Metrics.Path
		if p[0] != '/' {
			return fmt.Errorf("metrics.path must start with '/'; got %q", p)
		}
		if _, err := url.Parse(p); err != nil {
			return fmt.Errorf("metrics.path is not a valid path: %w", err)
		}
		for _, reserved := range []string{"/healthz", "/proxy/status", "/raw"} {
			if p == reserved || strings.HasPrefix(p, reserved+"/") {
				return fmt.Errorf("metrics.path %q conflicts with reserved route %q", p, reserved)
			}
		}
	}

	return nil
}

// setDefaults fills zero-valued fields with sensible defaults.
// For integer fields, zero means "unset" because TOML cannot distinguish an
// explicit 0 from an omitted key; cache_ttl_seconds is the one exception,
// where an explicit 0 (or negative) disables caching.
func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Proxy.TimeoutSeconds == 0 {
		c.Proxy.TimeoutSeconds = 15
	}
	if c.Proxy.CacheTTLSeconds == nil {
		ttl := 60
		c.Proxy.CacheTTLSeconds = &ttl
	}
	if c.Proxy.CacheMaxEntries == 0 {
		c.Proxy.CacheMaxEntries = 256
	}
	if c.Proxy.UserAgent == "" {
		c.Proxy.UserAgent = defaultUserAgent
	}
	if c.Proxy.ChunkBytes == 0 {
		c.Proxy.ChunkBytes = 64 * 1024
	}
	if c.Proxy.IdleConnections == 0 {
		c.Proxy.IdleConnections = 100
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// findConfig returns the first config path that exists, or empty string.
func findConfig() string {
	return findConfigInPaths(configSearchPaths)
}

// findConfigInPaths returns the first path that exists on disk, or empty string.
func findConfigInPaths(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Addr returns the server listen address as host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Timeout returns the upstream request timeout as a duration.
func (p *ProxyConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// CacheTTL returns the response cache TTL as a duration. Zero or negative
// means caching is disabled.
func (p *ProxyConfig) CacheTTL() time.Duration {
	if p.CacheTTLSeconds == nil {
		return 0
	}
	return time.Duration(*p.CacheTTLSeconds) * time.Second
}
