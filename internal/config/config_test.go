package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// cliWithPath returns a CLI struct pointing at the given config file.
func cliWithPath(path string) *CLI {
	return &CLI{Config: path}
}

// writeConfig writes a temp config file and returns its path.
func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
[server]
host = "127.0.0.1"
port = 9000

[proxy]
timeout_seconds = 30
cache_ttl_seconds = 120
cache_max_entries = 512
user_agent = "test-agent/1.0"
chunk_bytes = 32768

[log]
level = "debug"
format = "text"
`)

	cfg, err := Load(cliWithPath(path))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9000)
	}
	if cfg.Proxy.TimeoutSeconds != 30 {
		t.Errorf("Proxy.TimeoutSeconds = %d, want %d", cfg.Proxy.TimeoutSeconds, 30)
	}
	if got := cfg.Proxy.CacheTTL(); got != 120*time.Second {
		t.Errorf("Proxy.CacheTTL() = %v, want %v", got, 120*time.Second)
	}
	if cfg.Proxy.CacheMaxEntries != 512 {
		t.Errorf("Proxy.CacheMaxEntries = %d, want %d", cfg.Proxy.CacheMaxEntries, 512)
	}
	if cfg.Proxy.UserAgent != "test-agent/1.0" {
		t.Errorf("Proxy.UserAgent = %q, want %q", cfg.Proxy.UserAgent, "test-agent/1.0")
	}
	if cfg.Proxy.ChunkBytes != 32768 {
		t.Errorf("Proxy.ChunkBytes = %d, want %d", cfg.Proxy.ChunkBytes, 32768)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
	if cfg.Log.Format != "text" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "text")
	}
}

func TestLoad_Defaults(t *testing.T) {
	// No config file anywhere: everything defaults.
	cfg, err := Load(&CLI{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8000)
	}
	if cfg.Proxy.TimeoutSeconds != 15 {
		t.Errorf("Proxy.TimeoutSeconds = %d, want %d", cfg.Proxy.TimeoutSeconds, 15)
	}
	if got := cfg.Proxy.CacheTTL(); got != 60*time.Second {
		t.Errorf("Proxy.CacheTTL() = %v, want %v", got, 60*time.Second)
	}
	if cfg.Proxy.CacheMaxEntries != 256 {
		t.Errorf("Proxy.CacheMaxEntries = %d, want %d", cfg.Proxy.CacheMaxEntries, 256)
	}
	if cfg.Proxy.UserAgent != defaultUserAgent {
		t.Errorf("Proxy.UserAgent = %q, want %q", cfg.Proxy.UserAgent, defaultUserAgent)
	}
	if cfg.Proxy.ChunkBytes != 64*1024 {
		t.Errorf("Proxy.ChunkBytes = %d, want %d", cfg.Proxy.ChunkBytes, 64*1024)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "json")
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %q, want %q", cfg.Metrics.Path, "/metrics")
	}
}

func TestLoad_ZeroTTLDisablesCaching(t *testing.T) {
	path := writeConfig(t, `
[proxy]
cache_ttl_seconds = 0
`)

	cfg, err := Load(cliWithPath(path))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := cfg.Proxy.CacheTTL(); got != 0 {
		t.Errorf("Proxy.CacheTTL() = %v, want 0 (caching disabled)", got)
	}
}

func TestLoad_NegativeTTLDisablesCaching(t *testing.T) {
	path := writeConfig(t, `
[proxy]
cache_ttl_seconds = -5
`)

	cfg, err := Load(cliWithPath(path))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := cfg.Proxy.CacheTTL(); got >= 0 {
		t.Errorf("Proxy.CacheTTL() = %v, want negative (caching disabled)", got)
	}
}

func TestLoad_CLIOverrides(t *testing.T) {
	path := writeConfig(t, `
[server]
host = "127.0.0.1"
port = 9000

[proxy]
timeout_seconds = 30
user_agent = "file-agent/1.0"
`)

	ttl := 0
	cli := &CLI{
		Config:    path,
		Host:      "192.168.1.1",
		Port:      8080,
		Timeout:   5,
		CacheTTL:  &ttl,
		CacheSize: 16,
		UserAgent: "cli-agent/2.0",
		LogLevel:  "warn",
	}

	cfg, err := Load(cli)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "192.168.1.1" {
		t.Errorf("Server.Host = %q, want CLI override", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want CLI override 8080", cfg.Server.Port)
	}
	if cfg.Proxy.TimeoutSeconds != 5 {
		t.Errorf("Proxy.TimeoutSeconds = %d, want CLI override 5", cfg.Proxy.TimeoutSeconds)
	}
	if got := cfg.Proxy.CacheTTL(); got != 0 {
		t.Errorf("Proxy.CacheTTL() = %v, want 0 from CLI override", got)
	}
	if cfg.Proxy.CacheMaxEntries != 16 {
		t.Errorf("Proxy.CacheMaxEntries = %d, want CLI override 16", cfg.Proxy.CacheMaxEntries)
	}
	if cfg.Proxy.UserAgent != "cli-agent/2.0" {
		t.Errorf("Proxy.UserAgent = %q, want CLI override", cfg.Proxy.UserAgent)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want CLI override", cfg.Log.Level)
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(cliWithPath(filepath.Join(t.TempDir(), "nope.toml")))
	if err == nil {
		t.Fatal("Load() expected error for missing explicit config file, got nil")
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := writeConfig(t, `[server`)
	_, err := Load(cliWithPath(path))
	if err == nil {
		t.Fatal("Load() expected error for invalid TOML, got nil")
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{
			name: "port out of range",
			data: "[server]\nport = 70000\n",
		},
		{
			name: "negative timeout",
			data: "[proxy]\ntimeout_seconds = -1\n",
		},
		{
			name: "negative cache size",
			data: "[proxy]\ncache_max_entries = -1\n",
		},
		{
			name: "invalid log level",
			data: "[log]\nlevel = \"verbose\"\n",
		},
		{
			name: "invalid log format",
			data: "[log]\nformat = \"xml\"\n",
		},
		{
			name: "metrics path without slash",
			data: "[metrics]\nenabled = true\npath = \"metrics\"\n",
		},
		{
			name: "metrics path conflicts with health route",
			data: "[metrics]\nenabled = true\npath = \"/healthz\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.data)
			if _, err := Load(cliWithPath(path)); err == nil {
				t.Fatal("Load() expected validation error, got nil")
			}
		})
	}
}

func TestFindConfigInPaths(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(existing, []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}

	got := findConfigInPaths([]string{
		filepath.Join(dir, "missing.toml"),
		existing,
	})
	if got != existing {
		t.Errorf("findConfigInPaths() = %q, want %q", got, existing)
	}

	if got := findConfigInPaths([]string{filepath.Join(dir, "missing.toml")}); got != "" {
		t.Errorf("findConfigInPaths() = %q, want empty", got)
	}
}

func TestServerConfig_Addr(t *testing.T) {
	s := &ServerConfig{Host: "127.0.0.1", Port: 8000}
	if got := s.Addr(); got != "127.0.0.1:8000" {
		t.Errorf("Addr() = %q, want %q", got, "127.0.0.1:8000")
	}
}
