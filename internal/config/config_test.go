package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default Addr is :8080", func(t *testing.T) {
		t.Parallel()
		if cfg.Addr != ":8080" {
			t.Errorf("expected Addr to be ':8080', got '%s'", cfg.Addr)
		}
	})

	t.Run("default MaxPages is 100", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxPages != 100 {
			t.Errorf("expected MaxPages to be 100, got %d", cfg.MaxPages)
		}
	})

	t.Run("default CrawlDelay is zero", func(t *testing.T) {
		t.Parallel()
		if cfg.CrawlDelay != 0 {
			t.Errorf("expected CrawlDelay to be 0, got %v", cfg.CrawlDelay)
		}
	})

	t.Run("default Timeout is 15 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 15*time.Second {
			t.Errorf("expected Timeout to be 15s, got %v", cfg.Timeout)
		}
	})

	t.Run("default BatchSize is 4", func(t *testing.T) {
		t.Parallel()
		if cfg.BatchSize != 4 {
			t.Errorf("expected BatchSize to be 4, got %d", cfg.BatchSize)
		}
	})

	t.Run("default allowlist is empty", func(t *testing.T) {
		t.Parallel()
		if len(cfg.AllowedIPs) != 0 {
			t.Errorf("expected no allowlist entries, got %v", cfg.AllowedIPs)
		}
	})

	t.Run("default DBDir is the XDG data dir", func(t *testing.T) {
		t.Parallel()
		if cfg.DBDir != XDGDataDir() {
			t.Errorf("expected DBDir %q, got %q", XDGDataDir(), cfg.DBDir)
		}
		if filepath.Base(cfg.DBDir) != AppName {
			t.Errorf("expected DBDir to end in %q, got %q", AppName, cfg.DBDir)
		}
	})

	t.Run("defaults are valid", func(t *testing.T) {
		t.Parallel()
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{name: "empty addr", modify: func(c *Config) { c.Addr = " " }, want: ErrInvalidAddr},
		{name: "zero max pages", modify: func(c *Config) { c.MaxPages = 0 }, want: ErrInvalidMaxPages},
		{name: "negative max pages", modify: func(c *Config) { c.MaxPages = -1 }, want: ErrInvalidMaxPages},
		{name: "zero timeout", modify: func(c *Config) { c.Timeout = 0 }, want: ErrInvalidTimeout},
		{name: "negative redirects", modify: func(c *Config) { c.MaxRedirects = -1 }, want: ErrInvalidMaxRedirects},
		{name: "zero batch size", modify: func(c *Config) { c.BatchSize = 0 }, want: ErrInvalidBatchSize},
		{name: "negative delay", modify: func(c *Config) { c.CrawlDelay = -time.Second }, want: ErrInvalidCrawlDelay},
		{name: "zero body size", modify: func(c *Config) { c.MaxBodySize = 0 }, want: ErrInvalidMaxBodySize},
		{name: "tor and proxy", modify: func(c *Config) { c.UseTor = true; c.ProxyAddress = "127.0.0.1:9050" }, want: ErrConflictingTransports},
		{name: "unknown log level", modify: func(c *Config) { c.LogLevel = "loud" }, want: ErrInvalidLogLevel},
		{name: "zero redirects is valid", modify: func(c *Config) { c.MaxRedirects = 0 }},
		{name: "proxy alone is valid", modify: func(c *Config) { c.ProxyAddress = "127.0.0.1:9050" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := NewConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestConfigLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: " error ", want: slog.LevelError},
		{in: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			cfg := &Config{LogLevel: tt.in}
			got, err := cfg.Level()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidLogLevel) {
					t.Errorf("expected ErrInvalidLogLevel, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	t.Run("all variables applied", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		err := cfg.ApplyEnv(env(map[string]string{
			EnvIPAllowlist: " 10.0.0.0/8, ,192.168.1.5 ",
			EnvPort:        "9090",
			EnvLogLevel:    "DEBUG",
		}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(cfg.AllowedIPs, []string{"10.0.0.0/8", "192.168.1.5"}) {
			t.Errorf("unexpected allowlist %v", cfg.AllowedIPs)
		}
		if cfg.Addr != ":9090" {
			t.Errorf("expected Addr ':9090', got %q", cfg.Addr)
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("expected LogLevel 'debug', got %q", cfg.LogLevel)
		}
	})

	t.Run("unset variables leave defaults", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		if err := cfg.ApplyEnv(env(nil)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Addr != DefaultAddr || cfg.AllowedIPs != nil || cfg.LogLevel != DefaultLogLevel {
			t.Errorf("config changed: %+v", cfg)
		}
	})

	t.Run("empty allowlist clears file entries", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.AllowedIPs = []string{"10.0.0.1"}
		if err := cfg.ApplyEnv(env(map[string]string{EnvIPAllowlist: ""})); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cfg.AllowedIPs) != 0 {
			t.Errorf("expected empty allowlist, got %v", cfg.AllowedIPs)
		}
	})

	for _, port := range []string{"http", "0", "70000"} {
		t.Run("invalid port "+port, func(t *testing.T) {
			t.Parallel()
			err := NewConfig().ApplyEnv(env(map[string]string{EnvPort: port}))
			if !errors.Is(err, ErrInvalidPort) {
				t.Errorf("expected ErrInvalidPort, got %v", err)
			}
		})
	}

	t.Run("invalid log level", func(t *testing.T) {
		t.Parallel()
		err := NewConfig().ApplyEnv(env(map[string]string{EnvLogLevel: "chatty"}))
		if !errors.Is(err, ErrInvalidLogLevel) {
			t.Errorf("expected ErrInvalidLogLevel, got %v", err)
		}
	})
}

const sampleConfig = `
server:
  addr: "127.0.0.1:7000"
  allowlist:
    - 10.0.0.0/8
  trustForwardedFor: true
crawl:
  maxPages: 25
  delay: 250ms
  timeout: 30s
  userAgent: test-agent
  batchSize: 2
defaults:
  headers:
    Accept-Language: en
  ignorePatterns:
    - "*.pdf"
sites:
  example.com:
    cookie: "session=abc"
    maxPages: 10
    headers:
      X-Site: example
    followPatterns:
      - "/contact/*"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("parses all sections", func(t *testing.T) {
		t.Parallel()
		f, err := LoadConfigFile(writeConfig(t, sampleConfig))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Server.Addr != "127.0.0.1:7000" || !f.Server.TrustForwardedFor {
			t.Errorf("unexpected server section %+v", f.Server)
		}
		if f.Crawl.Delay != 250*time.Millisecond || f.Crawl.Timeout != 30*time.Second {
			t.Errorf("unexpected durations %+v", f.Crawl)
		}
		if f.Sites["example.com"].Cookie != "session=abc" {
			t.Errorf("unexpected site %+v", f.Sites["example.com"])
		}
	})

	t.Run("missing file returns ErrConfigNotFound", func(t *testing.T) {
		t.Parallel()
		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid yaml returns error", func(t *testing.T) {
		t.Parallel()
		_, err := LoadConfigFile(writeConfig(t, "crawl: [unclosed"))
		if err == nil {
			t.Error("expected error, got nil")
		}
	})

	t.Run("empty file has sites map", func(t *testing.T) {
		t.Parallel()
		f, err := LoadConfigFile(writeConfig(t, ""))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Sites == nil {
			t.Error("expected non-nil Sites map")
		}
	})
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("file then environment", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, sampleConfig)
		cfg, err := Load(path, env(map[string]string{EnvPort: "9000"}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Addr != ":9000" {
			t.Errorf("expected PORT to win over file, got %q", cfg.Addr)
		}
		if cfg.MaxPages != 25 || cfg.CrawlDelay != 250*time.Millisecond || cfg.BatchSize != 2 {
			t.Errorf("file settings not applied: %+v", cfg)
		}
		if cfg.UserAgent != "test-agent" || !cfg.TrustForwardedFor {
			t.Errorf("file settings not applied: %+v", cfg)
		}
		if !slices.Equal(cfg.AllowedIPs, []string{"10.0.0.0/8"}) {
			t.Errorf("unexpected allowlist %v", cfg.AllowedIPs)
		}
		if cfg.MaxRedirects != DefaultMaxRedirects {
			t.Errorf("unset file values must keep defaults, got %d", cfg.MaxRedirects)
		}
		if cfg.ConfigFilePath != path {
			t.Errorf("expected ConfigFilePath %q, got %q", path, cfg.ConfigFilePath)
		}
	})

	t.Run("explicit missing path fails", func(t *testing.T) {
		t.Parallel()
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})
}

func TestGetSiteConfig(t *testing.T) {
	t.Parallel()

	f, err := LoadConfigFile(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("site overrides defaults", func(t *testing.T) {
		t.Parallel()
		sc := f.GetSiteConfig("example.com")
		if sc.Cookie != "session=abc" || sc.MaxPages != 10 {
			t.Errorf("unexpected site config %+v", sc)
		}
		if sc.Headers["Accept-Language"] != "en" || sc.Headers["X-Site"] != "example" {
			t.Errorf("headers not merged: %v", sc.Headers)
		}
		if !slices.Equal(sc.IgnorePatterns, []string{"*.pdf"}) {
			t.Errorf("expected default ignore patterns, got %v", sc.IgnorePatterns)
		}
		if !slices.Equal(sc.FollowPatterns, []string{"/contact/*"}) {
			t.Errorf("unexpected follow patterns %v", sc.FollowPatterns)
		}
	})

	t.Run("host match ignores case and port", func(t *testing.T) {
		t.Parallel()
		sc := f.GetSiteConfig("EXAMPLE.com:8443")
		if sc.Cookie != "session=abc" {
			t.Errorf("expected site match, got %+v", sc)
		}
	})

	t.Run("unknown host gets defaults", func(t *testing.T) {
		t.Parallel()
		sc := f.GetSiteConfig("other.org")
		if sc.Cookie != "" || sc.Headers["Accept-Language"] != "en" {
			t.Errorf("unexpected config %+v", sc)
		}
	})

	t.Run("merging does not mutate defaults", func(t *testing.T) {
		t.Parallel()
		sc := f.GetSiteConfig("example.com")
		sc.Headers["X-Mutated"] = "yes"
		if _, ok := f.Defaults.Headers["X-Site"]; ok {
			t.Error("site headers leaked into defaults")
		}
		if _, ok := f.GetSiteConfig("other.org").Headers["X-Mutated"]; ok {
			t.Error("returned headers alias the defaults")
		}
	})

	t.Run("config without sites", func(t *testing.T) {
		t.Parallel()
		cfg := &Config{}
		if sc := cfg.Site("example.com"); sc.Cookie != "" || len(sc.Headers) != 0 {
			t.Errorf("expected zero SiteConfig, got %+v", sc)
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit existing path", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, "")
		if got := FindConfigFile(path); got != path {
			t.Errorf("expected %q, got %q", path, got)
		}
	})

	t.Run("explicit missing path", func(t *testing.T) {
		t.Parallel()
		if got := FindConfigFile(filepath.Join(t.TempDir(), "missing")); got != "" {
			t.Errorf("expected empty path, got %q", got)
		}
	})
}

func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for _, dir := range []string{XDGDataDir(), XDGConfigDir()} {
		if !strings.HasSuffix(dir, AppName) {
			t.Errorf("expected %q to end with %q", dir, AppName)
		}
	}
}
