package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".contactscan"

// Environment variables read by ApplyEnv.
const (
	EnvIPAllowlist = "IP_ALLOWLIST"
	EnvPort        = "PORT"
	EnvLogLevel    = "LOG_LEVEL"
)

// File represents the structure of the .contactscan configuration file.
type File struct {
	// Server configures the HTTP service.
	Server ServerSection `yaml:"server,omitempty"`

	// Crawl configures fetching and page limits.
	Crawl CrawlSection `yaml:"crawl,omitempty"`

	// Defaults applies to every site unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Sites maps hosts (e.g. "example.com") to site-specific settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`
}

// ServerSection is the "server" block of the configuration file.
type ServerSection struct {
	Addr              string   `yaml:"addr,omitempty"`
	Allowlist         []string `yaml:"allowlist,omitempty"`
	TrustForwardedFor bool     `yaml:"trustForwardedFor,omitempty"`
}

// CrawlSection is the "crawl" block of the configuration file.
// Durations use Go syntax such as "500ms" or "15s".
type CrawlSection struct {
	MaxPages     int           `yaml:"maxPages,omitempty"`
	Delay        time.Duration `yaml:"delay,omitempty"`
	Timeout      time.Duration `yaml:"timeout,omitempty"`
	MaxRedirects int           `yaml:"maxRedirects,omitempty"`
	UserAgent    string        `yaml:"userAgent,omitempty"`
	MaxBodySize  int64         `yaml:"maxBodySize,omitempty"`
	BatchSize    int           `yaml:"batchSize,omitempty"`
	Proxy        string        `yaml:"proxy,omitempty"`
	DBDir        string        `yaml:"dbDir,omitempty"`
}

// LoadConfigFile loads a YAML configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if cf.Sites == nil {
		cf.Sites = make(map[string]SiteConfig)
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .contactscan in the current directory
// 3. Look for .contactscan in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}

// ApplyFile copies every non-zero setting of f into c.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	c.Sites = f

	if f.Server.Addr != "" {
		c.Addr = f.Server.Addr
	}
	if len(f.Server.Allowlist) > 0 {
		c.AllowedIPs = append([]string(nil), f.Server.Allowlist...)
	}
	if f.Server.TrustForwardedFor {
		c.TrustForwardedFor = true
	}

	cs := f.Crawl
	if cs.MaxPages != 0 {
		c.MaxPages = cs.MaxPages
	}
	if cs.Delay != 0 {
		c.CrawlDelay = cs.Delay
	}
	if cs.Timeout != 0 {
		c.Timeout = cs.Timeout
	}
	if cs.MaxRedirects != 0 {
		c.MaxRedirects = cs.MaxRedirects
	}
	if cs.UserAgent != "" {
		c.UserAgent = cs.UserAgent
	}
	if cs.MaxBodySize != 0 {
		c.MaxBodySize = cs.MaxBodySize
	}
	if cs.BatchSize != 0 {
		c.BatchSize = cs.BatchSize
	}
	if cs.Proxy != "" {
		c.ProxyAddress = cs.Proxy
	}
	if cs.DBDir != "" {
		c.DBDir = cs.DBDir
	}
}

// ApplyEnv applies IP_ALLOWLIST, PORT and LOG_LEVEL using lookup,
// which is normally os.LookupEnv. Unset variables leave c unchanged.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvIPAllowlist); ok {
		c.AllowedIPs = splitList(v)
	}

	if v, ok := lookup(EnvPort); ok && strings.TrimSpace(v) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("%w: %s=%q", ErrInvalidPort, EnvPort, v)
		}
		c.Addr = ":" + strconv.Itoa(port)
	}

	if v, ok := lookup(EnvLogLevel); ok && strings.TrimSpace(v) != "" {
		c.LogLevel = strings.ToLower(strings.TrimSpace(v))
		if _, err := c.Level(); err != nil {
			return err
		}
	}
	return nil
}

// Load builds a Config from defaults, the configuration file found by
// FindConfigFile(configPath) and the environment. An explicit configPath
// that does not exist is an error; a missing default file is not.
func Load(configPath string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := NewConfig()
	cfg.ConfigFilePath = configPath

	path := FindConfigFile(configPath)
	switch {
	case path != "":
		f, err := LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		cfg.ApplyFile(f)
		cfg.ConfigFilePath = path
	case configPath != "":
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
	}

	if lookup != nil {
		if err := cfg.ApplyEnv(lookup); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
