package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/contactscan/internal/crawler"
	"github.com/nao1215/contactscan/internal/transport"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "contactscan"

	// DefaultAddr is the listen address of the HTTP service.
	DefaultAddr = ":8080"

	// DefaultMaxPages is the maximum number of pages fetched per crawl.
	DefaultMaxPages = crawler.DefaultMaxPages

	// DefaultCrawlDelay is the pause between page fetches. Crawls run
	// back to back unless a delay is configured.
	DefaultCrawlDelay = time.Duration(0)

	// DefaultTimeout bounds each page fetch, redirects included.
	DefaultTimeout = transport.DefaultTimeout

	// DefaultMaxRedirects is the number of redirects followed per fetch.
	DefaultMaxRedirects = transport.DefaultMaxRedirects

	// DefaultUserAgent identifies contactscan in HTTP requests.
	DefaultUserAgent = crawler.DefaultUserAgent

	// DefaultMaxBodySize limits the response body read per page.
	DefaultMaxBodySize = crawler.DefaultMaxBodySize

	// DefaultBatchSize is the number of crawls the CLI runs at once.
	DefaultBatchSize = 4

	// DefaultTorProxyAddress is the standard Tor SOCKS5 proxy address.
	DefaultTorProxyAddress = "127.0.0.1:9050"

	// DefaultTorStartupTimeout is the maximum time to wait for the
	// embedded Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// DefaultLogLevel is used unless --verbose or LOG_LEVEL says otherwise.
	DefaultLogLevel = "warn"
)

// Config holds all configuration options for contactscan.
// It is built from defaults, then the config file, then the environment,
// then CLI flags, and passed through the application explicitly.
type Config struct {
	// Addr is the listen address of the HTTP service.
	Addr string

	// AllowedIPs lists the addresses and CIDR prefixes allowed to call
	// the service. Empty means every caller is allowed.
	AllowedIPs []string

	// TrustForwardedFor makes the allowlist use X-Forwarded-For and
	// X-Real-IP. Enable it only behind a reverse proxy.
	TrustForwardedFor bool

	// MaxPages caps the number of pages fetched per crawl.
	MaxPages int

	// CrawlDelay is the pause between page fetches.
	CrawlDelay time.Duration

	// Timeout bounds each page fetch.
	Timeout time.Duration

	// MaxRedirects is the number of redirects followed per fetch.
	MaxRedirects int

	// UserAgent is the User-Agent header sent with every fetch.
	UserAgent string

	// MaxBodySize is the maximum number of body bytes read per page.
	MaxBodySize int64

	// BatchSize is the number of concurrent crawls for multiple targets.
	BatchSize int

	// AllowPrivateNetworks disables the guard against fetching loopback,
	// private and link-local addresses.
	AllowPrivateNetworks bool

	// ProxyAddress routes fetches through a SOCKS5 proxy ("host:port").
	ProxyAddress string

	// UseTor starts an embedded Tor daemon and fetches through it.
	UseTor bool

	// TorStartupTimeout is the maximum time to wait for Tor to bootstrap.
	TorStartupTimeout time.Duration

	// DBDir is the directory of the crawl history database.
	DBDir string

	// SaveToDB stores every finished crawl in the history database.
	SaveToDB bool

	// LogLevel is one of debug, info, warn or error.
	LogLevel string

	// ConfigFilePath is the explicit path of the configuration file.
	// If empty, .contactscan is looked up in the current directory and
	// then in the home directory.
	ConfigFilePath string

	// Sites holds the per-site settings from the configuration file.
	Sites *File
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Addr:              DefaultAddr,
		MaxPages:          DefaultMaxPages,
		CrawlDelay:        DefaultCrawlDelay,
		Timeout:           DefaultTimeout,
		MaxRedirects:      DefaultMaxRedirects,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		BatchSize:         DefaultBatchSize,
		TorStartupTimeout: DefaultTorStartupTimeout,
		DBDir:             XDGDataDir(),
		SaveToDB:          true,
		LogLevel:          DefaultLogLevel,
		Sites:             &File{Sites: map[string]SiteConfig{}},
	}
}

// XDGDataDir returns the XDG data directory for contactscan.
// On Linux: ~/.local/share/contactscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for contactscan.
// On Linux: ~/.config/contactscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Level returns the slog level named by LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelWarn, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
	}
	return level, nil
}

// Site returns the merged settings for host. It never returns nil maps
// shared with the configuration file.
func (c *Config) Site(host string) SiteConfig {
	if c.Sites == nil {
		return SiteConfig{}
	}
	return c.Sites.GetSiteConfig(host)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return ErrInvalidAddr
	}
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxRedirects < 0 {
		return ErrInvalidMaxRedirects
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}
	if c.UseTor && c.ProxyAddress != "" {
		return ErrConflictingTransports
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}
