package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"

	"github.com/nao1215/contactscan/internal/config"
	"github.com/nao1215/contactscan/internal/crawler"
	"github.com/nao1215/contactscan/internal/database"
	clog "github.com/nao1215/contactscan/internal/log"
	"github.com/nao1215/contactscan/internal/model"
	"github.com/nao1215/contactscan/internal/server"
	"github.com/nao1215/contactscan/internal/transport"
)

// addCrawlFlags registers the fetch and crawl flags shared by serve and crawl.
func addCrawlFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to fetch per crawl")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Delay between page fetches")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each page fetch")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every fetch")
	cmd.Flags().Bool("allow-private", false,
		"Allow fetching loopback, private and link-local addresses")
	cmd.Flags().Bool("tor", false,
		"Fetch through an embedded Tor daemon (required for .onion sites)")
	cmd.Flags().String("proxy", "",
		"Fetch through a SOCKS5 proxy (e.g., 127.0.0.1:9050)")
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")
	cmd.Flags().Bool("no-save", false,
		"Do not store finished crawls in the history database")
}

// loadConfig builds the configuration from defaults, the config file,
// the environment and finally the flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := persistentString(cmd, "config")
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(path, os.LookupEnv)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := applyCrawlFlags(cmd, cfg); err != nil {
		return nil, err
	}
	if persistentBool(cmd, "verbose") {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// applyCrawlFlags copies the crawl flags that were set on the command line.
func applyCrawlFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	if flags.Changed("max-pages") {
		if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
			return err
		}
	}
	if flags.Changed("delay") {
		if cfg.CrawlDelay, err = flags.GetDuration("delay"); err != nil {
			return err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return err
		}
	}
	if flags.Changed("user-agent") {
		if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
			return err
		}
	}
	if flags.Changed("allow-private") {
		if cfg.AllowPrivateNetworks, err = flags.GetBool("allow-private"); err != nil {
			return err
		}
	}
	if flags.Changed("tor") {
		if cfg.UseTor, err = flags.GetBool("tor"); err != nil {
			return err
		}
	}
	if flags.Changed("proxy") {
		if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
			return err
		}
	}
	if flags.Changed("tor-timeout") {
		if cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout"); err != nil {
			return err
		}
	}
	if flags.Changed("no-save") {
		noSave, err := flags.GetBool("no-save")
		if err != nil {
			return err
		}
		cfg.SaveToDB = !noSave
	}
	return nil
}

// persistentString reads a root persistent flag from cmd or its root.
func persistentString(cmd *cobra.Command, name string) (string, error) {
	if f := cmd.Flags().Lookup(name); f != nil {
		return f.Value.String(), nil
	}
	if f := cmd.Root().PersistentFlags().Lookup(name); f != nil {
		return f.Value.String(), nil
	}
	return "", nil
}

// persistentBool reads a boolean root persistent flag, defaulting to false.
func persistentBool(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// newLogger returns the sanitizing logger configured by cfg and --json-logs.
func newLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	return clog.New(cmd.ErrOrStderr(), level, persistentBool(cmd, "json-logs")), nil
}

// newHTTPClient returns the client all fetches go through: an embedded
// Tor daemon, an external SOCKS5 proxy, or a direct connection. The
// returned cleanup function must be called when the client is no longer
// used.
func newHTTPClient(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) (*http.Client, func(), error) {
	opts := transport.Options{
		Timeout:              cfg.Timeout,
		MaxRedirects:         cfg.MaxRedirects,
		AllowPrivateNetworks: cfg.AllowPrivateNetworks,
	}
	noop := func() {}

	switch {
	case cfg.UseTor:
		fmt.Fprintln(out, "Starting embedded Tor daemon...")
		fmt.Fprintf(out, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

		et := transport.NewEmbeddedTor(transport.WithStartupTimeout(cfg.TorStartupTimeout))
		if err := et.Start(ctx); err != nil {
			return nil, noop, fmt.Errorf("failed to start embedded Tor: %w", err)
		}
		stop := func() {
			logger.Info("stopping embedded Tor daemon")
			if err := et.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}
		client, err := et.NewClient(opts)
		if err != nil {
			stop()
			return nil, noop, fmt.Errorf("failed to create Tor client: %w", err)
		}
		logger.Info("embedded Tor daemon started", "socks_addr", et.SocksAddr())
		return client, stop, nil

	case cfg.ProxyAddress != "":
		client, err := transport.NewSOCKSClient(cfg.ProxyAddress, opts)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create proxy client: %w", err)
		}
		logger.Info("fetching through SOCKS5 proxy", "proxy", cfg.ProxyAddress)
		return client, noop, nil

	default:
		return transport.NewDirectClient(opts), noop, nil
	}
}

// spiderFactory builds one spider per host, applying the site settings
// of the configuration file. Spiders are cached and safe to share.
type spiderFactory struct {
	cfg    *config.Config
	client *http.Client
	logger *slog.Logger

	mu      sync.Mutex
	spiders map[string]*crawler.Spider
}

func newSpiderFactory(cfg *config.Config, client *http.Client, logger *slog.Logger) *spiderFactory {
	return &spiderFactory{
		cfg:     cfg,
		client:  client,
		logger:  logger,
		spiders: make(map[string]*crawler.Spider),
	}
}

// Default returns the spider used for hosts without site settings.
func (f *spiderFactory) Default() *crawler.Spider {
	return f.For(model.CrawlRequest{})
}

// For returns the spider for req's host.
func (f *spiderFactory) For(req model.CrawlRequest) *crawler.Spider {
	host := req.Host()

	f.mu.Lock()
	defer f.mu.Unlock()
	if sp, ok := f.spiders[host]; ok {
		return sp
	}

	site := f.cfg.Site(host)
	client := f.client
	if site.Cookie != "" || len(site.Headers) > 0 {
		client = transport.WithSiteHeaders(client, site.Cookie, site.Headers)
	}
	maxPages := f.cfg.MaxPages
	if site.MaxPages > 0 {
		maxPages = site.MaxPages
	}
	if host != "" {
		f.logger.Debug("site settings",
			"host", host,
			"cookie", site.Cookie,
			"headers", site.Headers,
			"max_pages", maxPages,
			"ignore", site.IgnorePatterns,
			"follow", site.FollowPatterns,
		)
	}

	fetcher := crawler.NewHTTPFetcher(client,
		crawler.WithUserAgent(f.cfg.UserAgent),
		crawler.WithMaxBodySize(f.cfg.MaxBodySize),
	)
	sp := crawler.NewSpider(fetcher,
		crawler.WithMaxPages(maxPages),
		crawler.WithDelay(f.cfg.CrawlDelay),
		crawler.WithLogger(f.logger),
		crawler.WithIgnorePatterns(site.IgnorePatterns),
		crawler.WithFollowPatterns(site.FollowPatterns),
	)
	f.spiders[host] = sp
	return sp
}

// openStore opens the history database, or returns nil when saving is off.
func openStore(cfg *config.Config, logger *slog.Logger) (*database.CrawlDB, error) {
	if !cfg.SaveToDB {
		return nil, nil
	}
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Info("database opened", "path", db.Path())
	return db, nil
}

// openHistory opens the history database for the read-only commands.
func openHistory(cmd *cobra.Command) (*database.CrawlDB, error) {
	path, err := persistentString(cmd, "config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path, os.LookupEnv)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// newService wires the spider factory and the optional store into a Service.
func newService(spiders *spiderFactory, db *database.CrawlDB, logger *slog.Logger) *server.Service {
	opts := []server.ServiceOption{server.WithSpiderFunc(spiders.For)}
	if db != nil {
		opts = append(opts, server.WithReportStore(db))
	}
	return server.NewService(spiders.Default(), logger, opts...)
}

// openOutput returns stdout, or the file at path with its directories
// created. The returned close function is always non-nil.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	// Reports contain harvested contact details; keep them owner-readable.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // user-provided output path
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// errNoHistory is returned by history and compare when nothing matches.
var errNoHistory = errors.New("no crawl history found")
