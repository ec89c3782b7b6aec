package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/contactscan/internal/auth"
	"github.com/nao1215/contactscan/internal/config"
	"github.com/nao1215/contactscan/internal/server"
)

// shutdownTimeout bounds how long in-flight crawls may keep streaming
// after a shutdown signal.
const shutdownTimeout = 30 * time.Second

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the contact extraction HTTP service",
		Long: `Serve starts an HTTP service that crawls websites on request.

POST /api/contact-extract with a JSON body such as
  {"url": "example.com", "country": "us"}
and the service streams newline-delimited JSON: one progress event per
page, then a single result event with the emails and phones found.

Callers can be restricted with an IP allowlist (--allow, the server.allowlist
setting, or the IP_ALLOWLIST environment variable). PORT overrides the
listen port, LOG_LEVEL the log level.

Examples:
  # Listen on :8080 and accept every caller
  contactscan serve

  # Only accept requests from the local network
  contactscan serve --allow 127.0.0.1 --allow 10.0.0.0/8

  # Behind a reverse proxy, trust X-Forwarded-For
  contactscan serve --allow 203.0.113.7 --trust-proxy`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("addr", "a", config.DefaultAddr, "Listen address")
	cmd.Flags().StringSlice("allow", nil,
		"Allowed client IP or CIDR (repeatable; default: allow all)")
	cmd.Flags().Bool("trust-proxy", false,
		"Use X-Forwarded-For and X-Real-IP for the allowlist")
	addCrawlFlags(cmd)

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyServeFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Addr, err)
	}
	return runServe(ctx, cfg, logger, ln, cmd.ErrOrStderr())
}

// applyServeFlags copies the serve flags that were set on the command line.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	if flags.Changed("addr") {
		if cfg.Addr, err = flags.GetString("addr"); err != nil {
			return err
		}
	}
	if flags.Changed("allow") {
		if cfg.AllowedIPs, err = flags.GetStringSlice("allow"); err != nil {
			return err
		}
	}
	if flags.Changed("trust-proxy") {
		if cfg.TrustForwardedFor, err = flags.GetBool("trust-proxy"); err != nil {
			return err
		}
	}
	return nil
}

// runServe serves on ln until ctx is done, then shuts down gracefully.
func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger, ln net.Listener, out io.Writer) error {
	allowlist, err := auth.ParseIPAllowlist(cfg.AllowedIPs, auth.WithTrustForwardedFor(cfg.TrustForwardedFor))
	if err != nil {
		ln.Close()
		return fmt.Errorf("invalid allowlist: %w", err)
	}

	httpClient, cleanup, err := newHTTPClient(ctx, cfg, logger, out)
	if err != nil {
		ln.Close()
		return err
	}
	defer cleanup()

	db, err := openStore(cfg, logger)
	if err != nil {
		ln.Close()
		return err
	}
	if db != nil {
		defer db.Close()
	}

	svc := newService(newSpiderFactory(cfg, httpClient, logger), db, logger)
	handler := server.NewHandler(server.NewTransport(svc, allowlist, logger), logger)
	srv := server.New(ln.Addr().String(), handler, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	if allowlist.Len() == 0 {
		logger.Warn("no IP allowlist configured; every caller is allowed")
	}
	fmt.Fprintf(out, "contactscan listening on %s\n", ln.Addr())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return <-errCh
}
