package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/contactscan/internal/batch"
	"github.com/nao1215/contactscan/internal/client"
	"github.com/nao1215/contactscan/internal/config"
	"github.com/nao1215/contactscan/internal/model"
	"github.com/nao1215/contactscan/internal/report"
	"github.com/nao1215/contactscan/internal/stream"
)

// formatNDJSON streams the raw event lines instead of rendering a report.
const formatNDJSON = "ndjson"

// crawlFormats lists the accepted --format values.
var crawlFormats = []string{formatNDJSON, report.FormatText, report.FormatJSON, report.FormatMarkdown}

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <url>...",
		Short: "Crawl websites and print the contacts found",
		Long: `Crawl fetches up to --max-pages pages of each site, breadth-first and
restricted to the start URL's scheme, host and port, and prints the email
addresses and phone numbers found.

A URL without a scheme is crawled over https. --country keeps only phone
numbers starting with that country's calling code (us, br, uk, de, fr).

Crawls run locally unless --remote points at a running 'contactscan serve'.

Examples:
  # Crawl one site and print a text report
  contactscan crawl example.com

  # Only keep German phone numbers, output JSON
  contactscan crawl --country de -f json example.de

  # Stream NDJSON events exactly as the HTTP service does
  contactscan crawl -f ndjson example.com

  # Crawl several sites, four at a time, and save a Markdown report
  contactscan crawl -b 4 -f markdown -o report.md a.example b.example

  # Let a running service do the crawling
  contactscan crawl --remote http://localhost:8080 example.com`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCrawlCmd,
	}

	hints := make([]string, 0, len(model.AllCountryHints()))
	for _, h := range model.AllCountryHints() {
		hints = append(hints, h.String())
	}
	cmd.Flags().String("country", string(model.CountryAny),
		"Phone filter: "+strings.Join(hints, ", "))
	cmd.Flags().StringP("format", "f", report.FormatText,
		"Output format: "+strings.Join(crawlFormats, ", "))
	cmd.Flags().StringP("output", "o", "",
		"Write output to specified file path (creates directories if needed)")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent crawls")
	cmd.Flags().StringP("remote", "r", "",
		"Base URL of a contactscan service to crawl through")
	addCrawlFlags(cmd)

	return cmd
}

// crawlOptions are the crawl command settings that are not part of Config.
type crawlOptions struct {
	country string
	format  string
	output  string
	remote  string
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("batch") {
		if cfg.BatchSize, err = cmd.Flags().GetInt("batch"); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	var opts crawlOptions
	if opts.country, err = cmd.Flags().GetString("country"); err != nil {
		return err
	}
	if opts.format, err = cmd.Flags().GetString("format"); err != nil {
		return err
	}
	if opts.output, err = cmd.Flags().GetString("output"); err != nil {
		return err
	}
	if opts.remote, err = cmd.Flags().GetString("remote"); err != nil {
		return err
	}
	opts.format = strings.ToLower(opts.format)
	if !slices.Contains(crawlFormats, opts.format) {
		return fmt.Errorf("%w: %q (use %s)", report.ErrUnknownFormat, opts.format, strings.Join(crawlFormats, ", "))
	}

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, closeOut, err := openOutput(cmd, opts.output)
	if err != nil {
		return err
	}
	defer closeOut()

	if opts.remote != "" {
		return runRemoteCrawl(ctx, opts, args, out, cmd.ErrOrStderr())
	}
	return runLocalCrawl(ctx, cfg, opts, args, logger, out, cmd.ErrOrStderr())
}

// crawlOutput renders events and finished crawls in the chosen format.
type crawlOutput struct {
	format   string
	total    int
	encoder  *stream.Encoder
	writer   report.Writer
	progress io.Writer
}

func newCrawlOutput(format string, total int, out, progress io.Writer) (*crawlOutput, error) {
	o := &crawlOutput{format: format, total: total, progress: progress}
	if format == formatNDJSON {
		o.encoder = stream.NewEncoder(out)
		return o, nil
	}
	w, err := report.NewWriter(format, out, getVersion())
	if err != nil {
		return nil, err
	}
	o.writer = w
	return o, nil
}

// event handles one crawl event of the target at index.
func (o *crawlOutput) event(index int, ev model.Event) error {
	if o.encoder != nil {
		return o.encoder.Encode(ev)
	}
	if ev.Type == model.EventProgress {
		fmt.Fprintf(o.progress, "[%d/%d] %d pages, %d queued: %s\n",
			index+1, o.total, ev.Processed, ev.Queue, ev.Current)
	}
	return nil
}

// finished renders a completed crawl. NDJSON output already carries
// the result event.
func (o *crawlOutput) finished(r *model.CrawlReport) error {
	if o.writer == nil {
		return nil
	}
	_, err := o.writer.Write(r)
	return err
}

// runLocalCrawl crawls every target in this process.
func runLocalCrawl(ctx context.Context, cfg *config.Config, opts crawlOptions, targets []string, logger *slog.Logger, out, errOut io.Writer) error {
	httpClient, cleanup, err := newHTTPClient(ctx, cfg, logger, errOut)
	if err != nil {
		return err
	}
	defer cleanup()

	db, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}
	svc := newService(newSpiderFactory(cfg, httpClient, logger), db, logger)

	requests := make([]model.CrawlRequest, 0, len(targets))
	for _, target := range targets {
		req, err := svc.Prepare(target, opts.country)
		if err != nil {
			return fmt.Errorf("invalid target %q: %w", target, err)
		}
		requests = append(requests, req)
	}

	output, err := newCrawlOutput(opts.format, len(requests), out, errOut)
	if err != nil {
		return err
	}

	concurrency := cfg.BatchSize
	if opts.format == formatNDJSON {
		// Interleaved lines of different crawls could not be told apart.
		concurrency = 1
	}

	proc := batch.NewProcessor(svc,
		batch.WithConcurrency(concurrency),
		batch.WithLogger(logger),
		batch.WithEventHandler(output.event),
	)

	var failed int
	var writeErr error
	outcomes, err := proc.Crawl(ctx, requests, func(o batch.Outcome) {
		if o.Err != nil {
			failed++
			fmt.Fprintf(errOut, "Crawl error for %s: %v\n", o.Request.StartURL, o.Err)
			return
		}
		if werr := output.finished(o.Report); werr != nil && writeErr == nil {
			writeErr = werr
		}
	})
	if err != nil {
		return err
	}
	if writeErr != nil {
		return fmt.Errorf("failed to write report: %w", writeErr)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d crawls failed", failed, len(outcomes))
	}
	return nil
}

// runRemoteCrawl sends every target to a contactscan service, one at a time.
func runRemoteCrawl(ctx context.Context, opts crawlOptions, targets []string, out, errOut io.Writer) error {
	output, err := newCrawlOutput(opts.format, len(targets), out, errOut)
	if err != nil {
		return err
	}
	c := client.New(opts.remote)

	var errs []error
	for i, target := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}

		var last model.Event
		started := time.Now()
		result, err := c.Extract(ctx, target, opts.country, func(ev model.Event) {
			last = ev
			if perr := output.event(i, ev); perr != nil {
				errs = append(errs, perr)
			}
		})
		if err != nil {
			var apiErr *client.APIError
			if errors.As(err, &apiErr) {
				fmt.Fprintf(errOut, "Crawl rejected for %s: %s\n", target, apiErr.Message)
			} else {
				fmt.Fprintf(errOut, "Crawl error for %s: %v\n", target, err)
			}
			errs = append(errs, fmt.Errorf("%s: %w", target, err))
			continue
		}

		if output.encoder != nil {
			if err := output.encoder.Encode(model.NewResultEvent(result.Emails, result.Phones)); err != nil {
				return err
			}
			continue
		}
		if err := output.finished(remoteReport(target, opts.country, last, result, started)); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	return errors.Join(errs...)
}

// remoteReport rebuilds a report from what the event stream reveals.
func remoteReport(target, country string, last model.Event, result *model.Result, started time.Time) *model.CrawlReport {
	req, err := model.NewCrawlRequest(target, country)
	if err != nil {
		req = model.CrawlRequest{Country: model.ParseCountryHint(country)}
	}
	r := model.NewCrawlReport(req)
	r.PagesVisited = last.Processed
	r.Emails = result.Emails
	r.Phones = result.Phones
	r.StartedAt = started
	r.FinishedAt = time.Now()
	return r
}
