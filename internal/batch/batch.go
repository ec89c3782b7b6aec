// Package batch crawls several sites concurrently.
//
// Each site still gets its own single-worker crawl and its own state;
// only whole crawls run in parallel, bounded by the configured
// concurrency.
package batch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/contactscan/internal/crawler"
	"github.com/nao1215/contactscan/internal/model"
)

// DefaultConcurrency is used when no concurrency is configured.
const DefaultConcurrency = 4

// Crawler runs one crawl. *server.Service and *crawler.Spider satisfy it.
type Crawler interface {
	Crawl(ctx context.Context, req model.CrawlRequest, emit crawler.EmitFunc) (*model.CrawlReport, error)
}

// CrawlerFunc adapts a function to Crawler.
type CrawlerFunc func(ctx context.Context, req model.CrawlRequest, emit crawler.EmitFunc) (*model.CrawlReport, error)

// Crawl calls f.
func (f CrawlerFunc) Crawl(ctx context.Context, req model.CrawlRequest, emit crawler.EmitFunc) (*model.CrawlReport, error) {
	return f(ctx, req, emit)
}

// Outcome is the result of one crawl in a batch.
type Outcome struct {
	Index   int
	Request model.CrawlRequest
	Report  *model.CrawlReport
	Err     error
}

// EventFunc receives the events of the crawl at index. Calls are
// serialized across the whole batch.
type EventFunc func(index int, ev model.Event) error

// Processor runs crawls with bounded concurrency.
type Processor struct {
	crawler     Crawler
	concurrency int
	onEvent     EventFunc
	logger      *slog.Logger

	eventMu sync.Mutex
}

// Option configures a Processor.
type Option func(*Processor)

// WithConcurrency sets how many crawls may run at once.
func WithConcurrency(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithEventHandler forwards every crawl event to fn.
func WithEventHandler(fn EventFunc) Option {
	return func(p *Processor) {
		p.onEvent = fn
	}
}

// WithLogger sets the batch logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProcessor returns a Processor that runs crawls through c.
func NewProcessor(c Crawler, opts ...Option) *Processor {
	p := &Processor{
		crawler:     c,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Crawl runs every request and returns the outcomes in request order.
// A failed crawl does not stop the others; its error is recorded in its
// Outcome. The returned error is non-nil only when ctx was cancelled.
// When callback is non-nil it is called, serialized, as crawls finish.
func (p *Processor) Crawl(ctx context.Context, requests []model.CrawlRequest, callback func(Outcome)) ([]Outcome, error) {
	p.logger.Info("starting batch crawl",
		"total", len(requests),
		"concurrency", p.concurrency,
	)
	start := time.Now()

	outcomes := make([]Outcome, len(requests))
	var cbMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, req := range requests {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				outcomes[i] = Outcome{Index: i, Request: req, Err: err}
				return err
			}

			p.logger.Info("crawling", "url", req.StartURL.String(), "index", i+1, "total", len(requests))

			report, err := p.crawler.Crawl(gctx, req, p.emitter(i))
			outcomes[i] = Outcome{Index: i, Request: req, Report: report, Err: err}
			if err != nil {
				p.logger.Warn("crawl failed", "url", req.StartURL.String(), "error", err)
			}

			if callback != nil {
				cbMu.Lock()
				callback(outcomes[i])
				cbMu.Unlock()
			}
			return nil
		})
	}

	err := g.Wait()
	p.logger.Info("batch crawl complete",
		"total", len(requests),
		"elapsed", time.Since(start),
	)
	if err == nil {
		err = ctx.Err()
	}
	return outcomes, err
}

func (p *Processor) emitter(index int) crawler.EmitFunc {
	return func(ev model.Event) error {
		if p.onEvent == nil {
			return nil
		}
		p.eventMu.Lock()
		defer p.eventMu.Unlock()
		return p.onEvent(index, ev)
	}
}
