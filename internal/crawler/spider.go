package crawler

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/nao1215/contactscan/internal/extract"
	"github.com/nao1215/contactscan/internal/model"
)

// DefaultMaxPages is the crawl cap: the number of distinct pages a single
// crawl visits before it stops.
const DefaultMaxPages = 100

// ErrNoFetcher is returned by Run when the Spider has no Fetcher.
var ErrNoFetcher = errors.New("crawler: no fetcher configured")

// EmitFunc receives events in order. Returning an error stops the crawl.
type EmitFunc func(model.Event) error

// Spider performs breadth-first, same-origin crawls.
// A Spider holds only configuration, so one value may run many crawls
// concurrently; every crawl gets its own State.
type Spider struct {
	fetcher Fetcher

	// maxPages caps len(visited).
	maxPages int

	// delay is slept between consecutive fetches.
	delay time.Duration

	// ignorePatterns and followPatterns are path globs applied to
	// same-origin links before they are queued.
	ignorePatterns []string
	followPatterns []string

	logger *slog.Logger
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxPages sets the page cap. Values below 1 keep the default.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		if maxPages > 0 {
			s.maxPages = maxPages
		}
	}
}

// WithDelay sets the politeness delay between fetches.
func WithDelay(delay time.Duration) SpiderOption {
	return func(s *Spider) {
		if delay >= 0 {
			s.delay = delay
		}
	}
}

// WithLogger sets the logger used for per-page diagnostics.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithIgnorePatterns skips links whose path matches any of the globs.
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns restricts queued links to paths matching at least
// one of the globs. The start URL is always visited.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// NewSpider creates a Spider that fetches pages through fetcher.
func NewSpider(fetcher Fetcher, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:  fetcher,
		maxPages: DefaultMaxPages,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stream runs a crawl in its own goroutine and returns the events it
// produces. The channel is closed after the result event, or early when
// ctx is cancelled, in which case no result event is sent.
func (s *Spider) Stream(ctx context.Context, req model.CrawlRequest) <-chan model.Event {
	events := make(chan model.Event)
	go func() {
		defer close(events)
		_, err := s.Run(ctx, req, func(ev model.Event) error {
			select {
			case events <- ev:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Debug("crawl stopped", "error", err)
		}
	}()
	return events
}

// Run crawls req synchronously, passing each event to emit, and returns
// the report of the finished crawl.
//
// Per-page failures never stop the crawl. Run returns an error only when
// ctx is cancelled or emit fails; the partially filled report is returned
// along with the error and no result event is emitted.
func (s *Spider) Run(ctx context.Context, req model.CrawlRequest, emit EmitFunc) (*model.CrawlReport, error) {
	report := model.NewCrawlReport(req)
	if s.fetcher == nil {
		return report, ErrNoFetcher
	}
	if req.StartURL == nil {
		return report, model.ErrInvalidURL
	}

	state := NewState(req.StartURL.String())
	for state.Pending() > 0 && state.Visited() < s.maxPages {
		if err := ctx.Err(); err != nil {
			s.finish(report, state)
			return report, err
		}

		current, _ := state.Dequeue()
		if !state.MarkVisited(current) {
			continue
		}

		page, err := s.visit(ctx, current, req.Country)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				s.finish(report, state)
				return report, ctxErr
			}
			report.PagesFailed++
			s.logger.Debug("page fetch failed", "url", current, "error", err)
			if err := s.emitProgress(emit, state, current); err != nil {
				s.finish(report, state)
				return report, err
			}
			s.wait(ctx, state)
			continue
		}

		state.RecordFindings(page)
		if err := s.emitProgress(emit, state, current); err != nil {
			s.finish(report, state)
			return report, err
		}
		s.enqueueLinks(state, req.StartURL, page.Links)
		s.wait(ctx, state)
	}

	s.finish(report, state)
	if err := emit(model.NewResultEvent(state.Emails(), state.Phones())); err != nil {
		return report, err
	}
	s.logger.Debug("crawl finished",
		"url", report.StartURL,
		"pages", report.PagesVisited,
		"failed", report.PagesFailed,
		"emails", len(report.Emails),
		"phones", len(report.Phones),
	)
	return report, nil
}

// visit fetches pageURL and extracts its contents.
func (s *Spider) visit(ctx context.Context, pageURL string, hint model.CountryHint) (model.PageResult, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return model.PageResult{}, err
	}
	body, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return model.PageResult{}, err
	}
	return extract.Page(string(body), u, hint), nil
}

// enqueueLinks queues links that share start's origin and pass the
// configured path filters.
func (s *Spider) enqueueLinks(state *State, start *url.URL, links []string) {
	for _, link := range links {
		u, err := url.Parse(link)
		if err != nil {
			continue
		}
		if !SameOrigin(start, u) {
			continue
		}
		if !allowedByPatterns(u, s.ignorePatterns, s.followPatterns) {
			continue
		}
		state.EnqueueIfNew(link)
	}
}

func (s *Spider) emitProgress(emit EmitFunc, state *State, current string) error {
	snap := state.Snapshot()
	return emit(model.NewProgressEvent(snap.Processed, snap.Queue, current))
}

// wait sleeps for the politeness delay when more work remains.
func (s *Spider) wait(ctx context.Context, state *State) {
	if s.delay <= 0 || state.Pending() == 0 || state.Visited() >= s.maxPages {
		return
	}
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (s *Spider) finish(report *model.CrawlReport, state *State) {
	report.PagesVisited = state.Visited()
	report.Emails = state.Emails()
	report.Phones = state.Phones()
	report.FinishedAt = time.Now()
}
