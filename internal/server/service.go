package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nao1215/contactscan/internal/crawler"
	"github.com/nao1215/contactscan/internal/model"
	"github.com/nao1215/contactscan/internal/transport"
)

// saveTimeout bounds persisting a finished report.
const saveTimeout = 5 * time.Second

// ReportStore persists finished crawls.
type ReportStore interface {
	SaveReport(ctx context.Context, report *model.CrawlReport) error
}

// Service validates crawl requests, runs them and records the outcome.
type Service struct {
	spider    *crawler.Spider
	spiderFor SpiderFunc
	store     ReportStore
	logger    *slog.Logger
}

// SpiderFunc picks the spider for a request, for example one carrying
// the settings configured for the request's host. Returning nil selects
// the default spider.
type SpiderFunc func(req model.CrawlRequest) *crawler.Spider

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithReportStore makes the Service save every completed crawl.
func WithReportStore(store ReportStore) ServiceOption {
	return func(s *Service) {
		s.store = store
	}
}

// WithSpiderFunc makes the Service choose a spider per request.
func WithSpiderFunc(fn SpiderFunc) ServiceOption {
	return func(s *Service) {
		s.spiderFor = fn
	}
}

// NewService returns a Service that crawls with spider.
func NewService(spider *crawler.Spider, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{spider: spider, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Prepare validates rawURL and country and builds the request. Errors
// wrap model.ErrMissingURL or model.ErrInvalidURL.
func (s *Service) Prepare(rawURL, country string) (model.CrawlRequest, error) {
	req, err := model.NewCrawlRequest(rawURL, country)
	if err != nil {
		return model.CrawlRequest{}, err
	}
	if err := transport.CheckTarget(req.StartURL); err != nil {
		return model.CrawlRequest{}, err
	}
	return req, nil
}

// Crawl runs req, passing every event to emit. Completed crawls are
// saved when a ReportStore is configured; a failed save is logged and
// does not fail the crawl.
func (s *Service) Crawl(ctx context.Context, req model.CrawlRequest, emit crawler.EmitFunc) (*model.CrawlReport, error) {
	logger := s.logger.With(
		"url", req.StartURL.String(),
		"country", req.Country.String(),
		"request_id", RequestIDFromContext(ctx),
	)

	report, err := s.selectSpider(req).Run(ctx, req, emit)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("crawl aborted", "error", err, "pages", report.PagesVisited)
		} else {
			logger.Error("crawl failed", "error", err, "pages", report.PagesVisited)
		}
		return report, err
	}

	logger.Info("crawl complete",
		"report_id", report.ID,
		"pages", report.PagesVisited,
		"failed_pages", report.PagesFailed,
		"emails", len(report.Emails),
		"phones", len(report.Phones),
		"duration", report.Duration().String(),
	)

	if s.store != nil {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
		defer cancel()
		if err := s.store.SaveReport(saveCtx, report); err != nil {
			logger.Warn("failed to save crawl report", "report_id", report.ID, "error", err)
		}
	}
	return report, nil
}

func (s *Service) selectSpider(req model.CrawlRequest) *crawler.Spider {
	if s.spiderFor != nil {
		if sp := s.spiderFor(req); sp != nil {
			return sp
		}
	}
	return s.spider
}
