package model

import (
	"time"

	"github.com/google/uuid"
)

// CrawlReport is the summary of a finished crawl. It is what the
// history database stores and what the report writers render.
type CrawlReport struct {
	// ID uniquely identifies the crawl.
	ID string `json:"id"`

	// StartURL is the URL the crawl began at.
	StartURL string `json:"start_url"`

	// Host is the lowercased host of StartURL, used to group history.
	Host string `json:"host"`

	// Country is the phone filter that was applied.
	Country CountryHint `json:"country"`

	// PagesVisited counts every page that was dequeued and attempted.
	PagesVisited int `json:"pages_visited"`

	// PagesFailed counts visited pages whose fetch failed.
	PagesFailed int `json:"pages_failed"`

	// Emails and Phones are the deduplicated findings in discovery order.
	Emails []string `json:"emails"`
	Phones []string `json:"phones"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewCrawlReport returns an empty report for req with a fresh ID.
func NewCrawlReport(req CrawlRequest) *CrawlReport {
	r := &CrawlReport{
		ID:        uuid.NewString(),
		Host:      req.Host(),
		Country:   req.Country,
		Emails:    []string{},
		Phones:    []string{},
		StartedAt: time.Now(),
	}
	if req.StartURL != nil {
		r.StartURL = req.StartURL.String()
	}
	return r
}

// Duration returns how long the crawl took.
func (r *CrawlReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Result returns the consumer-facing part of the report.
func (r *CrawlReport) Result() Result {
	return Result{Emails: r.Emails, Phones: r.Phones}
}
