// Package model defines the data structures shared by the crawler, the
// HTTP service, the client and the storage layer.
//
// This package contains the following main types:
//   - CrawlRequest: a validated start URL plus a country hint
//   - Event: one line of the NDJSON progress stream
//   - PageResult: what a single fetched page contributed
//   - CrawlReport: the persisted summary of a finished crawl
//
// The types are serializable to JSON for the wire format and for the
// crawl history database.
package model
