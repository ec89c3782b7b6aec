// Package crawler implements the breadth-first contact crawl.
//
// # Architecture
//
// The Spider owns one State per crawl invocation: a FIFO queue, a visited
// set and the accumulated email and phone sets. Pages are fetched one at
// a time, in queue order, through a Fetcher. Each fetched page is passed
// to the extract package and only links sharing the start URL's origin
// (scheme, host and port) are queued.
//
// # Components
//
//   - Spider: the orchestrator loop and its event stream
//   - State: queue, visited set and result sets with their invariants
//   - Fetcher: retrieves a page body; HTTPFetcher is the net/http version
//
// # Events
//
// One progress event is emitted per page attempted, successful or not,
// followed by exactly one result event when the queue is exhausted or the
// page cap is reached. A failed page never aborts the crawl.
//
// # Usage
//
//	spider := crawler.NewSpider(crawler.NewHTTPFetcher(client), crawler.WithMaxPages(100))
//	for ev := range spider.Stream(ctx, req) {
//	    ...
//	}
package crawler
