// Package server exposes the crawler over HTTP.
//
// The package is layered the usual way: Transport decodes requests and
// encodes responses, Service runs crawls and records them, and Server
// owns the listening http.Server. POST /api/contact-extract answers with
// an NDJSON stream of progress events followed by one result event.
package server
