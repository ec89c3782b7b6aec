// Package main provides the entry point for the contactscan CLI.
//
// contactscan crawls a website breadth-first within its origin, extracts
// email addresses and phone numbers, and streams progress as NDJSON.
//
// Usage:
//
//	contactscan serve
//	contactscan crawl <url>...
//	contactscan history [report-id]
//	contactscan compare <host>
//
// See --help for all available options.
package main

func main() {
	Execute()
}
