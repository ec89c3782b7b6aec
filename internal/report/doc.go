// Package report renders crawl reports and report diffs.
//
// Three formats are available: plain text for terminals, JSON for other
// tools and Markdown for sharing. All of them implement Writer.
package report
