// Package extract pulls links, email addresses and phone numbers out of
// raw page text.
//
// Extraction is pattern matching over the text as fetched; no HTML
// parser is involved, so malformed markup never causes an error and
// simply yields fewer matches. All functions are pure and safe for
// concurrent use.
package extract
