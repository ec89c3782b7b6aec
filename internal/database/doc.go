// Package database stores crawl history in SQLite.
//
// Every finished crawl is saved as one row of crawl_reports plus one row
// per discovered email or phone in contacts, which makes it possible to
// ask which sites published a given address. The driver is the CGO-free
// modernc.org/sqlite, opened in WAL mode with a single connection.
package database
