package model

import (
	"errors"
	"net/url"
	"strings"
)

var (
	// ErrMissingURL is returned when a crawl request carries no URL.
	ErrMissingURL = errors.New("missing url")

	// ErrInvalidURL is returned when the URL is not absolute even after
	// the https:// scheme has been added.
	ErrInvalidURL = errors.New("invalid url")
)

// CrawlRequest is a validated request to crawl one site.
type CrawlRequest struct {
	// StartURL is the absolute URL the crawl begins at. Its origin bounds
	// link discovery.
	StartURL *url.URL

	// Country filters phone numbers by calling code.
	Country CountryHint
}

// NewCrawlRequest validates rawURL and builds a CrawlRequest.
// A URL without an http or https scheme is prefixed with "https://"
// before parsing. The result must have both a scheme and a host.
func NewCrawlRequest(rawURL, country string) (CrawlRequest, error) {
	u, err := ParseStartURL(rawURL)
	if err != nil {
		return CrawlRequest{}, err
	}
	return CrawlRequest{StartURL: u, Country: ParseCountryHint(country)}, nil
}

// defaultPorts maps a scheme to the port that is implied when absent.
var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// ParseStartURL applies scheme coercion and absolute-URL validation.
// Only the empty string is a missing URL; a blank one is invalid.
func ParseStartURL(rawURL string) (*url.URL, error) {
	if rawURL == "" {
		return nil, ErrMissingURL
	}
	raw := strings.TrimSpace(rawURL)

	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, ErrInvalidURL
	}
	if u.Scheme == "" || u.Hostname() == "" {
		return nil, ErrInvalidURL
	}
	return NormalizeURL(u), nil
}

// NormalizeURL rewrites u in place into the form used as a visited key:
// scheme and host are lowercased, a default port is dropped and an
// http(s) URL with an empty path gets "/". It returns u.
func NormalizeURL(u *url.URL) *url.URL {
	if u == nil {
		return nil
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	port, isWeb := defaultPorts[u.Scheme]
	if !isWeb {
		return u
	}
	if u.Port() == port {
		u.Host = strings.TrimSuffix(u.Host, ":"+port)
	}
	if u.Path == "" && u.Opaque == "" {
		u.Path = "/"
		u.RawPath = ""
	}
	return u
}

// Host returns the lowercased host (with port, if any) of the start URL.
func (r CrawlRequest) Host() string {
	if r.StartURL == nil {
		return ""
	}
	return strings.ToLower(r.StartURL.Host)
}
