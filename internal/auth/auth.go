// Package auth decides whether a caller may start a crawl.
//
// The gate is an injected Authorizer so handlers can be tested without
// touching the environment. IPAllowlist is the production implementation;
// an allowlist with no entries lets every caller through.
package auth

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ErrInvalidEntry is returned when an allowlist entry is neither an IP
// address nor a CIDR prefix.
var ErrInvalidEntry = errors.New("invalid allowlist entry")

// Authorizer reports whether the caller of r is allowed.
type Authorizer interface {
	IsAllowed(r *http.Request) bool
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(r *http.Request) bool

// IsAllowed calls f(r).
func (f AuthorizerFunc) IsAllowed(r *http.Request) bool {
	return f(r)
}

// AllowAll permits every request.
type AllowAll struct{}

// IsAllowed always returns true.
func (AllowAll) IsAllowed(*http.Request) bool {
	return true
}

// IPAllowlist permits callers whose address is inside one of its prefixes.
type IPAllowlist struct {
	prefixes          []netip.Prefix
	trustForwardedFor bool
}

// Option configures an IPAllowlist.
type Option func(*IPAllowlist)

// WithTrustForwardedFor makes the allowlist take the client address from
// X-Forwarded-For (first hop) or X-Real-IP. Enable it only behind a
// reverse proxy that overwrites those headers.
func WithTrustForwardedFor(trust bool) Option {
	return func(a *IPAllowlist) {
		a.trustForwardedFor = trust
	}
}

// ParseIPAllowlist builds an allowlist from IP addresses and CIDR
// prefixes such as "10.0.0.0/8". Blank entries are ignored.
func ParseIPAllowlist(entries []string, opts ...Option) (*IPAllowlist, error) {
	a := &IPAllowlist{}
	for _, opt := range opts {
		opt(a)
	}
	for _, raw := range entries {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		prefix, err := parseEntry(entry)
		if err != nil {
			return nil, fmt.Errorf("%w %q", ErrInvalidEntry, entry)
		}
		a.prefixes = append(a.prefixes, prefix)
	}
	return a, nil
}

// ParseIPAllowlistString parses a comma-separated allowlist, the format
// of the IP_ALLOWLIST environment variable.
func ParseIPAllowlistString(s string, opts ...Option) (*IPAllowlist, error) {
	return ParseIPAllowlist(strings.Split(s, ","), opts...)
}

func parseEntry(entry string) (netip.Prefix, error) {
	if strings.Contains(entry, "/") {
		prefix, err := netip.ParsePrefix(entry)
		if err != nil {
			return netip.Prefix{}, err
		}
		return prefix.Masked(), nil
	}
	addr, err := netip.ParseAddr(entry)
	if err != nil {
		return netip.Prefix{}, err
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// Len returns the number of entries.
func (a *IPAllowlist) Len() int {
	return len(a.prefixes)
}

// IsAllowed implements Authorizer.
func (a *IPAllowlist) IsAllowed(r *http.Request) bool {
	if len(a.prefixes) == 0 {
		return true
	}
	addr, ok := a.clientAddr(r)
	if !ok {
		return false
	}
	return a.Contains(addr)
}

// Contains reports whether addr falls inside any entry.
func (a *IPAllowlist) Contains(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range a.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func (a *IPAllowlist) clientAddr(r *http.Request) (netip.Addr, bool) {
	if a.trustForwardedFor {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if addr, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
				return addr, true
			}
		}
		if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
			if addr, err := netip.ParseAddr(realIP); err == nil {
				return addr, true
			}
		}
	}

	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr, true
}
