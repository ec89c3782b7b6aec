package transport

import "errors"

var (
	// ErrBlockedAddress is returned when a direct client is asked to
	// connect to a private or reserved address.
	ErrBlockedAddress = errors.New("request to private/reserved network address is not allowed")

	// ErrTooManyRedirects stops long redirect chains.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrBlockedRedirect is returned for redirects to non-http(s) schemes.
	ErrBlockedRedirect = errors.New("redirect to non-http(s) scheme blocked")

	// ErrInvalidProxyAddress is returned when a proxy address is not host:port.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrTorNotRunning is returned when a client is requested from an
	// EmbeddedTor that has not been started.
	ErrTorNotRunning = errors.New("embedded Tor daemon is not running")

	// ErrInvalidOnionAddress is returned for .onion hosts that are not
	// valid v3 addresses.
	ErrInvalidOnionAddress = errors.New("invalid onion address")

	// ErrV2AddressDeprecated is returned for 16-character v2 addresses,
	// which stopped working in October 2021.
	ErrV2AddressDeprecated = errors.New("v2 onion addresses are deprecated and no longer functional")
)
