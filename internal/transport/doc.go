// Package transport builds the HTTP clients the crawler fetches pages with.
//
// Three kinds of client are available:
//
//   - NewDirectClient dials targets directly and refuses private, loopback
//     and other reserved addresses unless AllowPrivateNetworks is set. The
//     check runs after DNS resolution, so rebinding tricks do not help.
//   - NewSOCKSClient routes every connection through a SOCKS5 proxy such
//     as a local Tor daemon.
//   - EmbeddedTor starts a private Tor daemon through tornago and hands
//     out SOCKS clients bound to it.
//
// WithSiteHeaders layers per-site cookies and headers on top of any of
// them, and CheckTarget rejects malformed .onion start URLs.
package transport
