package transport

import (
	"encoding/base32"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/nao1215/contactscan/internal/model"
)

const (
	onionSuffix  = ".onion"
	onionVersion = 0x03
)

var (
	onionV3Pattern = regexp.MustCompile(`^[a-z2-7]{56}\.onion$`)
	onionV2Pattern = regexp.MustCompile(`^[a-z2-7]{16}\.onion$`)
	checksumPrefix = []byte(".onion checksum")
)

// IsOnionHost reports whether host (without port) is in the .onion TLD.
func IsOnionHost(host string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimSuffix(host, ".")), onionSuffix)
}

// IsValidV3Address reports whether address is a 56-character v3 onion
// address whose embedded checksum and version byte are correct.
func IsValidV3Address(address string) bool {
	address = strings.ToLower(address)
	if !onionV3Pattern.MatchString(address) {
		return false
	}

	decoded, err := base32.StdEncoding.DecodeString(strings.ToUpper(strings.TrimSuffix(address, onionSuffix)))
	if err != nil || len(decoded) != 35 {
		return false
	}

	pubkey, checksum, version := decoded[:32], decoded[32:34], decoded[34]
	if version != onionVersion {
		return false
	}
	expected := v3Checksum(pubkey, version)
	return checksum[0] == expected[0] && checksum[1] == expected[1]
}

// v3Checksum is H(".onion checksum" || pubkey || version)[:2] with SHA3-256.
func v3Checksum(pubkey []byte, version byte) []byte {
	data := make([]byte, 0, len(checksumPrefix)+len(pubkey)+1)
	data = append(data, checksumPrefix...)
	data = append(data, pubkey...)
	data = append(data, version)
	sum := sha3.Sum256(data)
	return sum[:2]
}

// OnionAddressFromPublicKey derives the v3 address of an ed25519 key.
func OnionAddressFromPublicKey(pubkey []byte) (string, error) {
	if len(pubkey) != 32 {
		return "", ErrInvalidOnionAddress
	}
	data := make([]byte, 35)
	copy(data[:32], pubkey)
	copy(data[32:34], v3Checksum(pubkey, onionVersion))
	data[34] = onionVersion
	return strings.ToLower(base32.StdEncoding.EncodeToString(data)) + onionSuffix, nil
}

// CheckTarget rejects start URLs that cannot be crawled. Currently that
// means .onion hosts that are not valid v3 addresses. Rejections wrap
// model.ErrInvalidURL.
func CheckTarget(u *url.URL) error {
	if u == nil {
		return model.ErrInvalidURL
	}
	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	if !IsOnionHost(host) {
		return nil
	}
	if IsValidV3Address(host) {
		return nil
	}
	if onionV2Pattern.MatchString(host) {
		return fmt.Errorf("%w: %w", model.ErrInvalidURL, ErrV2AddressDeprecated)
	}
	return fmt.Errorf("%w: %w", model.ErrInvalidURL, ErrInvalidOnionAddress)
}
