package model

import "strings"

// CountryHint narrows phone-number matches to numbers that start with a
// recognized country calling code.
type CountryHint string

// Supported country hints.
const (
	// CountryAny keeps every phone number that passes the length filter.
	CountryAny CountryHint = "any"
	// CountryUS keeps numbers starting with the North American code 1.
	CountryUS CountryHint = "us"
	// CountryBR keeps numbers starting with 55.
	CountryBR CountryHint = "br"
	// CountryUK keeps numbers starting with 44.
	CountryUK CountryHint = "uk"
	// CountryDE keeps numbers starting with 49.
	CountryDE CountryHint = "de"
	// CountryFR keeps numbers starting with 33.
	CountryFR CountryHint = "fr"
)

var callingCodes = map[CountryHint]string{
	CountryUS: "1",
	CountryBR: "55",
	CountryUK: "44",
	CountryDE: "49",
	CountryFR: "33",
}

// ParseCountryHint converts user input into a CountryHint.
// Matching is case-insensitive. Empty and unrecognized values map to
// CountryAny, so an unknown hint never filters anything out.
func ParseCountryHint(s string) CountryHint {
	hint := CountryHint(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := callingCodes[hint]; ok {
		return hint
	}
	return CountryAny
}

// CallingCode returns the leading digits a phone number must have to
// match this hint. It returns "" for CountryAny.
func (c CountryHint) CallingCode() string {
	return callingCodes[c]
}

// String returns the wire representation of the hint.
func (c CountryHint) String() string {
	if c == "" {
		return string(CountryAny)
	}
	return string(c)
}

// AllCountryHints returns every supported hint in display order.
func AllCountryHints() []CountryHint {
	return []CountryHint{CountryAny, CountryUS, CountryBR, CountryUK, CountryDE, CountryFR}
}
