package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/nao1215/contactscan/internal/model"
)

// MinPhoneDigits is the minimum number of digits a phone match must
// contain to be kept. Shorter matches are numeric noise.
const MinPhoneDigits = 6

var (
	// anchorRegex captures the href value of <a> tags in either quote style.
	anchorRegex = regexp.MustCompile(`(?is)<a\s+(?:[^>]*?\s+)?href\s*=\s*(?:"([^"]*)"|'([^']*)')`)

	emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

	// phoneRegex accepts an optional +country prefix, an optionally
	// parenthesized area code and -, . or space separators.
	phoneRegex = regexp.MustCompile(`(?:\+?\d{1,3}[\s.\-]?)?\(?\d{2,4}\)?[\s.\-]?\d{3,4}[\s.\-]?\d{3,4}`)
)

// Page runs every extractor over one page's text.
// The returned Links are every resolvable href; origin filtering is left
// to the caller.
func Page(text string, pageURL *url.URL, hint model.CountryHint) model.PageResult {
	result := model.PageResult{
		Emails: Emails(text),
		Phones: Phones(text, hint),
		Links:  Links(text, pageURL),
	}
	if pageURL != nil {
		result.URL = pageURL.String()
	}
	return result
}

// Links returns the absolute form of every <a href> found in text,
// resolved against base and normalized with model.NormalizeURL. Hrefs
// that do not resolve to a URL with both a scheme and a host are
// dropped. Duplicates are kept.
func Links(text string, base *url.URL) []string {
	if base == nil {
		return nil
	}

	matches := anchorRegex.FindAllStringSubmatch(text, -1)
	links := make([]string, 0, len(matches))
	for _, m := range matches {
		href := m[1]
		if href == "" {
			href = m[2]
		}
		href = strings.TrimSpace(href)
		if href == "" {
			continue
		}

		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		resolved := base.ResolveReference(ref)
		if resolved.Scheme == "" || resolved.Host == "" {
			continue
		}
		links = append(links, model.NormalizeURL(resolved).String())
	}
	return links
}

// Emails returns the lowercased, deduplicated email addresses in text in
// order of first appearance.
func Emails(text string) []string {
	matches := emailRegex.FindAllString(text, -1)

	seen := make(map[string]struct{}, len(matches))
	unique := make([]string, 0, len(matches))
	for _, m := range matches {
		lower := strings.ToLower(m)
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		unique = append(unique, lower)
	}
	return unique
}

// Phones returns the deduplicated phone-like matches in text that have
// at least MinPhoneDigits digits and, unless hint is CountryAny, whose
// digits begin with the hint's calling code. Matches are trimmed but
// otherwise kept as written.
func Phones(text string, hint model.CountryHint) []string {
	code := hint.CallingCode()
	matches := phoneRegex.FindAllString(text, -1)

	seen := make(map[string]struct{}, len(matches))
	phones := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimSpace(m)
		digits := DigitsOnly(m)
		if len(digits) < MinPhoneDigits {
			continue
		}
		if code != "" && !strings.HasPrefix(digits, code) {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		phones = append(phones, m)
	}
	return phones
}

// DigitsOnly strips every non-digit character from s.
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
