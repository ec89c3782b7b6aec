package extract

import (
	"net/url"
	"slices"
	"testing"

	"github.com/nao1215/contactscan/internal/model"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("failed to parse %q: %v", raw, err)
	}
	return u
}

func TestLinks(t *testing.T) {
	t.Parallel()

	base := mustParse(t, "https://example.com/dir/page.html")

	tests := []struct {
		name string
		html string
		want []string
	}{
		{
			name: "resolves relative and absolute hrefs",
			html: `<a href="/about">About</a> <a href="contact.html">C</a> <a href="https://other.com/b">B</a>`,
			want: []string{
				"https://example.com/about",
				"https://example.com/dir/contact.html",
				"https://other.com/b",
			},
		},
		{
			name: "single quotes and extra attributes",
			html: `<A class="nav" data-x='1' HREF='/team'>Team</A>`,
			want: []string{"https://example.com/team"},
		},
		{
			name: "keeps duplicates and fragments",
			html: `<a href="/a">1</a><a href="/a">2</a><a href="/a#top">3</a>`,
			want: []string{
				"https://example.com/a",
				"https://example.com/a",
				"https://example.com/a#top",
			},
		},
		{
			name: "normalizes root and host case",
			html: `<a href="/">home</a><a href="HTTPS://Example.com">abs</a><a href="https://example.com:443/x">port</a>`,
			want: []string{
				"https://example.com/",
				"https://example.com/",
				"https://example.com/x",
			},
		},
		{
			name: "drops hrefs without a host",
			html: `<a href="mailto:x@example.com">m</a><a href="javascript:void(0)">j</a><a href="tel:+15551234567">t</a>`,
			want: []string{},
		},
		{
			name: "drops unparsable hrefs",
			html: `<a href="http://[::1">bad</a><a href="/ok">ok</a>`,
			want: []string{"https://example.com/ok"},
		},
		{
			name: "ignores malformed markup",
			html: `<a href=/unquoted>x</a><a href="`,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Links(tt.html, base)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Links() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("nil base yields nothing", func(t *testing.T) {
		t.Parallel()

		if got := Links(`<a href="/a">a</a>`, nil); len(got) != 0 {
			t.Errorf("expected no links, got %v", got)
		}
	})
}

func TestEmails(t *testing.T) {
	t.Parallel()

	text := `Write to A@Example.com or a@example.COM, sales@shop.example.org.
		<a href="mailto:Support@Example.com">Support@Example.com</a>`

	got := Emails(text)
	want := []string{"a@example.com", "sales@shop.example.org", "support@example.com"}
	if !slices.Equal(got, want) {
		t.Errorf("Emails() = %v, want %v", got, want)
	}

	if got := Emails("no addresses here @ all"); len(got) != 0 {
		t.Errorf("expected no emails, got %v", got)
	}
}

func TestPhones(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		hint model.CountryHint
		want []string
	}{
		{
			name: "us number with any",
			text: "Call +1 555-123-4567 today",
			hint: model.CountryAny,
			want: []string{"+1 555-123-4567"},
		},
		{
			name: "us number with us",
			text: "Call +1 555-123-4567 today",
			hint: model.CountryUS,
			want: []string{"+1 555-123-4567"},
		},
		{
			name: "us number excluded by br",
			text: "Call +1 555-123-4567 today",
			hint: model.CountryBR,
			want: []string{},
		},
		{
			name: "brazilian number with br",
			text: "Fale conosco: +55 11 9876 5432",
			hint: model.CountryBR,
			want: []string{"+55 11 9876 5432"},
		},
		{
			name: "parenthesized area code and dots",
			text: "Office: +44 (20) 7946.0958",
			hint: model.CountryUK,
			want: []string{"+44 (20) 7946.0958"},
		},
		{
			name: "short digit runs are rejected",
			text: "Room 1234, floor 12.34",
			hint: model.CountryAny,
			want: []string{},
		},
		{
			name: "duplicates collapse",
			text: "+49 30 1234 5678 and again +49 30 1234 5678",
			hint: model.CountryDE,
			want: []string{"+49 30 1234 5678"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Phones(tt.text, tt.hint)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Phones() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDigitsOnly(t *testing.T) {
	t.Parallel()

	if got := DigitsOnly("+1 (555) 123-4567"); got != "15551234567" {
		t.Errorf("DigitsOnly() = %q", got)
	}
	if got := DigitsOnly("abc"); got != "" {
		t.Errorf("DigitsOnly() = %q, want empty", got)
	}
}

func TestPage(t *testing.T) {
	t.Parallel()

	base := mustParse(t, "https://example.test/")
	html := `<html><body>
		<a href="/one">1</a><a href="/two">2</a><a href="https://elsewhere.test/">x</a>
		<p>Mail A@Example.com, ext 1234</p>
	</body></html>`

	got := Page(html, base, model.CountryAny)
	if got.URL != "https://example.test/" {
		t.Errorf("unexpected URL %q", got.URL)
	}
	if !slices.Equal(got.Emails, []string{"a@example.com"}) {
		t.Errorf("unexpected emails %v", got.Emails)
	}
	if len(got.Phones) != 0 {
		t.Errorf("expected no phones, got %v", got.Phones)
	}
	if len(got.Links) != 3 {
		t.Errorf("expected 3 links, got %v", got.Links)
	}
}
