package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/nao1215/contactscan/internal/config"
	"github.com/nao1215/contactscan/internal/database"
	"github.com/nao1215/contactscan/internal/model"
	"github.com/nao1215/contactscan/internal/report"
	"github.com/nao1215/contactscan/internal/stream"
	"github.com/nao1215/contactscan/internal/transport"
)

// testSite serves three same-origin pages. Setting extra adds a second
// address to the contact page.
type testSite struct {
	*httptest.Server
	extra   atomic.Bool
	mu      sync.Mutex
	cookies []string
}

func newTestSite(t *testing.T) *testSite {
	t.Helper()
	site := &testSite{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		site.mu.Lock()
		site.cookies = append(site.cookies, r.Header.Get("Cookie"))
		site.mu.Unlock()
		io.WriteString(w, `<html><a href="/contact">Contact</a> <a href="/about">About</a></html>`)
	})
	mux.HandleFunc("GET /contact", func(w http.ResponseWriter, _ *http.Request) {
		body := `<p>Write to Sales@Example.com or call +1 555-123-4567</p>`
		if site.extra.Load() {
			body += `<p>Support: help@example.com</p>`
		}
		io.WriteString(w, body)
	})
	mux.HandleFunc("GET /about", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `<p>About us</p><a href="/contact">again</a>`)
	})
	site.Server = httptest.NewServer(mux)
	t.Cleanup(site.Close)
	return site
}

// writeTestConfig writes a config file keeping the history in dbDir.
func writeTestConfig(t *testing.T, dbDir string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), config.DefaultConfigFile)
	content := "crawl:\n  dbDir: " + dbDir + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return stdout.String(), stderr.String(), err
}

func decodeEvents(t *testing.T, raw string) []model.Event {
	t.Helper()
	dec := stream.NewDecoder(strings.NewReader(raw))
	var events []model.Event
	for {
		ev, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		events = append(events, ev)
	}
	if dec.Skipped() != 0 {
		t.Errorf("%d malformed lines:\n%s", dec.Skipped(), raw)
	}
	return events
}

func checkSiteEvents(t *testing.T, events []model.Event) {
	t.Helper()
	if len(events) != 4 {
		t.Fatalf("events = %d, want 3 progress + 1 result: %+v", len(events), events)
	}
	for i, ev := range events[:3] {
		if ev.Type != model.EventProgress || ev.Processed != i+1 {
			t.Errorf("event %d = %+v", i, ev)
		}
	}
	result := events[3]
	if !result.IsResult() {
		t.Fatalf("last event = %+v, want result", result)
	}
	if !slices.Equal(result.Emails, []string{"sales@example.com"}) {
		t.Errorf("emails = %v", result.Emails)
	}
	if !slices.Equal(result.Phones, []string{"+1 555-123-4567"}) {
		t.Errorf("phones = %v", result.Phones)
	}
}

func TestCrawlLocalJSON(t *testing.T) {
	site := newTestSite(t)
	cfgPath := writeTestConfig(t, t.TempDir())

	stdout, _, err := execute(t, "crawl", "--config", cfgPath, "--allow-private", "--no-save", "-f", "json", site.URL)
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	var doc report.JSONReport
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		t.Fatalf("output is not a JSON report: %v\n%s", err, stdout)
	}
	r := doc.Report
	if r == nil {
		t.Fatal("missing report")
	}
	if r.PagesVisited != 3 || r.PagesFailed != 0 {
		t.Errorf("pages = %d visited, %d failed", r.PagesVisited, r.PagesFailed)
	}
	if !slices.Equal(r.Emails, []string{"sales@example.com"}) || !slices.Equal(r.Phones, []string{"+1 555-123-4567"}) {
		t.Errorf("findings = %v %v", r.Emails, r.Phones)
	}
}

func TestCrawlLocalNDJSON(t *testing.T) {
	site := newTestSite(t)
	cfgPath := writeTestConfig(t, t.TempDir())

	stdout, _, err := execute(t, "crawl", "--config", cfgPath, "--allow-private", "--no-save", "-f", "ndjson", site.URL)
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}
	checkSiteEvents(t, decodeEvents(t, stdout))
}

func TestCrawlLocalTextToFile(t *testing.T) {
	site := newTestSite(t)
	cfgPath := writeTestConfig(t, t.TempDir())
	outPath := filepath.Join(t.TempDir(), "reports", "site.txt")

	stdout, stderr, err := execute(t, "crawl", "--config", cfgPath, "--allow-private", "--no-save", "-o", outPath, site.URL)
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}
	if stdout != "" {
		t.Errorf("expected nothing on stdout, got %q", stdout)
	}
	if !strings.Contains(stderr, "[1/1] 3 pages") {
		t.Errorf("expected progress on stderr, got %q", stderr)
	}

	content, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("report file missing: %v", err)
	}
	for _, want := range []string{"CONTACTSCAN REPORT", "sales@example.com", "+1 555-123-4567"} {
		if !strings.Contains(string(content), want) {
			t.Errorf("report lacks %q:\n%s", want, content)
		}
	}
}

func TestCrawlRejectsBadInput(t *testing.T) {
	cfgPath := writeTestConfig(t, t.TempDir())

	t.Run("unknown format", func(t *testing.T) {
		_, _, err := execute(t, "crawl", "--config", cfgPath, "--no-save", "-f", "xml", "example.com")
		if !errors.Is(err, report.ErrUnknownFormat) {
			t.Errorf("expected ErrUnknownFormat, got %v", err)
		}
	})

	t.Run("invalid url", func(t *testing.T) {
		_, _, err := execute(t, "crawl", "--config", cfgPath, "--no-save", "http://")
		if !errors.Is(err, model.ErrInvalidURL) {
			t.Errorf("expected ErrInvalidURL, got %v", err)
		}
	})

	t.Run("invalid onion address", func(t *testing.T) {
		_, _, err := execute(t, "crawl", "--config", cfgPath, "--no-save", "short.onion")
		if !errors.Is(err, transport.ErrInvalidOnionAddress) {
			t.Errorf("expected ErrInvalidOnionAddress, got %v", err)
		}
	})

	t.Run("invalid page cap", func(t *testing.T) {
		_, _, err := execute(t, "crawl", "--config", cfgPath, "--no-save", "-p", "0", "example.com")
		if !errors.Is(err, config.ErrInvalidMaxPages) {
			t.Errorf("expected ErrInvalidMaxPages, got %v", err)
		}
	})

	t.Run("missing config file", func(t *testing.T) {
		_, _, err := execute(t, "crawl", "--config", filepath.Join(t.TempDir(), "none"), "example.com")
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("private address blocked by default", func(t *testing.T) {
		site := newTestSite(t)
		stdout, _, err := execute(t, "crawl", "--config", cfgPath, "--no-save", "-f", "ndjson", site.URL)
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}
		events := decodeEvents(t, stdout)
		if len(events) != 2 || events[0].Processed != 1 || !events[1].IsResult() {
			t.Errorf("expected one failed page and an empty result, got %+v", events)
		}
	})
}

// startServe runs the serve command's server loop on a random port.
func startServe(t *testing.T, mutate func(*config.Config)) string {
	t.Helper()

	cfg := config.NewConfig()
	cfg.AllowPrivateNetworks = true
	cfg.SaveToDB = false
	if mutate != nil {
		mutate(cfg)
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(t.Context(), "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runServe(ctx, cfg, slog.New(slog.DiscardHandler), ln, io.Discard)
	}()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("runServe() error = %v", err)
		}
	})
	return "http://" + ln.Addr().String()
}

func TestCrawlRemote(t *testing.T) {
	site := newTestSite(t)
	remote := startServe(t, nil)
	cfgPath := writeTestConfig(t, t.TempDir())

	t.Run("ndjson", func(t *testing.T) {
		stdout, _, err := execute(t, "crawl", "--config", cfgPath, "--remote", remote, "-f", "ndjson", site.URL)
		if err != nil {
			t.Fatalf("remote crawl failed: %v", err)
		}
		checkSiteEvents(t, decodeEvents(t, stdout))
	})

	t.Run("json report", func(t *testing.T) {
		stdout, _, err := execute(t, "crawl", "--config", cfgPath, "--remote", remote, "-f", "json", site.URL)
		if err != nil {
			t.Fatalf("remote crawl failed: %v", err)
		}
		var doc report.JSONReport
		if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
			t.Fatalf("output is not a JSON report: %v\n%s", err, stdout)
		}
		if doc.Report.PagesVisited != 3 || !slices.Equal(doc.Report.Emails, []string{"sales@example.com"}) {
			t.Errorf("unexpected report %+v", doc.Report)
		}
	})

	t.Run("invalid url rejected by service", func(t *testing.T) {
		_, stderr, err := execute(t, "crawl", "--config", cfgPath, "--remote", remote, "http://")
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(stderr, "Invalid URL") {
			t.Errorf("expected service message on stderr, got %q", stderr)
		}
	})
}

func TestCrawlRemoteUnauthorized(t *testing.T) {
	remote := startServe(t, func(cfg *config.Config) {
		cfg.AllowedIPs = []string{"192.0.2.10"}
	})
	cfgPath := writeTestConfig(t, t.TempDir())

	stdout, stderr, err := execute(t, "crawl", "--config", cfgPath, "--remote", remote, "-f", "ndjson", "example.com")
	if err == nil {
		t.Fatal("expected error")
	}
	if stdout != "" {
		t.Errorf("no events may be written for a rejected caller, got %q", stdout)
	}
	if !strings.Contains(stderr, "Unauthorized") {
		t.Errorf("expected Unauthorized on stderr, got %q", stderr)
	}
}

func TestHistoryAndCompare(t *testing.T) {
	site := newTestSite(t)
	dbDir := t.TempDir()
	cfgPath := writeTestConfig(t, dbDir)

	crawl := func() {
		t.Helper()
		if _, _, err := execute(t, "crawl", "--config", cfgPath, "--allow-private", "-f", "json", site.URL); err != nil {
			t.Fatalf("crawl failed: %v", err)
		}
	}

	_, _, err := execute(t, "compare", "--config", cfgPath, site.URL)
	if !errors.Is(err, errNoHistory) {
		t.Errorf("compare without history: expected errNoHistory, got %v", err)
	}

	crawl()
	if _, _, err := execute(t, "compare", "--config", cfgPath, site.URL); err == nil {
		t.Error("compare with one crawl: expected error")
	}

	site.extra.Store(true)
	crawl()

	t.Run("list", func(t *testing.T) {
		stdout, _, err := execute(t, "history", "--config", cfgPath)
		if err != nil {
			t.Fatalf("history failed: %v", err)
		}
		if !strings.Contains(stdout, "Crawl history (2 crawls)") {
			t.Errorf("unexpected history output:\n%s", stdout)
		}
	})

	t.Run("single report", func(t *testing.T) {
		db, err := database.Open(dbDir, database.DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		reports, err := db.ListReports(t.Context(), 1)
		db.Close()
		if err != nil || len(reports) != 1 {
			t.Fatalf("ListReports() = %v, %v", reports, err)
		}

		stdout, _, err := execute(t, "history", "--config", cfgPath, "-f", "markdown", reports[0].ID)
		if err != nil {
			t.Fatalf("history <id> failed: %v", err)
		}
		if !strings.Contains(stdout, "help@example.com") {
			t.Errorf("expected latest findings in report:\n%s", stdout)
		}
	})

	t.Run("unknown report", func(t *testing.T) {
		_, _, err := execute(t, "history", "--config", cfgPath, "no-such-id")
		if !errors.Is(err, database.ErrReportNotFound) {
			t.Errorf("expected ErrReportNotFound, got %v", err)
		}
	})

	t.Run("contact lookup", func(t *testing.T) {
		stdout, _, err := execute(t, "history", "--config", cfgPath, "--contact", "SALES@example.com")
		if err != nil {
			t.Fatalf("history --contact failed: %v", err)
		}
		if !strings.Contains(stdout, "found in 2 crawls") {
			t.Errorf("unexpected output:\n%s", stdout)
		}
	})

	t.Run("compare", func(t *testing.T) {
		stdout, _, err := execute(t, "compare", "--config", cfgPath, "-f", "json", site.URL)
		if err != nil {
			t.Fatalf("compare failed: %v", err)
		}
		var diff report.JSONDiff
		if err := json.Unmarshal([]byte(stdout), &diff); err != nil {
			t.Fatalf("output is not a JSON diff: %v\n%s", err, stdout)
		}
		if !slices.Equal(diff.AddedEmails, []string{"help@example.com"}) || len(diff.RemovedEmails) != 0 {
			t.Errorf("unexpected diff %+v", diff)
		}
	})
}

func TestSpiderFactory(t *testing.T) {
	site := newTestSite(t)
	host := strings.TrimPrefix(site.URL, "http://")

	cfg := config.NewConfig()
	cfg.AllowPrivateNetworks = true
	cfg.Sites = &config.File{Sites: map[string]config.SiteConfig{
		host: {Cookie: "sid=42", MaxPages: 1},
	}}
	f := newSpiderFactory(cfg, transport.NewDirectClient(transport.Options{AllowPrivateNetworks: true}), slog.New(slog.DiscardHandler))

	req, err := model.NewCrawlRequest(site.URL, "")
	if err != nil {
		t.Fatal(err)
	}
	sp := f.For(req)
	if f.For(req) != sp {
		t.Error("expected the spider to be cached per host")
	}
	if f.Default() == sp {
		t.Error("expected a separate default spider")
	}

	r, err := sp.Run(t.Context(), req, func(model.Event) error { return nil })
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if r.PagesVisited != 1 {
		t.Errorf("PagesVisited = %d, want the site cap of 1", r.PagesVisited)
	}

	site.mu.Lock()
	defer site.mu.Unlock()
	if len(site.cookies) != 1 || site.cookies[0] != "sid=42" {
		t.Errorf("cookies seen = %q", site.cookies)
	}
}

func TestCompareHost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "Example.com", want: "example.com"},
		{in: "https://example.com/contact", want: "example.com"},
		{in: "http://127.0.0.1:8080/", want: "127.0.0.1:8080"},
		{in: " ", wantErr: true},
		{in: "http://", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := compareHost(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("compareHost(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("compareHost(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPrintHistoryEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := printHistory(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No crawls found") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := truncate("example.com", 30); got != "example.com" {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("a-very-long-subdomain.example.com", 10); got != "a-very-..." {
		t.Errorf("truncate() = %q", got)
	}
}
