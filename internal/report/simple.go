package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/contactscan/internal/model"
)

const ruleWidth = 70

// SimpleWriter outputs plain text for terminals.
type SimpleWriter struct {
	baseWriter
}

// NewSimpleWriter returns a SimpleWriter writing to output.
func NewSimpleWriter(output io.Writer) *SimpleWriter {
	return &SimpleWriter{baseWriter: newBaseWriter(output)}
}

// Write implements Writer.
func (w *SimpleWriter) Write(report *model.CrawlReport) (int, error) {
	var sb strings.Builder

	banner(&sb, "CONTACTSCAN REPORT")
	fmt.Fprintf(&sb, "Start URL:      %s\n", report.StartURL)
	fmt.Fprintf(&sb, "Country:        %s\n", CountryLabel(report.Country))
	fmt.Fprintf(&sb, "Crawled:        %s\n", report.FinishedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&sb, "Duration:       %s\n", report.Duration().Round(timeRounding))
	fmt.Fprintf(&sb, "Pages:          %d visited, %d failed\n", report.PagesVisited, report.PagesFailed)
	fmt.Fprintf(&sb, "Report ID:      %s\n\n", report.ID)

	section(&sb, fmt.Sprintf("EMAILS (%d)", len(report.Emails)))
	list(&sb, report.Emails, "  No email addresses found\n")

	section(&sb, fmt.Sprintf("PHONES (%d)", len(report.Phones)))
	list(&sb, report.Phones, "  No phone numbers found\n")

	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

// WriteDiff implements Writer.
func (w *SimpleWriter) WriteDiff(diff *Diff) (int, error) {
	var sb strings.Builder

	banner(&sb, "CONTACTSCAN COMPARISON")
	fmt.Fprintf(&sb, "Host:           %s\n", diff.Host)
	if diff.Old != nil {
		fmt.Fprintf(&sb, "Previous crawl: %s (%s)\n", diff.Old.FinishedAt.Format("2006-01-02 15:04"), diff.Old.ID)
	}
	if diff.New != nil {
		fmt.Fprintf(&sb, "Latest crawl:   %s (%s)\n", diff.New.FinishedAt.Format("2006-01-02 15:04"), diff.New.ID)
	}
	sb.WriteString("\n")

	if !diff.HasChanges() {
		sb.WriteString("  No changes\n\n")
	}
	changes := []struct {
		title  string
		marker string
		values []string
	}{
		{"NEW EMAILS", "+", diff.AddedEmails},
		{"REMOVED EMAILS", "-", diff.RemovedEmails},
		{"NEW PHONES", "+", diff.AddedPhones},
		{"REMOVED PHONES", "-", diff.RemovedPhones},
	}
	for _, c := range changes {
		if len(c.values) == 0 {
			continue
		}
		section(&sb, c.title)
		for _, v := range c.values {
			fmt.Fprintf(&sb, "  [%s] %s\n", c.marker, v)
		}
		sb.WriteString("\n")
	}

	return io.WriteString(w.output, sb.String())
}

func banner(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	pad := max((ruleWidth-len(title))/2, 0)
	sb.WriteString(strings.Repeat(" ", pad) + title + "\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

func list(sb *strings.Builder, values []string, empty string) {
	if len(values) == 0 {
		sb.WriteString(empty)
	}
	for _, v := range values {
		fmt.Fprintf(sb, "  [+] %s\n", v)
	}
	sb.WriteString("\n")
}
