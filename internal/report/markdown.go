package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/contactscan/internal/model"
)

const timeRounding = 10 * time.Millisecond

// MarkdownWriter outputs GitHub-flavoured Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter returns a MarkdownWriter writing to output.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write implements Writer.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Contact Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Start URL", "`" + report.StartURL + "`"},
			{"Country", CountryLabel(report.Country)},
			{"Crawled", report.FinishedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration().Round(timeRounding).String()},
			{"Pages Visited", strconv.Itoa(report.PagesVisited)},
			{"Pages Failed", strconv.Itoa(report.PagesFailed)},
		},
	})
	md.PlainText("")

	if report.PagesFailed > 0 {
		w.writePageChart(md, report)
	}

	if len(report.Emails) == 0 && len(report.Phones) == 0 {
		md.Note("No contact information was found.")
		md.PlainText("")
	}

	md.H2("Emails")
	md.PlainText("")
	writeValues(md, report.Emails, "No email addresses found.")

	md.H2("Phones")
	md.PlainText("")
	writeValues(md, report.Phones, "No phone numbers found.")

	w.writeFooter(md, report.ID)
	return len(md.String()), md.Build()
}

// WriteDiff implements Writer.
func (w *MarkdownWriter) WriteDiff(diff *Diff) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Contact Changes: " + diff.Host)
	md.PlainText("")

	rows := [][]string{}
	if diff.Old != nil {
		rows = append(rows, []string{"Previous", diff.Old.FinishedAt.Format("2006-01-02 15:04"), "`" + diff.Old.ID + "`"})
	}
	if diff.New != nil {
		rows = append(rows, []string{"Latest", diff.New.FinishedAt.Format("2006-01-02 15:04"), "`" + diff.New.ID + "`"})
	}
	md.Table(markdown.TableSet{Header: []string{"Crawl", "Finished", "Report"}, Rows: rows})
	md.PlainText("")

	if !diff.HasChanges() {
		md.Tip("No contact information changed between the two crawls.")
		md.PlainText("")
	} else if len(diff.RemovedEmails)+len(diff.RemovedPhones) > 0 {
		md.Warningf("%d contact(s) disappeared since the previous crawl.", len(diff.RemovedEmails)+len(diff.RemovedPhones))
		md.PlainText("")
	}

	sections := []struct {
		title  string
		values []string
	}{
		{"New Emails", diff.AddedEmails},
		{"Removed Emails", diff.RemovedEmails},
		{"New Phones", diff.AddedPhones},
		{"Removed Phones", diff.RemovedPhones},
	}
	for _, s := range sections {
		if len(s.values) == 0 {
			continue
		}
		md.H2(s.title)
		md.PlainText("")
		md.BulletList(s.values...)
		md.PlainText("")
	}

	w.writeFooter(md, "")
	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writePageChart(md *markdown.Markdown, report *model.CrawlReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Page Fetch Outcome"),
		piechart.WithShowData(true),
	)
	if ok := report.PagesVisited - report.PagesFailed; ok > 0 {
		chart.LabelAndIntValue("Fetched", uint64(ok))
	}
	chart.LabelAndIntValue("Failed", uint64(report.PagesFailed))

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func writeValues(md *markdown.Markdown, values []string, empty string) {
	if len(values) == 0 {
		md.PlainText(empty)
		md.PlainText("")
		return
	}
	rows := make([][]string, len(values))
	for i, v := range values {
		rows[i] = []string{strconv.Itoa(i + 1), "`" + v + "`"}
	}
	md.Table(markdown.TableSet{Header: []string{"#", "Value"}, Rows: rows})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown, reportID string) {
	md.HorizontalRule()
	md.PlainText("")
	if reportID != "" {
		md.PlainTextf("*Report `%s` generated by [contactscan](https://github.com/nao1215/contactscan)*", reportID)
		return
	}
	md.PlainText("*Generated by [contactscan](https://github.com/nao1215/contactscan)*")
}
