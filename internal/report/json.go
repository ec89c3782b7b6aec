package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/contactscan/internal/model"
)

// JSONWriter outputs reports as JSON documents wrapped with the version
// of the tool that produced them.
type JSONWriter struct {
	baseWriter

	version      string
	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables indented output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter returns a compact JSONWriter unless options say otherwise.
func NewJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
		version:    version,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport is the document written for a single crawl.
type JSONReport struct {
	Version         string             `json:"version"`
	DurationSeconds float64            `json:"duration_seconds"`
	Report          *model.CrawlReport `json:"report"`
}

// JSONDiff is the document written for a comparison.
type JSONDiff struct {
	Version       string   `json:"version"`
	Host          string   `json:"host"`
	OldReportID   string   `json:"old_report_id,omitempty"`
	NewReportID   string   `json:"new_report_id,omitempty"`
	AddedEmails   []string `json:"added_emails"`
	RemovedEmails []string `json:"removed_emails"`
	AddedPhones   []string `json:"added_phones"`
	RemovedPhones []string `json:"removed_phones"`
}

// Write implements Writer.
func (w *JSONWriter) Write(report *model.CrawlReport) (int, error) {
	return w.writeJSON(JSONReport{
		Version:         w.version,
		DurationSeconds: report.Duration().Seconds(),
		Report:          report,
	})
}

// WriteDiff implements Writer.
func (w *JSONWriter) WriteDiff(diff *Diff) (int, error) {
	doc := JSONDiff{
		Version:       w.version,
		Host:          diff.Host,
		AddedEmails:   diff.AddedEmails,
		RemovedEmails: diff.RemovedEmails,
		AddedPhones:   diff.AddedPhones,
		RemovedPhones: diff.RemovedPhones,
	}
	if diff.Old != nil {
		doc.OldReportID = diff.Old.ID
	}
	if diff.New != nil {
		doc.NewReportID = diff.New.ID
	}
	return w.writeJSON(doc)
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}
