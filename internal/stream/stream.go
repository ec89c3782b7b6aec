// Package stream encodes crawl events as newline-delimited JSON and
// decodes such a stream back into events.
package stream

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nao1215/contactscan/internal/model"
)

// ContentType is the media type of an event stream response.
const ContentType = "text/plain; charset=utf-8"

// maxLineSize bounds a single decoded line. Result lines for large
// sites can be far longer than bufio's 64 KiB default.
const maxLineSize = 4 * 1024 * 1024

// Encoder writes one JSON object per line.
type Encoder struct {
	w       io.Writer
	flusher http.Flusher
}

// NewEncoder returns an Encoder writing to w. When w is an http.Flusher
// every event is flushed as soon as it is written.
func NewEncoder(w io.Writer) *Encoder {
	e := &Encoder{w: w}
	if f, ok := w.(http.Flusher); ok {
		e.flusher = f
	}
	return e
}

// Encode writes ev followed by '\n'.
func (e *Encoder) Encode(ev model.Event) error {
	data, err := json.Marshal(ev.Wire())
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	data = append(data, '\n')
	if _, err := e.w.Write(data); err != nil {
		return err
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
	return nil
}

// Decoder reads events from an NDJSON stream. Blank lines, lines that are
// not valid JSON and objects of an unknown type are skipped.
type Decoder struct {
	scanner *bufio.Scanner
	skipped int
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Decoder{scanner: scanner}
}

// Next returns the next well-formed event. It returns io.EOF when the
// stream ends.
func (d *Decoder) Next() (model.Event, error) {
	for d.scanner.Scan() {
		line := strings.TrimSpace(d.scanner.Text())
		if line == "" {
			continue
		}
		var ev model.Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			d.skipped++
			continue
		}
		if ev.Type != model.EventProgress && ev.Type != model.EventResult {
			d.skipped++
			continue
		}
		return ev, nil
	}
	if err := d.scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return model.Event{}, fmt.Errorf("stream line exceeds %d bytes: %w", maxLineSize, err)
		}
		return model.Event{}, err
	}
	return model.Event{}, io.EOF
}

// Skipped returns how many non-blank lines were discarded so far.
func (d *Decoder) Skipped() int {
	return d.skipped
}
