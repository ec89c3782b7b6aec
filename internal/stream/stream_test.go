package stream

import (
	"bytes"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nao1215/contactscan/internal/model"
)

func TestEncoder(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	events := []model.Event{
		model.NewProgressEvent(1, 2, "https://example.test"),
		model.NewProgressEvent(2, 1, ""),
		model.NewResultEvent([]string{"a@example.com"}, nil),
	}
	for _, ev := range events {
		if err := enc.Encode(ev); err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
	}

	want := `{"type":"progress","processed":1,"queue":2,"current":"https://example.test"}
{"type":"progress","processed":2,"queue":1}
{"type":"result","emails":["a@example.com"],"phones":[]}
`
	if buf.String() != want {
		t.Errorf("encoded stream:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestEncoderFlushes(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	if err := NewEncoder(rec).Encode(model.NewProgressEvent(1, 0, "")); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !rec.Flushed {
		t.Error("ResponseRecorder was not flushed")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestEncoderWriteError(t *testing.T) {
	t.Parallel()

	err := NewEncoder(failingWriter{}).Encode(model.NewProgressEvent(1, 0, ""))
	if !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("Encode() error = %v, want io.ErrClosedPipe", err)
	}
}

func TestDecoder(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		`{"type":"progress","processed":1,"queue":2,"current":"https://example.test"}`,
		``,
		`{"type":"progress","proc`,
		`not json at all`,
		`{"type":"heartbeat"}`,
		`{"type":"progress","processed":2,"queue":0}`,
		`{"type":"result","emails":["a@example.com"],"phones":["+1 555-123-4567"]}`,
	}, "\n")

	dec := NewDecoder(strings.NewReader(input))
	var got []model.Event
	for {
		ev, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		got = append(got, ev)
	}

	if len(got) != 3 {
		t.Fatalf("decoded %d events, want 3: %+v", len(got), got)
	}
	if got[0].Processed != 1 || got[0].Queue != 2 || got[0].Current != "https://example.test" {
		t.Errorf("first event = %+v", got[0])
	}
	if !got[2].IsResult() || got[2].Emails[0] != "a@example.com" || got[2].Phones[0] != "+1 555-123-4567" {
		t.Errorf("result event = %+v", got[2])
	}
	if dec.Skipped() != 3 {
		t.Errorf("Skipped() = %d, want 3", dec.Skipped())
	}
}

func TestRoundTripThroughPipe(t *testing.T) {
	t.Parallel()

	pr, pw := io.Pipe()
	go func() {
		enc := NewEncoder(pw)
		_ = enc.Encode(model.NewProgressEvent(1, 0, "https://example.test"))
		_ = enc.Encode(model.NewResultEvent(nil, nil))
		_ = pw.Close()
	}()

	dec := NewDecoder(pr)
	first, err := dec.Next()
	if err != nil || first.Type != model.EventProgress {
		t.Fatalf("first = %+v, %v", first, err)
	}
	last, err := dec.Next()
	if err != nil || !last.IsResult() {
		t.Fatalf("last = %+v, %v", last, err)
	}
	if _, err := dec.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next() after result = %v, want io.EOF", err)
	}
}
