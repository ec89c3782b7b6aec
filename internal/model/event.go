package model

// EventType discriminates the two wire-visible event shapes.
type EventType string

const (
	// EventProgress is emitted once per dequeued, previously unvisited page.
	EventProgress EventType = "progress"
	// EventResult is emitted exactly once, as the last event of a crawl.
	EventResult EventType = "result"
)

// Event is one line of the NDJSON stream.
//
// A progress event carries Processed, Queue and optionally Current.
// A result event carries Emails and Phones, always as arrays.
type Event struct {
	Type EventType `json:"type"`

	// Processed is the number of pages visited so far.
	Processed int `json:"processed"`

	// Queue is the number of URLs pending fetch.
	Queue int `json:"queue"`

	// Current is the URL that was just attempted.
	Current string `json:"current,omitempty"`

	Emails []string `json:"emails"`
	Phones []string `json:"phones"`
}

// progressWire and resultWire fix the field set of each shape on the wire.
type progressWire struct {
	Type      EventType `json:"type"`
	Processed int       `json:"processed"`
	Queue     int       `json:"queue"`
	Current   string    `json:"current,omitempty"`
}

type resultWire struct {
	Type   EventType `json:"type"`
	Emails []string  `json:"emails"`
	Phones []string  `json:"phones"`
}

// NewProgressEvent builds a progress event.
func NewProgressEvent(processed, queue int, current string) Event {
	return Event{Type: EventProgress, Processed: processed, Queue: queue, Current: current}
}

// NewResultEvent builds a result event. Nil slices become empty arrays.
func NewResultEvent(emails, phones []string) Event {
	if emails == nil {
		emails = []string{}
	}
	if phones == nil {
		phones = []string{}
	}
	return Event{Type: EventResult, Emails: emails, Phones: phones}
}

// Wire returns the value that should be JSON-encoded for this event so
// that progress lines carry no result fields and result lines carry no
// counters.
func (e Event) Wire() any {
	if e.Type == EventResult {
		r := NewResultEvent(e.Emails, e.Phones)
		return resultWire{Type: r.Type, Emails: r.Emails, Phones: r.Phones}
	}
	return progressWire{Type: e.Type, Processed: e.Processed, Queue: e.Queue, Current: e.Current}
}

// IsResult reports whether e is the terminal result event.
func (e Event) IsResult() bool {
	return e.Type == EventResult
}

// Result is the final outcome of a crawl as seen by a consumer.
type Result struct {
	Emails []string `json:"emails"`
	Phones []string `json:"phones"`
}

// PageResult is what a single fetched page contributed. It is consumed
// immediately by the crawler and never retained.
type PageResult struct {
	URL    string
	Emails []string
	Phones []string
	Links  []string
}
