package crawler

import (
	"strings"

	"github.com/nao1215/contactscan/internal/model"
)

// State is the mutable state of a single crawl. It is owned by one
// Spider.Run call and is not safe for concurrent use.
//
// Invariants enforced here rather than by callers:
//   - a URL is visited at most once
//   - a URL is never queued twice, nor queued after being visited
//   - the email and phone sets only grow
type State struct {
	visited map[string]struct{}
	queue   []string
	pending map[string]struct{}
	emails  orderedSet
	phones  orderedSet
}

// Snapshot is a point-in-time view of the crawl counters.
type Snapshot struct {
	// Processed is the number of visited URLs.
	Processed int
	// Queue is the number of URLs waiting to be fetched.
	Queue int
}

// NewState returns a State whose queue holds only startURL.
func NewState(startURL string) *State {
	s := &State{
		visited: make(map[string]struct{}),
		pending: make(map[string]struct{}),
		emails:  newOrderedSet(),
		phones:  newOrderedSet(),
	}
	s.EnqueueIfNew(startURL)
	return s
}

// Dequeue removes and returns the oldest queued URL.
func (s *State) Dequeue() (string, bool) {
	if len(s.queue) == 0 {
		return "", false
	}
	next := s.queue[0]
	s.queue[0] = ""
	s.queue = s.queue[1:]
	delete(s.pending, next)
	return next, true
}

// MarkVisited records pageURL as visited. It returns false when the URL
// had already been visited.
func (s *State) MarkVisited(pageURL string) bool {
	if _, ok := s.visited[pageURL]; ok {
		return false
	}
	s.visited[pageURL] = struct{}{}
	return true
}

// IsVisited reports whether pageURL has been visited.
func (s *State) IsVisited(pageURL string) bool {
	_, ok := s.visited[pageURL]
	return ok
}

// EnqueueIfNew appends pageURL to the queue unless it is already visited
// or already pending. It reports whether the URL was queued.
func (s *State) EnqueueIfNew(pageURL string) bool {
	if pageURL == "" {
		return false
	}
	if _, ok := s.visited[pageURL]; ok {
		return false
	}
	if _, ok := s.pending[pageURL]; ok {
		return false
	}
	s.pending[pageURL] = struct{}{}
	s.queue = append(s.queue, pageURL)
	return true
}

// RecordFindings merges one page's emails and phones into the result sets.
func (s *State) RecordFindings(page model.PageResult) {
	for _, e := range page.Emails {
		s.emails.add(strings.ToLower(e))
	}
	for _, p := range page.Phones {
		s.phones.add(strings.TrimSpace(p))
	}
}

// Snapshot returns the current counters.
func (s *State) Snapshot() Snapshot {
	return Snapshot{Processed: len(s.visited), Queue: len(s.queue)}
}

// Visited returns the number of visited URLs.
func (s *State) Visited() int {
	return len(s.visited)
}

// Pending returns the number of queued URLs.
func (s *State) Pending() int {
	return len(s.queue)
}

// Emails returns the collected emails in discovery order.
func (s *State) Emails() []string {
	return s.emails.values()
}

// Phones returns the collected phone numbers in discovery order.
func (s *State) Phones() []string {
	return s.phones.values()
}

// orderedSet is a string set that remembers insertion order.
type orderedSet struct {
	index map[string]struct{}
	order []string
}

func newOrderedSet() orderedSet {
	return orderedSet{index: make(map[string]struct{})}
}

func (o *orderedSet) add(v string) {
	if v == "" {
		return
	}
	if _, ok := o.index[v]; ok {
		return
	}
	o.index[v] = struct{}{}
	o.order = append(o.order, v)
}

func (o *orderedSet) values() []string {
	out := make([]string, len(o.order))
	copy(out, o.order)
	return out
}
