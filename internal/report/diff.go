package report

import "github.com/nao1215/contactscan/internal/model"

// Diff is what changed between two crawls of the same host.
type Diff struct {
	Host string

	// Old and New are the compared reports, oldest first.
	Old *model.CrawlReport
	New *model.CrawlReport

	AddedEmails   []string
	RemovedEmails []string
	AddedPhones   []string
	RemovedPhones []string
}

// NewDiff compares older with newer.
func NewDiff(older, newer *model.CrawlReport) *Diff {
	d := &Diff{Old: older, New: newer}
	if newer != nil {
		d.Host = newer.Host
	}
	var oldEmails, oldPhones, newEmails, newPhones []string
	if older != nil {
		oldEmails, oldPhones = older.Emails, older.Phones
	}
	if newer != nil {
		newEmails, newPhones = newer.Emails, newer.Phones
	}
	d.AddedEmails = missingFrom(newEmails, oldEmails)
	d.RemovedEmails = missingFrom(oldEmails, newEmails)
	d.AddedPhones = missingFrom(newPhones, oldPhones)
	d.RemovedPhones = missingFrom(oldPhones, newPhones)
	return d
}

// HasChanges reports whether any contact was added or removed.
func (d *Diff) HasChanges() bool {
	return len(d.AddedEmails)+len(d.RemovedEmails)+len(d.AddedPhones)+len(d.RemovedPhones) > 0
}

// missingFrom returns the values of a that are not in b, in a's order.
func missingFrom(a, b []string) []string {
	index := make(map[string]struct{}, len(b))
	for _, v := range b {
		index[v] = struct{}{}
	}
	out := []string{}
	for _, v := range a {
		if _, ok := index[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}
