// Package changes defines the common change/pull-request data model shared by
// the gerrit and github sources, the stats aggregator, and the report layer.
package changes

import "time"

// Message is one free-text comment posted on a revision.
// Messages are append-only: once attached to a revision they are never mutated.
type Message struct {
	ID       string    `json:"id"`
	PostedAt time.Time `json:"posted_at"`
	Body     string    `json:"body"`
}

// Revision is one uploaded version (patch) of a Change.
// Numbers are 1-based and monotonic within a Change.
type Revision struct {
	Number    int        `json:"number"`
	CreatedAt time.Time  `json:"created_at"`
	Messages  []*Message `json:"messages,omitempty"`
}

// AddMessage appends a message to the revision in posting order.
func (r *Revision) AddMessage(msg *Message) {
	r.Messages = append(r.Messages, msg)
}

// Change statuses normalized across backends.
const (
	StatusOpen   = "OPEN"
	StatusMerged = "MERGED"
	StatusClosed = "CLOSED"
)

// Change is one code-review unit: a Gerrit change or a GitHub pull request.
type Change struct {
	// LongID uniquely identifies the change within its source.
	LongID string `json:"long_id"`

	// Number is the backend-assigned short identifier.
	Number int64 `json:"number"`

	Project string `json:"project"`
	Branch  string `json:"branch"`
	Status  string `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// MergedAt is nil for non-terminal changes. When the backend reports a
	// merged change without a canonical merge timestamp, the source
	// substitutes UpdatedAt here.
	MergedAt *time.Time `json:"merged_at,omitempty"`

	// URL points at the change resource; ReviewURL at the human review page.
	URL       string `json:"url,omitempty"`
	ReviewURL string `json:"review_url,omitempty"`

	Revisions []*Revision `json:"revisions,omitempty"`
}

// Merged reports whether the change reached its terminal merged state.
func (c *Change) Merged() bool {
	return c.Status == StatusMerged && c.MergedAt != nil
}

// RevisionCount returns the number of revisions uploaded to the change.
func (c *Change) RevisionCount() int {
	return len(c.Revisions)
}

// AddRevision appends a revision, keeping the slice ordered by revision number.
func (c *Change) AddRevision(rev *Revision) {
	idx := len(c.Revisions)
	for idx > 0 && c.Revisions[idx-1].Number > rev.Number {
		idx--
	}

	c.Revisions = append(c.Revisions, nil)
	copy(c.Revisions[idx+1:], c.Revisions[idx:])
	c.Revisions[idx] = rev
}

// Revision returns the revision with the given number, or nil.
func (c *Change) Revision(number int) *Revision {
	for _, rev := range c.Revisions {
		if rev.Number == number {
			return rev
		}
	}

	return nil
}

// NewestRevision returns the revision with the highest number, or nil when
// the change has no revisions.
func (c *Change) NewestRevision() *Revision {
	if len(c.Revisions) == 0 {
		return nil
	}

	return c.Revisions[len(c.Revisions)-1]
}
