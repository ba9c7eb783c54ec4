package changes

import "errors"

// SourceKind identifies which backend a set of changes was gathered from.
type SourceKind string

const (
	// SourceGerrit marks changes gathered from a Gerrit code-review backend.
	SourceGerrit SourceKind = "gerrit"
	// SourceGitHub marks changes gathered from a GitHub pull-request backend.
	SourceGitHub SourceKind = "github"
)

// ErrDuplicateChange is returned when a change with an already-stored LongID
// is added to a Set. Callers treat it as a recoverable pagination overlap.
var ErrDuplicateChange = errors.New("change id already stored")

// Set is the per-source accumulation of gathered changes. It preserves
// insertion order and guarantees uniqueness by LongID.
//
// The exported fields are what snapshot codecs persist; the id index is
// rebuilt lazily after decoding.
type Set struct {
	Kind    SourceKind `json:"kind"`
	Changes []*Change  `json:"changes"`

	index map[string]*Change
}

// NewSet creates an empty set for the given source kind.
func NewSet(kind SourceKind) *Set {
	return &Set{
		Kind:  kind,
		index: make(map[string]*Change),
	}
}

func (s *Set) ensureIndex() {
	if s.index != nil {
		return
	}

	s.index = make(map[string]*Change, len(s.Changes))

	for _, c := range s.Changes {
		s.index[c.LongID] = c
	}
}

// Add stores a change. It returns ErrDuplicateChange when the LongID is
// already present; the set is left unchanged in that case.
func (s *Set) Add(c *Change) error {
	s.ensureIndex()

	if _, found := s.index[c.LongID]; found {
		return ErrDuplicateChange
	}

	s.index[c.LongID] = c
	s.Changes = append(s.Changes, c)

	return nil
}

// Contains reports whether a change with the given LongID is stored.
func (s *Set) Contains(longID string) bool {
	s.ensureIndex()

	_, found := s.index[longID]

	return found
}

// Get returns the stored change with the given LongID, or nil.
func (s *Set) Get(longID string) *Change {
	s.ensureIndex()

	return s.index[longID]
}

// Len returns the number of stored changes.
func (s *Set) Len() int {
	return len(s.Changes)
}

// ByProject groups the stored changes by project, preserving insertion order
// within each project. This is the shape the stats aggregator consumes.
func (s *Set) ByProject() map[string][]*Change {
	grouped := make(map[string][]*Change)

	for _, c := range s.Changes {
		grouped[c.Project] = append(grouped[c.Project], c)
	}

	return grouped
}

// Projects returns the distinct project names present in the set, in first-seen order.
func (s *Set) Projects() []string {
	var names []string

	seen := make(map[string]bool)

	for _, c := range s.Changes {
		if !seen[c.Project] {
			seen[c.Project] = true

			names = append(names, c.Project)
		}
	}

	return names
}
