package model

import "time"

// Subject is a tracked item that journal entries are attached to.
type Subject struct {
	SubjectID    string    `json:"subjectId"`
	Title        string    `json:"title"`
	CreationTime time.Time `json:"creationTime"`
}

// Entry is a journal record on a subject: a free-text comment when Body is
// non-empty, an automated change note otherwise.
type Entry struct {
	EntryID   string    `json:"entryId"`
	SubjectID string    `json:"subjectId"`
	AuthorID  string    `json:"authorId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsComment reports whether the entry carries notes.
func (e *Entry) IsComment() bool { return e.Body != "" }

// IsChange reports whether the entry is a change record without notes.
func (e *Entry) IsChange() bool { return e.Body == "" }

// Filter selects which entries of a subject a feed shows.
type Filter string

const (
	FilterAll          Filter = "all"
	FilterOnlyComments Filter = "only_comments"
	FilterOnlyChanges  Filter = "only_changes"
)

// ParseFilter maps a raw request value onto a Filter. Unknown values fall back
// to FilterAll and ok is false.
func ParseFilter(raw string) (f Filter, ok bool) {
	switch Filter(raw) {
	case FilterAll, FilterOnlyComments, FilterOnlyChanges:
		return Filter(raw), true
	case "":
		return FilterAll, true
	default:
		return FilterAll, false
	}
}

// SortDirection is the ordering applied to both day groups and entries.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// DefaultSortDirection is used when neither request nor preference names one.
const DefaultSortDirection = SortDesc

// ParseSortDirection maps a raw value onto a SortDirection. Unknown values fall
// back to DefaultSortDirection and ok is false.
func ParseSortDirection(raw string) (d SortDirection, ok bool) {
	switch SortDirection(raw) {
	case SortAsc, SortDesc:
		return SortDirection(raw), true
	case "":
		return DefaultSortDirection, true
	default:
		return DefaultSortDirection, false
	}
}

// ListEntriesRequest captures the accessor inputs for fetching a subject's entries.
type ListEntriesRequest struct {
	SubjectID string
	Filter    Filter
}
