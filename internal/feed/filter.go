package feed

import "github.com/FrithiofJensen/openproject/internal/model"

// Matches reports whether e is visible under f. Unknown filters behave as
// model.FilterAll.
func Matches(e *model.Entry, f model.Filter) bool {
	switch f {
	case model.FilterOnlyComments:
		return e.IsComment()
	case model.FilterOnlyChanges:
		return e.IsChange()
	default:
		return true
	}
}

// Select returns the entries matching f, preserving input order.
func Select(entries []*model.Entry, f model.Filter) []*model.Entry {
	out := make([]*model.Entry, 0, len(entries))
	for _, e := range entries {
		if e != nil && Matches(e, f) {
			out = append(out, e)
		}
	}
	return out
}
