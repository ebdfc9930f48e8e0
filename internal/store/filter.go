package store

import "github.com/FrithiofJensen/openproject/internal/model"

// FilterClause returns the SQL predicate, prefixed with AND, that narrows an
// entries query to filter. Unknown filters select everything.
func FilterClause(f model.Filter) string {
	switch f {
	case model.FilterOnlyComments:
		return " AND body <> ''"
	case model.FilterOnlyChanges:
		return " AND body = ''"
	default:
		return ""
	}
}

// DirectionOrDefault maps a stored value onto a valid direction.
func DirectionOrDefault(raw string) model.SortDirection {
	d, _ := model.ParseSortDirection(raw)
	return d
}
