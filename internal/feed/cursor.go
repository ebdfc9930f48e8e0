package feed

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"

	"github.com/FrithiofJensen/openproject/internal/model"
)

// Cursor is the client's synchronization position. It is rebuilt from every
// request and never stored server side.
type Cursor struct {
	LastUpdate time.Time           `json:"lastUpdateTimestamp"`
	Filter     model.Filter        `json:"filter"`
	Direction  model.SortDirection `json:"sortDirection"`
}

// Epoch is the timestamp substituted for a missing or unparseable cursor time.
var Epoch = time.Unix(0, 0).UTC()

// ParseCursor builds a Cursor from raw request values. Malformed values are
// replaced by defaults (epoch, all, desc) and their field names returned in
// malformed; parsing never fails. An empty direction resolves to fallback.
func ParseCursor(rawTimestamp, rawFilter, rawDirection string, fallback model.SortDirection) (c Cursor, malformed []string) {
	c.LastUpdate = Epoch
	if ts := strings.TrimSpace(rawTimestamp); ts != "" {
		if t, ok := parseTimestamp(ts); ok {
			c.LastUpdate = t
		} else {
			malformed = append(malformed, "lastUpdateTimestamp")
		}
	}

	f, ok := model.ParseFilter(strings.TrimSpace(rawFilter))
	if !ok {
		malformed = append(malformed, "filter")
	}
	c.Filter = f

	dir := strings.TrimSpace(rawDirection)
	if dir == "" {
		if fallback == "" {
			fallback = model.DefaultSortDirection
		}
		c.Direction = fallback
		return c, malformed
	}
	d, ok := model.ParseSortDirection(dir)
	if !ok {
		malformed = append(malformed, "sortDirection")
	}
	c.Direction = d
	return c, malformed
}

// parseTimestamp accepts RFC 3339 variants via strfmt, and bare unix seconds.
func parseTimestamp(s string) (time.Time, bool) {
	if dt, err := strfmt.ParseDateTime(s); err == nil {
		return time.Time(dt).UTC(), true
	}
	if t, err := time.Parse(time.DateTime, s); err == nil {
		return t.UTC(), true
	}
	if len(s) > 12 || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return time.Time{}, false
	}
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(secs, 0).UTC(), true
}

// Advance returns a copy of c positioned at now.
func (c Cursor) Advance(now time.Time) Cursor {
	c.LastUpdate = now.UTC()
	return c
}
