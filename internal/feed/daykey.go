package feed

import (
	"encoding/json"
	"fmt"
	"time"
)

// DayKey identifies a calendar day in the feed's reference time zone.
type DayKey struct {
	Year  int
	Month time.Month
	Day   int
}

// DayKeyOf truncates t to its calendar day in loc. A nil loc means UTC.
func DayKeyOf(t time.Time, loc *time.Location) DayKey {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return DayKey{Year: y, Month: m, Day: d}
}

// ParseDayKey parses the YYYY-MM-DD form produced by String.
func ParseDayKey(s string) (DayKey, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return DayKey{}, fmt.Errorf("parse day key %q: %w", s, err)
	}
	return DayKey{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// Compare returns -1, 0 or 1 as k is before, equal to or after o.
func (k DayKey) Compare(o DayKey) int {
	switch {
	case k.Year != o.Year:
		return cmpInt(k.Year, o.Year)
	case k.Month != o.Month:
		return cmpInt(int(k.Month), int(o.Month))
	default:
		return cmpInt(k.Day, o.Day)
	}
}

// IsZero reports whether k is the zero key.
func (k DayKey) IsZero() bool { return k == DayKey{} }

func (k DayKey) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", k.Year, int(k.Month), k.Day)
}

func (k DayKey) MarshalJSON() ([]byte, error) {
	if k.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(k.String())
}

func (k *DayKey) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*k = DayKey{}
		return nil
	}
	parsed, err := ParseDayKey(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
