package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// subjectIDRx allows ASCII letters, digits and a few separators, 1-128 chars.
var subjectIDRx = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.:\-]{0,127}$`)

// MaxNotesLength caps the notes of one entry, in characters.
const MaxNotesLength = 65535

func NonEmpty(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

// Notes validates the free text of a comment.
func Notes(v string) error {
	if err := NonEmpty("notes", v); err != nil {
		return err
	}
	if utf8.RuneCountInString(v) > MaxNotesLength {
		return fmt.Errorf("notes exceed %d characters", MaxNotesLength)
	}
	return nil
}

// SubjectID validates a caller-chosen subject id. Empty means generate one.
func SubjectID(v string) error {
	if v == "" {
		return nil
	}
	if !subjectIDRx.MatchString(v) {
		return fmt.Errorf("subjectId must match %s", subjectIDRx.String())
	}
	return nil
}

func Title(v string) error {
	if err := NonEmpty("title", v); err != nil {
		return err
	}
	if len(v) > 255 {
		return fmt.Errorf("title exceeds 255 characters")
	}
	return nil
}

// Sorting accepts exactly asc or desc.
func Sorting(v string) error {
	switch v {
	case "asc", "desc":
		return nil
	case "":
		return fmt.Errorf("sorting is required")
	default:
		return fmt.Errorf("sorting must be asc or desc")
	}
}

// -------- Request specific helpers ----------

func CreateSubject(subjectID, title string) error {
	if err := SubjectID(subjectID); err != nil {
		return err
	}
	return Title(title)
}
