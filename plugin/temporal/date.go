// Package temporal resolves the reference date used to normalize relative
// temporal expressions and turns extractor output into TIMEX3 annotations.
package temporal

import (
	"regexp"
	"time"
)

// DateLayout is the only reference date format the extractor accepts.
const DateLayout = "2006-01-02"

// isoDatePattern pins the exact shape; time.Parse checks calendar bounds.
var isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ValidateDate reports whether s is a real calendar date written as YYYY-MM-DD.
// Out-of-range days and months are rejected, never rolled over.
func ValidateDate(s string) bool {
	if !isoDatePattern.MatchString(s) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// FormatDate renders the calendar date of t in loc.
func FormatDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}
