package helpers

import (
	"fmt"
	"time"
)

const calendarDateLayout = "2006-01-02"

// ParseDate accepts an RFC 3339 timestamp or a bare calendar date and
// normalizes it to UTC. Event dates and range bounds use the same rules.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(calendarDateLayout, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q, want RFC 3339 or YYYY-MM-DD", s)
}
