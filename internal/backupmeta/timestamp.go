package backupmeta

import (
	"fmt"
	"time"
)

// formatISO8601 formats t as an ISO-8601 datetime with an explicit UTC
// offset, e.g. "2024-01-02T15:04:05.123456789Z".
func formatISO8601(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseISO8601 parses an ISO-8601 datetime. Per spec, any ISO-8601 datetime
// is accepted and UTC is assumed if no offset is present.
func parseISO8601(s string) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Location() != time.UTC {
				t = t.UTC()
			}
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a valid ISO-8601 datetime", s)
}
