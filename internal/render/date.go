package render

import (
	"strings"
	"time"
)

// dateLayouts are tried in order when parsing endpoint timestamps.
// The endpoint is not consistent about offsets or precision.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FormatDate renders an ISO-8601 timestamp as "DD/MM/YYYY à HH:MM".
// A trailing "Z" is treated as UTC. Anything unparseable is returned
// unchanged so the user still sees the raw value.
func FormatDate(value string) string {
	s := value
	if strings.HasSuffix(s, "Z") {
		s = strings.TrimSuffix(s, "Z") + "+00:00"
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("02/01/2006 à 15:04")
		}
	}
	return value
}
