// Package datefmt renders feed publication dates as coarse relative labels.
package datefmt

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Fallback is the label used when a date cannot be parsed.
const Fallback = "recently"

var ErrEmptyDate = errors.New("empty date")

// RFC 2822 variants seen in feeds, with one- or two-digit days. Zone names
// are rewritten to numeric offsets before parsing.
var layouts = []string{
	time.RFC1123Z,
	"Mon, 2 Jan 2006 15:04:05 -0700",
}

// zones holds the RFC 822 zone names. Other abbreviations are rejected:
// time.Parse gives unknown ones a zero offset.
var zones = map[string]string{
	"GMT": "+0000",
	"UT":  "+0000",
	"UTC": "+0000",
	"Z":   "+0000",
	"EST": "-0500",
	"EDT": "-0400",
	"CST": "-0600",
	"CDT": "-0500",
	"MST": "-0700",
	"MDT": "-0600",
	"PST": "-0800",
	"PDT": "-0700",
}

// Parse reads an RFC 2822 date with a numeric offset or an RFC 822 zone name.
func Parse(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrEmptyDate
	}
	if i := strings.LastIndexByte(raw, ' '); i >= 0 {
		if offset, ok := zones[strings.ToUpper(raw[i+1:])]; ok {
			raw = raw[:i+1] + offset
		}
	}

	var firstErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date %q: %w", raw, firstErr)
}

// Relative labels raw relative to now, evaluated in the date's own zone.
// Whole elapsed days decide the label: 0 days gives hours, 1 to 6 days give
// days, a week or more gives the month/day. Dates in the future count as
// just published.
func Relative(raw string, now time.Time) (string, error) {
	t, err := Parse(raw)
	if err != nil {
		return "", err
	}

	diff := now.In(t.Location()).Sub(t)
	if diff < 0 {
		diff = 0
	}

	days := int(diff / (24 * time.Hour))
	switch {
	case days == 0:
		hours := int(diff % (24 * time.Hour) / time.Hour)
		switch hours {
		case 0:
			return "a few minutes ago", nil
		case 1:
			return "1 hour ago", nil
		default:
			return fmt.Sprintf("%d hours ago", hours), nil
		}
	case days == 1:
		return "1 day ago", nil
	case days < 7:
		return fmt.Sprintf("%d days ago", days), nil
	default:
		return t.Format("01/02"), nil
	}
}

// Label is Relative with the Fallback label on any error.
func Label(raw string, now time.Time) string {
	label, err := Relative(raw, now)
	if err != nil {
		return Fallback
	}
	return label
}
