package store

// instant.go normalizes timestamps to comparable UTC instants.  Persisted
// expiry values reach us in several shapes depending on driver settings and
// on which deployment wrote the row: time.Time when the driver parses
// DATETIME, otherwise strings with a trailing Z, an explicit offset, or no
// zone at all (assumed UTC).

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrBadInstant = errors.New("unparseable timestamp")

// instantLayouts are tried in order for string inputs without an explicit
// zone.  MySQL's text representation uses a space separator; ISO-8601 uses T.
var instantLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseInstant converts a store-native timestamp value to a UTC time.Time.
func ParseInstant(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case []byte:
		return parseInstantString(string(t))
	case string:
		return parseInstantString(t)
	case nil:
		return time.Time{}, fmt.Errorf("%w: nil value", ErrBadInstant)
	default:
		return time.Time{}, fmt.Errorf("%w: %T", ErrBadInstant, v)
	}
}

func parseInstantString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty string", ErrBadInstant)
	}

	// Trailing Z or an explicit offset: RFC 3339 handles both.
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	// Offset without the T separator.
	if t, err := time.Parse("2006-01-02 15:04:05.999999999Z07:00", s); err == nil {
		return t.UTC(), nil
	}
	// Naive timestamp: assume UTC.
	for _, layout := range instantLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadInstant, s)
}

// Expired reports whether the expiry value v lies strictly before now.
// A record checked at exactly its expiry instant is not expired.
func Expired(v any, now time.Time) (bool, error) {
	exp, err := ParseInstant(v)
	if err != nil {
		return false, err
	}
	return now.UTC().After(exp), nil
}
