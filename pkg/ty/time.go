package ty

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	str2duration "github.com/xhit/go-str2duration/v2"
)

// Format is the standard timestamp format used for backend queries.
const Format = time.RFC3339

// relativeRe matches relative ranges like "24h", "7d", "1w", "2m".
var relativeRe = regexp.MustCompile(`^(\d+)([hdwm])$`)

// epochMicrosRe matches raw epoch-microsecond integers (16+ digits keeps
// them distinct from compact dates like "20250101").
var epochMicrosRe = regexp.MustCompile(`^\d{13,}$`)

// IsRelative reports whether value is a relative range string.
func IsRelative(value string) bool {
	return relativeRe.MatchString(value)
}

// RelativeOffset converts a relative range string into a duration looking
// back from now. Months are approximated as 30 days.
func RelativeOffset(value string) (time.Duration, error) {
	m := relativeRe.FindStringSubmatch(value)
	if m == nil {
		return 0, fmt.Errorf("invalid relative time range: %q", value)
	}
	if m[2] == "m" {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, err
		}
		return time.Duration(n) * 30 * 24 * time.Hour, nil
	}
	return str2duration.ParseDuration(value)
}

// ParseTimeInput normalizes a user-supplied time value into an absolute UTC
// instant. Accepted forms:
//   - relative ranges ("24h", "7d", "1w", "2m"), resolved against now
//   - epoch microseconds ("1759527600000000")
//   - ISO-8601 timestamps with an explicit offset or Z suffix
//   - naive timestamps ("2025-10-04 10:20:00") interpreted in tz, or UTC
//     when tz is empty
func ParseTimeInput(value string, tz string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("time value cannot be empty")
	}

	if IsRelative(value) {
		offset, err := RelativeOffset(value)
		if err != nil {
			return time.Time{}, err
		}
		return now.Add(-offset).UTC(), nil
	}

	if epochMicrosRe.MatchString(value) {
		us, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid epoch microseconds %q: %w", value, err)
		}
		return FromEpochMicros(us), nil
	}

	loc := time.UTC
	if tz != "" {
		var err error
		if loc, err = time.LoadLocation(tz); err != nil {
			return time.Time{}, fmt.Errorf("invalid timezone %q: %w", tz, err)
		}
	}

	t, err := dateparse.ParseIn(value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time format %q: %w", value, err)
	}
	return t.UTC(), nil
}

// EpochMicros converts an instant to microseconds since the Unix epoch.
func EpochMicros(t time.Time) int64 {
	return t.UnixMicro()
}

// FromEpochMicros converts microseconds since the Unix epoch to a UTC instant.
func FromEpochMicros(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}

// RFC3339UTC renders an instant in RFC3339 UTC, the form Kibana queries use.
func RFC3339UTC(t time.Time) string {
	return t.UTC().Format(Format)
}
