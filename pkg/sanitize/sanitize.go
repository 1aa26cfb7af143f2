// Package sanitize validates user-controlled strings before they are
// interpolated into backend queries. Every function is pure: it returns the
// input unchanged when it matches the allow-list for its identifier kind,
// and a *errs.ValidationError otherwise.
package sanitize

import (
	"regexp"
	"strings"

	"github.com/bascanada/loggate/pkg/errs"
)

// Length bounds per identifier kind.
const (
	MaxStreamNameLength   = 100
	MaxErrorCodeLength    = 10
	MaxQueryLength        = 5000
	MaxSessionIDLength    = 200
	MaxOrderIDLength      = 100
	MaxIndexPatternLength = 100
	MaxFieldNameLength    = 100
)

var (
	streamNameRe   = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	errorCodeRe    = regexp.MustCompile(`^[0-9%]+$`)
	sessionIDRe    = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	orderIDRe      = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	indexPatternRe = regexp.MustCompile(`^[a-zA-Z0-9_.*,-]+$`)
	fieldNameRe    = regexp.MustCompile(`^[@a-zA-Z0-9_.-]+$`)
	timeRangeRe    = regexp.MustCompile(`^\d+[hdwm]$`)
)

// dangerousKeywords are matched with word boundaries on the lowercased
// query, so "drop" inside "dropped" does not trigger.
var dangerousKeywords = []string{
	"drop", "delete", "insert", "update", "create",
	"alter", "truncate", "exec", "execute", "union",
	"script", "javascript", "eval",
}

var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script[^>]*>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
	regexp.MustCompile(`(?i)\beval\s*\(`),
	regexp.MustCompile(`\.\./`),
}

var keywordRes = buildKeywordRes()

func buildKeywordRes() []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(dangerousKeywords))
	for i, kw := range dangerousKeywords {
		res[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
	}
	return res
}

// preview truncates a value for inclusion in error text so abnormally long
// input is never echoed back in full.
func preview(s string) string {
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

func checkIdentifier(rule, s string, re *regexp.Regexp, maxLen int, allowed string) (string, error) {
	if s == "" {
		return "", errs.NewValidation(rule, "%s cannot be empty", rule)
	}
	if !re.MatchString(s) {
		return "", errs.NewValidation(rule, "invalid %s %q: only %s are allowed", rule, preview(s), allowed)
	}
	if len(s) > maxLen {
		return "", errs.NewValidation(rule, "%s too long: %d characters, maximum %d", rule, len(s), maxLen)
	}
	return s, nil
}

// StreamName validates a Periscope stream (table-like) identifier.
func StreamName(stream string) (string, error) {
	return checkIdentifier("stream name", stream, streamNameRe, MaxStreamNameLength,
		"alphanumeric characters, underscores and hyphens")
}

// ErrorCodePattern validates an error-code pattern for a SQL LIKE clause and
// doubles any literal single quote. The allow-list already excludes quotes;
// the escaping is kept as a second layer.
func ErrorCodePattern(pattern string) (string, error) {
	p, err := checkIdentifier("error code pattern", pattern, errorCodeRe, MaxErrorCodeLength,
		"digits and the '%' wildcard")
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(p, "'", "''"), nil
}

// Query validates a free-text KQL query against a fixed keyword denylist and
// a set of dangerous patterns.
//
// Known limitation: a denylist can neither catch every injection technique
// nor avoid rejecting legitimate text that contains a listed word at a word
// boundary. Structured query construction is the primary defense; this
// check is a secondary filter, not a security boundary.
func Query(query string) (string, error) {
	if query == "" {
		return "", errs.NewValidation("query", "query cannot be empty")
	}
	if len(query) > MaxQueryLength {
		return "", errs.NewValidation("query", "query too long: %d characters, maximum %d", len(query), MaxQueryLength)
	}

	lower := strings.ToLower(query)
	for i, re := range keywordRes {
		if re.MatchString(lower) {
			return "", errs.NewValidation("query", "dangerous keyword %q detected in query", dangerousKeywords[i])
		}
	}
	for _, re := range dangerousPatterns {
		if re.MatchString(query) {
			return "", errs.NewValidation("query", "dangerous pattern detected in query: %s", re.String())
		}
	}
	return query, nil
}

// SessionID validates a session identifier.
func SessionID(id string) (string, error) {
	return checkIdentifier("session ID", id, sessionIDRe, MaxSessionIDLength,
		"alphanumeric characters, underscores and hyphens")
}

// OrderID validates an order identifier.
func OrderID(id string) (string, error) {
	return checkIdentifier("order ID", id, orderIDRe, MaxOrderIDLength,
		"alphanumeric characters, underscores and hyphens")
}

// IndexPattern validates an Elasticsearch index pattern, wildcards included.
func IndexPattern(pattern string) (string, error) {
	return checkIdentifier("index pattern", pattern, indexPatternRe, MaxIndexPatternLength,
		"alphanumeric characters, hyphens, underscores, asterisks, dots and commas")
}

// FieldName validates an Elasticsearch field name.
func FieldName(name string) (string, error) {
	return checkIdentifier("field name", name, fieldNameRe, MaxFieldNameLength,
		"alphanumeric characters, underscores, hyphens, dots and '@'")
}

// TimeRange validates a relative time range like "24h" or "7d".
func TimeRange(timeRange string) (string, error) {
	if timeRange == "" {
		return "", errs.NewValidation("time range", "time range cannot be empty")
	}
	if !timeRangeRe.MatchString(timeRange) {
		return "", errs.NewValidation("time range",
			"invalid time range %q: expected number + unit (h, d, w, m), like '24h' or '7d'", preview(timeRange))
	}
	return timeRange, nil
}

var (
	passwordRe = regexp.MustCompile(`(?i)password\s*=\s*'[^']*'`)
	tokenRe    = regexp.MustCompile(`(?i)token\s*=\s*'[^']*'`)
)

// ForLogging truncates text and strips password/token-like substrings so
// queries and backend bodies can be logged safely.
func ForLogging(text string, maxLen int) string {
	if text == "" {
		return ""
	}
	if maxLen > 0 && len(text) > maxLen {
		text = text[:maxLen] + "... (truncated)"
	}
	text = passwordRe.ReplaceAllString(text, "password='***'")
	text = tokenRe.ReplaceAllString(text, "token='***'")
	return text
}

// MaskSecret keeps the first four characters of a secret for debugging.
func MaskSecret(s string) string {
	if len(s) > 4 {
		return s[:4] + "...REDACTED"
	}
	return "REDACTED"
}
