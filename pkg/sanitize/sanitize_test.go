package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bascanada/loggate/pkg/errs"
)

func TestStreamName(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"ziox", true},
		{"app_logs-prod", true},
		{"", false},
		{`logs"; DROP TABLE x`, false},
		{"logs with spaces", false},
		{strings.Repeat("a", MaxStreamNameLength + 1), false},
	}
	for _, tc := range cases {
		out, err := StreamName(tc.in)
		if tc.ok {
			require.NoError(t, err, tc.in)
			assert.Equal(t, tc.in, out)
		} else {
			assert.Error(t, err, tc.in)
		}
	}
}

func TestErrorCodePattern(t *testing.T) {
	out, err := ErrorCodePattern("5%")
	require.NoError(t, err)
	assert.Equal(t, "5%", out)

	_, err = ErrorCodePattern("5' OR '1'='1")
	assert.Error(t, err)

	_, err = ErrorCodePattern("abc")
	assert.Error(t, err)
}

func TestQuery(t *testing.T) {
	valid := []string{
		"order-123 AND payment",
		"level:ERROR AND service:checkout",
		"message was dropped by the filter", // "dropped" contains but is not "drop"
		"\"callStartPayment\"",
	}
	for _, q := range valid {
		out, err := Query(q)
		require.NoError(t, err, q)
		assert.Equal(t, q, out)
	}

	invalid := []string{
		"",
		"x; DROP TABLE logs",
		"foo UNION select_all",
		"<script>alert(1)</script>",
		"javascript:alert(1)",
		"onload=alert(1)",
		"eval(payload)",
		"../../etc/passwd",
		strings.Repeat("a", MaxQueryLength + 1),
	}
	for _, q := range invalid {
		_, err := Query(q)
		assert.Error(t, err, q)
	}
}

func TestQueryErrorIsValidation(t *testing.T) {
	_, err := Query("drop everything")
	var valErr *errs.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "query", valErr.Rule)
}

func TestIdentifiers(t *testing.T) {
	_, err := OrderID("ORDER_12345")
	assert.NoError(t, err)
	_, err = OrderID("order id")
	assert.Error(t, err)

	_, err = SessionID("f00-bar_123")
	assert.NoError(t, err)
	_, err = SessionID("123|456")
	assert.Error(t, err)

	_, err = IndexPattern("breeze-v2*")
	assert.NoError(t, err)
	_, err = IndexPattern("logs-*,metrics-*")
	assert.NoError(t, err)
	_, err = IndexPattern("logs/*")
	assert.Error(t, err)

	_, err = FieldName("@timestamp")
	assert.NoError(t, err)
	_, err = FieldName("context.session.id")
	assert.NoError(t, err)
	_, err = FieldName("field name")
	assert.Error(t, err)
}

func TestTimeRange(t *testing.T) {
	for _, ok := range []string{"24h", "7d", "1w", "3m"} {
		_, err := TimeRange(ok)
		assert.NoError(t, err, ok)
	}
	for _, bad := range []string{"", "24", "h", "24x", "1.5h", "-2h"} {
		_, err := TimeRange(bad)
		assert.Error(t, err, bad)
	}
}

func TestForLogging(t *testing.T) {
	assert.Equal(t, "", ForLogging("", 100))

	long := strings.Repeat("x", 50)
	out := ForLogging(long, 10)
	assert.Equal(t, "xxxxxxxxxx... (truncated)", out)

	out = ForLogging("SELECT * WHERE password='hunter2' AND token='abc'", 0)
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "password='***'")
	assert.Contains(t, out, "token='***'")
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "abcd...REDACTED", MaskSecret("abcdefgh"))
	assert.Equal(t, "REDACTED", MaskSecret("abc"))
	assert.Equal(t, "REDACTED", MaskSecret(""))
}
