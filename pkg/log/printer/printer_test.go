// SPDX-License-Identifier: GPL-3.0-only
package printer

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bascanada/loggate/pkg/log/client"
	"github.com/bascanada/loggate/pkg/ty"
)

func TestInitColorStateExplicit(t *testing.T) {
	enabled := false
	InitColorState(&enabled, &bytes.Buffer{})
	assert.True(t, color.NoColor)

	enabled = true
	InitColorState(&enabled, &bytes.Buffer{})
	assert.False(t, color.NoColor)
}

func TestInitColorStateUnknownWriter(t *testing.T) {
	InitColorState(nil, &bytes.Buffer{})
	assert.True(t, color.NoColor)
}

func TestPrintText(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	p := New(&buf, Options{})

	err := p.Print([]client.LogRecord{
		{
			Timestamp: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
			Level:     "error",
			Message:   "payment failed",
		},
		{Message: "no level defaults to info"},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "2024-03-01T10:00:00Z ERROR payment failed")
	assert.Contains(t, out, "INFO  no level defaults to info")
}

func TestPrintFields(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	p := New(&buf, Options{ShowFields: true})

	err := p.Print([]client.LogRecord{{
		Message: "checkout",
		Fields:  ty.MI{"service": "payments", "order": "42"},
	}})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "order=42")
	assert.Contains(t, out, "service=payments")
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, Options{JSON: true})

	require.NoError(t, p.Print([]client.LogRecord{{Message: "hello"}}))
	assert.Contains(t, buf.String(), `"message": "hello"`)
}
