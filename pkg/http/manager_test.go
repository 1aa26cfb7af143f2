package http

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCoerceBool(t *testing.T) {
	assert.True(t, CoerceBool("true", false))
	assert.True(t, CoerceBool("1", false))
	assert.True(t, CoerceBool("YES", false))
	assert.False(t, CoerceBool("false", true))
	assert.False(t, CoerceBool("0", true))
	assert.False(t, CoerceBool("no", true))
	assert.True(t, CoerceBool("whatever", true))
	assert.False(t, CoerceBool("", false))
}

func TestClientTimeoutOverride(t *testing.T) {
	m := NewConnectionManager(true, 30*time.Second)

	c := m.Client(ClientOptions{})
	assert.Equal(t, 30*time.Second, c.Timeout)

	c = m.Client(ClientOptions{Timeout: 2 * time.Minute})
	assert.Equal(t, 2*time.Minute, c.Timeout)
}

func TestClientInsecureTransportShared(t *testing.T) {
	m := NewConnectionManager(true, 30*time.Second)

	insecure := false
	a := m.Client(ClientOptions{VerifyTLS: &insecure})
	b := m.Client(ClientOptions{VerifyTLS: &insecure})
	assert.Same(t, a.Transport, b.Transport)
}
