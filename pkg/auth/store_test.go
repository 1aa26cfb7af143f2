package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestStore(t *testing.T) (*Store, *time.Time) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	s := NewStore(zaptest.NewLogger(t))
	s.now = func() time.Time { return now }
	return s, &now
}

func TestSetAndGet(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.Set(ContextKibana, "secret", time.Hour))

	token, ok := s.Get(ContextKibana)
	require.True(t, ok)
	assert.Equal(t, "secret", token)

	_, ok = s.Get(ContextPeriscope)
	assert.False(t, ok)
}

func TestSetRejectsEmpty(t *testing.T) {
	s, _ := newTestStore(t)
	assert.Error(t, s.Set(ContextKibana, "", time.Hour))
	assert.Error(t, s.Set("", "secret", time.Hour))
}

func TestExpiry(t *testing.T) {
	s, now := newTestStore(t)
	require.NoError(t, s.Set(ContextKibana, "secret", time.Hour))

	// Still valid at the exact expiry instant.
	*now = now.Add(time.Hour)
	_, ok := s.Get(ContextKibana)
	assert.True(t, ok)

	*now = now.Add(time.Nanosecond)
	_, ok = s.Get(ContextKibana)
	assert.False(t, ok)
}

func TestNoTTLNeverExpires(t *testing.T) {
	s, now := newTestStore(t)
	require.NoError(t, s.Set(ContextKibana, "secret", 0))

	*now = now.Add(365 * 24 * time.Hour)
	assert.True(t, s.Has(ContextKibana))
}

func TestValidate(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Set(ContextKibana, "secret", 0))

	assert.True(t, s.Validate(ContextKibana, "secret"))
	assert.False(t, s.Validate(ContextKibana, "wrong"))
	assert.False(t, s.Validate(ContextPeriscope, "secret"))
}

func TestRotate(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Set(ContextKibana, "old", 0))
	require.NoError(t, s.Rotate(ContextKibana, "new", 0))

	token, ok := s.Get(ContextKibana)
	require.True(t, ok)
	assert.Equal(t, "new", token)
}

func TestRemove(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Set(ContextKibana, "secret", 0))

	assert.True(t, s.Remove(ContextKibana))
	assert.False(t, s.Remove(ContextKibana))
	assert.False(t, s.Has(ContextKibana))
}

func TestCleanupExpired(t *testing.T) {
	s, now := newTestStore(t)
	require.NoError(t, s.Set(ContextKibana, "short", time.Minute))
	require.NoError(t, s.Set(ContextPeriscope, "long", time.Hour))

	*now = now.Add(10 * time.Minute)
	assert.Equal(t, 1, s.CleanupExpired())
	assert.Equal(t, []string{ContextPeriscope}, s.Contexts())
}

func TestTimeUntilExpiry(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	forever := TokenRecord{}
	assert.Equal(t, time.Duration(-1), forever.TimeUntilExpiry(now))

	rec := TokenRecord{ExpiresAt: now.Add(time.Minute)}
	assert.Equal(t, time.Minute, rec.TimeUntilExpiry(now))
	assert.Equal(t, time.Duration(0), rec.TimeUntilExpiry(now.Add(2*time.Minute)))
}
