// Package auth holds the per-context credentials used to authenticate
// outbound calls to the log backends. One store instance is shared by the
// whole process; every other component receives it by reference.
package auth

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bascanada/loggate/pkg/errs"
)

// Credential context names for the two backends.
const (
	ContextKibana    = "kibana"
	ContextPeriscope = "periscope"
)

// TokenRecord is the stored credential for one context. A Set for a context
// fully replaces the prior record.
type TokenRecord struct {
	Value     string
	Context   string
	ExpiresAt time.Time // zero = never expires
	CreatedAt time.Time
}

func (r TokenRecord) expired(now time.Time) bool {
	if r.ExpiresAt.IsZero() {
		return false
	}
	// Strictly greater: a token is still valid at the exact expiry instant.
	return now.After(r.ExpiresAt)
}

// TimeUntilExpiry returns the remaining lifetime, or -1 for a token that
// never expires.
func (r TokenRecord) TimeUntilExpiry(now time.Time) time.Duration {
	if r.ExpiresAt.IsZero() {
		return -1
	}
	if d := r.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Store is a thread-safe, multi-context token store. Expired records are
// purged lazily on read.
type Store struct {
	mu     sync.Mutex
	tokens map[string]TokenRecord
	logger *zap.Logger
	now    func() time.Time
}

// NewStore creates an empty token store.
func NewStore(logger *zap.Logger) *Store {
	return &Store{
		tokens: map[string]TokenRecord{},
		logger: logger.Named("auth"),
		now:    time.Now,
	}
}

// Set stores or replaces the credential for context. ttl <= 0 means the
// token never expires.
func (s *Store) Set(context, token string, ttl time.Duration) error {
	if token == "" {
		return &errs.InvalidArgumentError{Message: "token cannot be empty"}
	}
	if context == "" {
		return &errs.InvalidArgumentError{Message: "token context cannot be empty"}
	}

	now := s.now()
	rec := TokenRecord{Value: token, Context: context, CreatedAt: now}
	if ttl > 0 {
		rec.ExpiresAt = now.Add(ttl)
	}

	s.mu.Lock()
	s.tokens[context] = rec
	s.mu.Unlock()

	if ttl > 0 {
		s.logger.Info("token set", zap.String("context", context), zap.Duration("ttl", ttl))
	} else {
		s.logger.Info("token set", zap.String("context", context), zap.String("ttl", "never expires"))
	}
	return nil
}

// Get returns the live credential for context, or false when none was set
// or the stored one has expired. An expired record is removed as a side
// effect of the read.
func (s *Store) Get(context string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tokens[context]
	if !ok {
		return "", false
	}
	if rec.expired(s.now()) {
		delete(s.tokens, context)
		s.logger.Warn("token expired, removed", zap.String("context", context))
		return "", false
	}
	return rec.Value, true
}

// Validate reports whether a live token for context equals candidate.
func (s *Store) Validate(context, candidate string) bool {
	stored, ok := s.Get(context)
	return ok && stored == candidate
}

// Rotate replaces the credential for context. Same semantics as Set, logged
// separately for audit purposes.
func (s *Store) Rotate(context, newToken string, ttl time.Duration) error {
	s.logger.Info("rotating token", zap.String("context", context))
	return s.Set(context, newToken, ttl)
}

// Remove deletes the context's record if present, reporting whether
// anything was deleted.
func (s *Store) Remove(context string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[context]; !ok {
		return false
	}
	delete(s.tokens, context)
	s.logger.Info("token removed", zap.String("context", context))
	return true
}

// CleanupExpired purges every expired record and returns the count removed.
// Intended to run periodically outside the request path.
func (s *Store) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for context, rec := range s.tokens {
		if rec.expired(now) {
			delete(s.tokens, context)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("cleaned up expired tokens", zap.Int("count", removed))
	}
	return removed
}

// Has reports whether a live token exists for context.
func (s *Store) Has(context string) bool {
	_, ok := s.Get(context)
	return ok
}

// Contexts lists every context currently holding a record, expired or not.
func (s *Store) Contexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.tokens))
	for context := range s.tokens {
		out = append(out, context)
	}
	return out
}
