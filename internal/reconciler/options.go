package reconciler

import (
	"time"

	"github.com/mamamialezatoz/go-techstack/internal/detection"
	"github.com/mamamialezatoz/go-techstack/internal/store"
)

// DefaultCompleteAfter is the bounded wait after which a record with a single
// contributing source is considered complete
const DefaultCompleteAfter = 3 * time.Second

// Config contains reconciler settings
type Config struct {
	// CompleteAfter is measured from record creation
	CompleteAfter time.Duration
	// Store receives every record mutation
	Store store.Store
	// Badge receives the detection count per tab
	Badge BadgeSink
	// Matcher scores header evidence
	Matcher *detection.Matcher
	// Now is the clock, replaceable in tests
	Now func() time.Time
}

// Option configures a Reconciler
type Option func(*Config)

// WithCompleteAfter sets the bounded completion wait
func WithCompleteAfter(d time.Duration) Option {
	return func(c *Config) {
		c.CompleteAfter = d
	}
}

// WithStore sets the persistence backend
func WithStore(s store.Store) Option {
	return func(c *Config) {
		c.Store = s
	}
}

// WithBadgeSink sets the badge receiver
func WithBadgeSink(b BadgeSink) Option {
	return func(c *Config) {
		c.Badge = b
	}
}

// WithMatcher sets the matcher used for header evidence
func WithMatcher(m *detection.Matcher) Option {
	return func(c *Config) {
		c.Matcher = m
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		c.Now = now
	}
}
