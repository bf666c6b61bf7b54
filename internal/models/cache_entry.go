package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidTTL is returned for expiring TTLs without a positive duration
var ErrInvalidTTL = errors.New("invalid ttl")

// TTLMode selects how a TTL value is interpreted
type TTLMode int

const (
	// TTLDefault defers to the cache manager's configured default
	TTLDefault TTLMode = iota
	// TTLExpiring entries are visible for Duration after they are written
	TTLExpiring
	// TTLForever entries stay until explicitly evicted
	TTLForever
	// TTLNoCache disables caching for the value
	TTLNoCache
)

// TTL represents cache time-to-live configuration. "Never expires" and
// "do not cache" are distinct modes and never inferred from a zero duration.
type TTL struct {
	Mode     TTLMode
	Duration time.Duration
}

var (
	// Forever keeps the entry until it is evicted
	Forever = TTL{Mode: TTLForever}
	// NoCache bypasses the cache
	NoCache = TTL{Mode: TTLNoCache}
)

// ExpireAfter returns an expiring TTL of d
func ExpireAfter(d time.Duration) TTL {
	return TTL{Mode: TTLExpiring, Duration: d}
}

// ParseTTL parses "forever", "none", "default" or a Go duration string
func ParseTTL(s string) (TTL, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return TTL{}, nil
	case "forever":
		return Forever, nil
	case "none":
		return NoCache, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return TTL{}, fmt.Errorf("%w: %q", ErrInvalidTTL, s)
	}
	ttl := ExpireAfter(d)
	if err := ttl.Validate(); err != nil {
		return TTL{}, err
	}
	return ttl, nil
}

// Validate rejects expiring TTLs with a non-positive duration
func (t TTL) Validate() error {
	if t.Mode == TTLExpiring && t.Duration <= 0 {
		return fmt.Errorf("%w: expiring ttl needs a positive duration, got %s", ErrInvalidTTL, t.Duration)
	}
	return nil
}

// Cacheable reports whether values with this TTL are stored at all
func (t TTL) Cacheable() bool {
	return t.Mode != TTLNoCache
}

// ExpiresAt returns the expiry instant for an entry written at now, zero for Forever
func (t TTL) ExpiresAt(now time.Time) time.Time {
	if t.Mode != TTLExpiring {
		return time.Time{}
	}
	return now.Add(t.Duration)
}

func (t TTL) String() string {
	switch t.Mode {
	case TTLForever:
		return "forever"
	case TTLNoCache:
		return "none"
	case TTLExpiring:
		return t.Duration.String()
	default:
		return "default"
	}
}

// UnmarshalYAML implements custom YAML unmarshaling for TTL
func (t *TTL) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}

	parsed, err := ParseTTL(str)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// UpdateMode decides whether Update restarts an entry's expiry window
type UpdateMode int

const (
	// KeepTTL replaces the value in place and keeps the original expiry
	KeepTTL UpdateMode = iota
	// ResetTTL replaces the value and restarts the expiry window
	ResetTTL
)

// CacheEntry is the serialized form of a cached value held by the stores.
// Timestamps are Unix nanoseconds; ExpiresAt of zero means the entry never expires.
type CacheEntry struct {
	Data      []byte `json:"data"`
	CreatedAt int64  `json:"created_at"`
	ExpiresAt int64  `json:"expires_at"`
	TTL       int64  `json:"ttl"`
}

// NewCacheEntry builds an entry written at now with the given lifetime
func NewCacheEntry(data []byte, now time.Time, ttl TTL) *CacheEntry {
	entry := &CacheEntry{
		Data:      data,
		CreatedAt: now.UnixNano(),
	}
	if exp := ttl.ExpiresAt(now); !exp.IsZero() {
		entry.ExpiresAt = exp.UnixNano()
		entry.TTL = int64(ttl.Duration)
	}
	return entry
}

// IsExpired reports whether the entry is no longer visible at now
func (e *CacheEntry) IsExpired(now time.Time) bool {
	if e.ExpiresAt == 0 {
		return false
	}
	return now.UnixNano() >= e.ExpiresAt
}

// Remaining returns the lifetime left at now; ok is false for entries that never expire
func (e *CacheEntry) Remaining(now time.Time) (d time.Duration, ok bool) {
	if e.ExpiresAt == 0 {
		return 0, false
	}
	return time.Duration(e.ExpiresAt - now.UnixNano()), true
}

// CacheLevel reports which store answered a lookup
type CacheLevel string

const (
	CacheLevelL1   CacheLevel = "L1"
	CacheLevelL2   CacheLevel = "L2"
	CacheLevelMiss CacheLevel = "MISS"
)
