package cache

import (
	"strings"
	"time"
)

// DefaultExpiry matches the stock invalidateCacheAfterMinutes of one week.
const DefaultExpiry = 7 * 24 * time.Hour

// Policy decides whether a stored record may be reused.
type Policy struct {
	Enabled bool
	// ExpireAfter is the maximum age of a record. Zero disables expiry.
	ExpireAfter time.Duration
	// InvalidateOnChange compares entry fingerprints.
	InvalidateOnChange bool
}

// Valid applies the policy to a record.
func (p Policy) Valid(r *Record, hash string, now time.Time) bool {
	if !p.Enabled || r == nil {
		return false
	}
	if p.ExpireAfter > 0 {
		age := now.Unix() - r.Timestamp
		if age > int64(p.ExpireAfter/time.Second) {
			return false
		}
	}
	if p.InvalidateOnChange && !strings.EqualFold(r.Hash, hash) {
		return false
	}
	return true
}
