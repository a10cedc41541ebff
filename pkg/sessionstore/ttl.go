package sessionstore

import (
	"math"
	"time"
)

// maxMillis is the largest millisecond count representable as a Duration.
const maxMillis = float64(math.MaxInt64 / int64(time.Millisecond))

// ComputeTTL returns the TTL for writing s under cfg. ok is false when TTLs
// are disabled and the entry must be written without expiry.
//
// Precedence: a positive store TTL, then the cookie max-age floored to whole
// milliseconds when it is finite and positive, then DefaultTTL. The store TTL
// wins even when the cookie says otherwise.
func ComputeTTL(cfg Config, s *Session) (ttl time.Duration, ok bool) {
	if cfg.DisableTTL {
		return 0, false
	}
	if cfg.TTL > 0 {
		ttl = cfg.TTL.Truncate(time.Millisecond)
		if ttl < time.Millisecond {
			ttl = time.Millisecond
		}
		return ttl, true
	}
	if s != nil && s.Cookie.MaxAge != nil {
		ms := math.Floor(*s.Cookie.MaxAge)
		if !math.IsNaN(ms) && !math.IsInf(ms, 0) && ms >= 1 {
			if ms > maxMillis {
				ms = maxMillis
			}
			return time.Duration(ms) * time.Millisecond, true
		}
	}
	return DefaultTTL, true
}
