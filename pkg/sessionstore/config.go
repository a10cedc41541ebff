package sessionstore

import (
	"fmt"
	"time"
)

const (
	// DefaultTTL is the write TTL when nothing more specific applies.
	DefaultTTL = 24 * time.Hour

	// DefaultMapName is the primary map used when no maps are configured.
	DefaultMapName = "Sessions"

	// CookieTTL, used as Config.TTL, disables the store-level TTL so that
	// each write takes its TTL from the session cookie's max-age.
	CookieTTL time.Duration = -1
)

// KeyFunc derives the storage key of a session in one map.
type KeyFunc func(sid string, s *Session) (string, error)

// BeanFunc projects a session into the value stored in one map.
type BeanFunc func(s *Session) (any, error)

// MapDescriptor names a grid map and how sessions are written to it.
type MapDescriptor struct {
	Name string

	// Key overrides the storage key. Nil means the session id. Not allowed
	// on the primary map.
	Key KeyFunc

	// Bean overrides the stored value. Nil means the session itself.
	Bean BeanFunc
}

// Config configures a Store. Zero fields take their defaults in MergeConfig.
type Config struct {
	// TTL is the store-level write TTL. Zero means DefaultTTL; CookieTTL
	// defers to the session cookie.
	TTL time.Duration

	// DisableTTL writes entries without expiry.
	DisableTTL bool

	// Maps lists the backing maps; the first is primary.
	Maps []MapDescriptor

	// Codec encodes stored values. Nil means JSON.
	Codec Codec
}

// DefaultConfig returns a fresh copy of the defaults.
func DefaultConfig() Config {
	return Config{
		TTL:   DefaultTTL,
		Maps:  []MapDescriptor{{Name: DefaultMapName}},
		Codec: JSONCodec{},
	}
}

// MergeConfig overlays the non-zero fields of cfg onto the defaults. The
// result shares no slices with cfg.
func MergeConfig(cfg Config) Config {
	out := DefaultConfig()
	if cfg.TTL != 0 {
		out.TTL = cfg.TTL
	}
	out.DisableTTL = cfg.DisableTTL
	if len(cfg.Maps) > 0 {
		out.Maps = append([]MapDescriptor(nil), cfg.Maps...)
	}
	if cfg.Codec != nil {
		out.Codec = cfg.Codec
	}
	return out
}

// Validate checks a merged configuration.
func (c Config) Validate() error {
	if len(c.Maps) == 0 {
		return ErrInvalidConfig.WithDetails("no maps configured")
	}
	if c.TTL < 0 && c.TTL != CookieTTL {
		return ErrInvalidConfig.WithDetails("negative ttl %s", c.TTL)
	}
	seen := make(map[string]int, len(c.Maps))
	for i, m := range c.Maps {
		if m.Name == "" {
			return ErrInvalidConfig.WithDetails("map %d has no name", i)
		}
		if j, dup := seen[m.Name]; dup {
			return ErrInvalidConfig.WithDetails("map %q configured at %d and %d", m.Name, j, i)
		}
		seen[m.Name] = i
	}
	if c.Maps[0].Key != nil {
		return ErrInvalidConfig.WithDetails("primary map %q cannot have a key function", c.Maps[0].Name)
	}
	return nil
}

// MapNames returns the configured map names in order.
func (c Config) MapNames() []string {
	names := make([]string, len(c.Maps))
	for i, m := range c.Maps {
		names[i] = m.Name
	}
	return names
}

func (m MapDescriptor) String() string {
	return fmt.Sprintf("map(%s)", m.Name)
}
