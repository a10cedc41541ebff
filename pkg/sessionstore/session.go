package sessionstore

import "time"

// Session is the value persisted for one session id.
//
// The store interprets only Cookie.MaxAge (see ComputeTTL). Everything else
// is carried as-is, and is available to KeyFunc and BeanFunc.
//
// Data values come back from the grid in their schema-less form. Integers of
// any Go integer type read back as int64 under both built-in codecs. Under
// JSON, an integral float64 also reads back as int64, since the encoding does
// not distinguish it from an integer. Non-integral floats read back as
// float64, and structs read back as map[string]any.
type Session struct {
	Cookie Cookie         `json:"cookie"`
	Data   map[string]any `json:"data,omitempty"`
}

// Cookie mirrors the session cookie attributes owned by the HTTP layer.
type Cookie struct {
	Path     string `json:"path,omitempty"`
	Domain   string `json:"domain,omitempty"`
	HTTPOnly bool   `json:"httpOnly,omitempty"`
	Secure   bool   `json:"secure,omitempty"`
	SameSite string `json:"sameSite,omitempty"`

	// MaxAge is the cookie lifetime in milliseconds. Nil means a browser
	// session cookie.
	MaxAge  *float64   `json:"maxAge,omitempty"`
	Expires *time.Time `json:"expires,omitempty"`
}

// NewSession returns a session whose cookie lives for maxAge. A non-positive
// maxAge leaves MaxAge unset.
func NewSession(maxAge time.Duration) *Session {
	s := &Session{Data: make(map[string]any)}
	if maxAge > 0 {
		ms := float64(maxAge.Milliseconds())
		s.Cookie.MaxAge = &ms
	}
	return s
}

// Value returns a data field.
func (s *Session) Value(key string) (any, bool) {
	if s == nil || s.Data == nil {
		return nil, false
	}
	v, ok := s.Data[key]
	return v, ok
}

// SetValue sets a data field, allocating Data on first use.
func (s *Session) SetValue(key string, v any) {
	if s.Data == nil {
		s.Data = make(map[string]any)
	}
	s.Data[key] = v
}
