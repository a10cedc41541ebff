package logger

import (
	"log/slog"
	"strings"
)

// Attribute keys carrying session ids. They are masked, not removed, so log
// lines can still be correlated.
var sessionIDKeys = map[string]struct{}{
	"sid":        {},
	"session_id": {},
	"session":    {},
	"sessionid":  {},
}

// Key fragments whose values are removed entirely.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"encryption_key",
	"credential",
	"dsn",
	"cookie",
	"authorization",
}

const redactedValue = "***REDACTED***"

// maskKeep is how many characters MaskID keeps at each end.
const maskKeep = 4

func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}

	if a.Value.Kind() != slog.KindString {
		return a
	}
	v := a.Value.String()
	if v == "" {
		return a
	}
	if IsSessionIDKey(a.Key) {
		return slog.String(a.Key, MaskID(v))
	}
	if IsSensitiveKey(a.Key) {
		return slog.String(a.Key, redactedValue)
	}
	return a
}

// MaskID keeps the first and last four characters of an identifier.
// Identifiers too short to mask meaningfully are replaced entirely.
func MaskID(id string) string {
	if len(id) <= 2*maskKeep+2 {
		return "***"
	}
	return id[:maskKeep] + "..." + id[len(id)-maskKeep:]
}

// IsSessionIDKey reports whether key names a session id.
func IsSessionIDKey(key string) bool {
	_, ok := sessionIDKeys[strings.ToLower(key)]
	return ok
}

// IsSensitiveKey reports whether key names a secret.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, p := range sensitiveKeyPatterns {
		if strings.Contains(k, p) {
			return true
		}
	}
	return false
}
