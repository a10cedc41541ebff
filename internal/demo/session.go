package demo

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yndnr/gridsession-go/internal/telemetry/logger"
	"github.com/yndnr/gridsession-go/pkg/sessionstore"
)

// CookieConfig configures the session cookie.
type CookieConfig struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

// State is the request-scoped view of a session.
type State struct {
	ID      string
	Session *sessionstore.Session

	mu        sync.Mutex
	fresh     bool
	saved     bool
	modified  bool
	destroyed bool
	store     sessionstore.SessionStore
}

// Get returns a data field.
func (s *State) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Session.Value(key)
}

// Set changes a data field and marks the session for a full write.
func (s *State) Set(key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Session.SetValue(key, v)
	s.modified = true
}

// IsNew reports whether the session was created by this request.
func (s *State) IsNew() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fresh
}

// Destroy removes the session from the store. Nothing is written back
// afterwards.
func (s *State) Destroy(ctx context.Context) error {
	s.mu.Lock()
	s.destroyed = true
	s.mu.Unlock()
	return s.store.Destroy(ctx, s.ID)
}

type stateKey struct{}

// FromContext returns the session of the request, or nil outside Sessions.
func FromContext(ctx context.Context) *State {
	st, _ := ctx.Value(stateKey{}).(*State)
	return st
}

// Sessions returns middleware that binds a session to every request.
//
// The session is written back before the handler's first WriteHeader, Write
// or Flush. A failed write replaces the response with a 503. Changes made
// after the response has started are written once more when the handler
// returns.
func Sessions(store sessionstore.SessionStore, cookie CookieConfig, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "sessions")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			st, err := load(ctx, store, cookie, r)
			if err != nil {
				log.Error("session load failed", "error", err)
				http.Error(w, "session store unavailable", http.StatusServiceUnavailable)
				return
			}

			if st.fresh {
				http.SetCookie(w, &http.Cookie{
					Name:     cookie.Name,
					Value:    st.ID,
					Path:     "/",
					MaxAge:   int(cookie.MaxAge.Seconds()),
					HttpOnly: true,
					Secure:   cookie.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			sw := &savingWriter{ResponseWriter: w, save: func() error { return st.save(ctx) }}
			next.ServeHTTP(sw, r.WithContext(context.WithValue(ctx, stateKey{}, st)))

			sw.commit()
			if sw.err != nil {
				log.Error("session save failed", "sid", st.ID, "error", sw.err)
				return
			}
			if err := st.save(ctx); err != nil {
				log.Error("late session save failed", "sid", st.ID, "error", err)
			}
		})
	}
}

// save writes the session back: Set when it is new or changed since the last
// save, Touch when it is untouched, nothing once destroyed.
func (s *State) save(ctx context.Context) error {
	s.mu.Lock()
	destroyed := s.destroyed
	changed := s.modified || (s.fresh && !s.saved)
	touch := !s.saved
	s.modified = false
	s.saved = true
	s.mu.Unlock()

	switch {
	case destroyed:
		return nil
	case changed:
		return s.store.Set(ctx, s.ID, s.Session)
	case touch:
		return s.store.Touch(ctx, s.ID, s.Session)
	default:
		return nil
	}
}

var errSessionNotSaved = errors.New("session not saved; response replaced")

// savingWriter saves the session before any part of the response is sent.
type savingWriter struct {
	http.ResponseWriter
	save      func() error
	committed bool
	err       error
}

func (w *savingWriter) commit() {
	if w.committed {
		return
	}
	w.committed = true
	if w.err = w.save(); w.err != nil {
		w.Header().Del("Set-Cookie")
		http.Error(w.ResponseWriter, "session store unavailable", http.StatusServiceUnavailable)
	}
}

func (w *savingWriter) WriteHeader(code int) {
	w.commit()
	if w.err != nil {
		return
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *savingWriter) Write(b []byte) (int, error) {
	w.commit()
	if w.err != nil {
		return 0, errSessionNotSaved
	}
	return w.ResponseWriter.Write(b)
}

func (w *savingWriter) Flush() {
	w.commit()
	if w.err != nil {
		return
	}
	_ = http.NewResponseController(w.ResponseWriter).Flush()
}

func (w *savingWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func load(ctx context.Context, store sessionstore.SessionStore, cookie CookieConfig, r *http.Request) (*State, error) {
	if c, err := r.Cookie(cookie.Name); err == nil && c.Value != "" {
		sess, err := store.Get(ctx, c.Value)
		if err != nil {
			return nil, err
		}
		if sess != nil {
			if sess.Data == nil {
				sess.Data = make(map[string]any)
			}
			return &State{ID: c.Value, Session: sess, store: store}, nil
		}
		logger.L(ctx).Debug("session cookie names unknown session", "sid", c.Value)
	}

	sess := sessionstore.NewSession(cookie.MaxAge)
	sess.Cookie.Path = "/"
	sess.Cookie.HTTPOnly = true
	sess.Cookie.Secure = cookie.Secure
	return &State{ID: uuid.NewString(), Session: sess, fresh: true, store: store}, nil
}
