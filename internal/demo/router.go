package demo

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yndnr/gridsession-go/internal/telemetry/logger"
	"github.com/yndnr/gridsession-go/internal/telemetry/metric"
	"github.com/yndnr/gridsession-go/pkg/sessionstore"
)

// Session data fields used by the handlers.
const (
	FieldViews = "views"
	FieldName  = "name"
	FieldEmail = "email"
)

// profileMap is the index of the map holding profile beans.
const profileMap = 1

// Config configures the demo router.
type Config struct {
	Store   *sessionstore.Store
	Cookie  CookieConfig
	Metrics *metric.Registry
	Logger  logger.Logger
}

// NewRouter returns the demo application handler.
func NewRouter(cfg Config) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metric.Global()
	}
	h := &handlers{store: cfg.Store, cookie: cfg.Cookie}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(Metrics(cfg.Metrics))
	r.Use(Trace)
	r.Use(RequestLogger(cfg.Logger))

	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(Sessions(cfg.Store, cfg.Cookie, cfg.Logger.Slog()))
		r.Get("/", h.views)
		r.Post("/profile", h.saveProfile)
		r.Get("/profile", h.profile)
		r.Post("/logout", h.logout)
	})
	return r
}

type handlers struct {
	store  *sessionstore.Store
	cookie CookieConfig
}

func (h *handlers) views(w http.ResponseWriter, r *http.Request) {
	st := FromContext(r.Context())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	n, ok := st.Get(FieldViews)
	if !ok {
		st.Set(FieldViews, 1)
		_, _ = fmt.Fprint(w, "welcome to the session demo. refresh!")
		return
	}
	views := toInt(n) + 1
	st.Set(FieldViews, views)

	_, _ = fmt.Fprintf(w, "<p>views: %d</p>", views)
	if age := st.Session.Cookie.MaxAge; age != nil {
		_, _ = fmt.Fprintf(w, "<p>expires in: %gs</p>", *age/1000)
	}
}

func (h *handlers) saveProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	name := r.PostForm.Get(FieldName)
	if name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	st := FromContext(r.Context())
	st.Set(FieldName, name)
	if email := r.PostForm.Get(FieldEmail); email != "" {
		st.Set(FieldEmail, email)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) profile(w http.ResponseWriter, r *http.Request) {
	if len(h.store.Config().Maps) <= profileMap {
		http.Error(w, "no profile map configured", http.StatusNotFound)
		return
	}
	st := FromContext(r.Context())
	bean, err := sessionstore.GetBean[map[string]any](r.Context(), h.store, st.ID, profileMap)
	if err != nil {
		logger.L(r.Context()).Error("profile read failed", "sid", st.ID, "error", err)
		http.Error(w, "profile unavailable", http.StatusServiceUnavailable)
		return
	}
	if bean == nil {
		http.Error(w, "no profile", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(*bean)
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	st := FromContext(r.Context())
	if err := st.Destroy(r.Context()); err != nil {
		logger.L(r.Context()).Error("session destroy failed", "sid", st.ID, "error", err)
		http.Error(w, "logout failed", http.StatusServiceUnavailable)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: h.cookie.Name, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

// toInt converts a decoded counter to int. The store codecs yield int64, and
// handlers may still hold the int they set during the request.
func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int8:
		return int(n)
	case int16:
		return int(n)
	case int32:
		return int(n)
	case int64:
		return int(n)
	case uint8:
		return int(n)
	case uint16:
		return int(n)
	case uint32:
		return int(n)
	case uint64:
		return int(n)
	case float32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
