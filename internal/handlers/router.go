package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/dumasj/fastai-v3/internal/web"
)

const requestIDHeader = "X-Request-ID"

// NewRouter wires the public routes. metrics may be nil.
func NewRouter(h *Handler, metrics http.Handler, logger zerolog.Logger) http.Handler {
	r := mux.NewRouter()
	r.Use(hlog.AccessHandler(h.observeRequest))

	r.HandleFunc("/", h.Homepage).Methods(http.MethodGet)
	r.HandleFunc("/analyze", h.Analyze).Methods(http.MethodPost)
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods(http.MethodGet)
	}
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", web.Static()))

	chain := enableCORS(r)
	chain = hlog.AccessHandler(logAccess)(chain)
	chain = requestID(chain)
	return hlog.NewHandler(logger)(chain)
}

// enableCORS allows any origin and any request headers. Preflight requests
// are answered here so they never reach method-restricted routes.
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if requested := r.Header.Get("Access-Control-Request-Headers"); requested != "" {
			w.Header().Set("Access-Control-Allow-Headers", requested)
		} else {
			w.Header().Set("Access-Control-Allow-Headers", "*")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requestID reuses the caller's X-Request-ID or mints a UUID, echoes it back
// and adds it to the request logger installed by hlog.NewHandler.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("request_id", id)
		})
		next.ServeHTTP(w, r)
	})
}

func logAccess(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request served")
}

func (h *Handler) observeRequest(r *http.Request, status, _ int, _ time.Duration) {
	if h.observer == nil {
		return
	}

	route := r.URL.Path
	if cur := mux.CurrentRoute(r); cur != nil {
		if tmpl, err := cur.GetPathTemplate(); err == nil {
			route = tmpl
		}
	}
	h.observer.ObserveRequest(route, r.Method, status)
}
