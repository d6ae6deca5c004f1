package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Clients  *ClientHandler
	Sessions *SessionHandler
	// Auth guards every route but /healthz. Nil leaves them open.
	Auth       func(http.Handler) http.Handler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	protected := http.NewServeMux()

	if cfg.Clients != nil {
		protected.HandleFunc("/clients", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Clients.List(w, r)
			case http.MethodPost:
				cfg.Clients.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		protected.HandleFunc("/clients/{clientID}", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Clients.Get(w, r)
			case http.MethodDelete:
				cfg.Clients.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodDelete)
			}
		})
		protected.HandleFunc("/clients/{clientID}/weights", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Clients.ListWeights(w, r)
			case http.MethodPost:
				cfg.Clients.AddWeight(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
	}

	if cfg.Sessions != nil {
		protected.HandleFunc("/clients/{clientID}/sessions", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Sessions.List(w, r)
			case http.MethodPost:
				cfg.Sessions.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		protected.HandleFunc("/clients/{clientID}/sessions/batch", only(http.MethodPost, cfg.Sessions.CreateBatch))
		protected.HandleFunc("/clients/{clientID}/week", only(http.MethodGet, cfg.Sessions.Week))
		protected.HandleFunc("/clients/{clientID}/calendar.ics", only(http.MethodGet, cfg.Sessions.Calendar))
		protected.HandleFunc("/sessions/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPatch:
				cfg.Sessions.Update(w, r)
			case http.MethodDelete:
				cfg.Sessions.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodPatch, http.MethodDelete)
			}
		})
		protected.HandleFunc("/sessions/{sessionID}/duplicate", only(http.MethodPost, cfg.Sessions.Duplicate))
	}

	var guarded http.Handler = protected
	if cfg.Auth != nil {
		guarded = cfg.Auth(protected)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", only(http.MethodGet, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}))
	mux.Handle("/", guarded)

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}
	return handler
}

func only(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			methodNotAllowed(w, method)
			return
		}
		next(w, r)
	}
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
