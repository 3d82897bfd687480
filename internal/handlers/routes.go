package handlers

import (
	"net/http"
	"time"

	"activity-notes/internal/ssr"
)

func methodNotAllowed(w http.ResponseWriter) {
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}

// Routes builds the full HTTP surface. Identity is resolved on every route;
// the dashboard service itself rejects anonymous writes.
func (h *Handlers) Routes() http.Handler {
	a := h.auth
	mux := http.NewServeMux()

	mux.Handle("/static/", ssr.StaticHandler())

	// API routes
	mux.HandleFunc("/api/categories", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.GetCategories(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/notes", a.Middleware(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.CreateNote(w, r)
		} else {
			methodNotAllowed(w)
		}
	}, false))

	mux.HandleFunc("/api/preferences", a.Middleware(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.SavePreferences(w, r)
		} else {
			methodNotAllowed(w)
		}
	}, false))

	mux.HandleFunc("/api/dashboard", a.Middleware(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.GetDashboard(w, r)
		} else {
			methodNotAllowed(w)
		}
	}, false))

	mux.HandleFunc("/api/auth/check", a.Middleware(h.CheckAuth, false))
	mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.Logout(w, r)
		} else {
			methodNotAllowed(w)
		}
	})
	mux.HandleFunc("/auth/login", h.Login)

	// Pages
	mux.HandleFunc("/dashboard", a.Middleware(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.DashboardPage(w, r)
		} else {
			methodNotAllowed(w)
		}
	}, false))

	mux.HandleFunc("/dashboard/notes", a.Middleware(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.SubmitNoteForm(w, r)
		} else {
			methodNotAllowed(w)
		}
	}, false))

	mux.HandleFunc("/dashboard/preferences", a.Middleware(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.SavePreferencesForm(w, r)
		} else {
			methodNotAllowed(w)
		}
	}, false))

	mux.HandleFunc("/", h.Index)

	return h.logRequests(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handlers) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.log.Debug("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
