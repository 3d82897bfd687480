package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"activity-notes/internal/auth"
	"activity-notes/internal/cache"
	"activity-notes/internal/dashboard"
	"activity-notes/internal/logger"
	"activity-notes/internal/models"
	"activity-notes/internal/ssr"
)

type Handlers struct {
	svc   *dashboard.Service
	cache *cache.Cache
	auth  *auth.Auth
	ssr   *ssr.SSR
	log   *logger.Logger
}

func New(svc *dashboard.Service, c *cache.Cache, a *auth.Auth, s *ssr.SSR, log *logger.Logger) *Handlers {
	if log == nil {
		log = logger.Nop()
	}
	return &Handlers{
		svc:   svc,
		cache: c,
		auth:  a,
		ssr:   s,
		log:   log.With("service", "Handlers"),
	}
}

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

func (h *Handlers) respond(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func (h *Handlers) error(w http.ResponseWriter, message, code string, status int) {
	h.respond(w, errorEnvelope{Error: apiError{Message: message, Code: code}}, status)
}

// classify maps a service error to a status, a code and a client-safe message.
func (h *Handlers) classify(err error) (int, string, string) {
	var verr *dashboard.ValidationError
	var serr *dashboard.StorageError
	switch {
	case errors.Is(err, dashboard.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated", "Not authenticated"
	case errors.As(err, &verr):
		return http.StatusBadRequest, "validation_error", verr.Error()
	case errors.As(err, &serr):
		h.log.Error("Storage failure", "op", serr.Op, "error", serr.Err)
		return http.StatusInternalServerError, "storage_error", "Failed to save changes"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "cancelled", "Request cancelled"
	default:
		h.log.Error("Unexpected failure", "error", err)
		return http.StatusInternalServerError, "internal_error", "Internal error"
	}
}

func (h *Handlers) fail(w http.ResponseWriter, err error) {
	status, code, msg := h.classify(err)
	h.error(w, msg, code, status)
}

func identity(r *http.Request) models.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}

// loadDashboard serves from the view cache and fills it on a miss. The fill
// is dropped when a write invalidated the user while the view was loading.
func (h *Handlers) loadDashboard(ctx context.Context, id models.Identity) (*models.Dashboard, error) {
	if id.UserID != "" {
		if d, ok := h.cache.Get(id.UserID); ok {
			return d, nil
		}
	}
	gen := h.cache.Generation(id.UserID)
	d, err := h.svc.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	h.cache.Set(id.UserID, gen, d)
	return d, nil
}

// Categories
func (h *Handlers) GetCategories(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.svc.AllowList().Names(), http.StatusOK)
}

// Notes
func (h *Handlers) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req dashboard.NoteInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.error(w, "Invalid request body", "bad_request", http.StatusBadRequest)
		return
	}

	note, err := h.svc.SubmitNote(r.Context(), identity(r), req)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.respond(w, note, http.StatusCreated)
}

// Preferences
func (h *Handlers) SavePreferences(w http.ResponseWriter, r *http.Request) {
	var req dashboard.PreferencesInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.error(w, "Invalid request body", "bad_request", http.StatusBadRequest)
		return
	}

	p, err := h.svc.SavePreferences(r.Context(), identity(r), req)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.respond(w, p, http.StatusOK)
}

// Dashboard
func (h *Handlers) GetDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.loadDashboard(r.Context(), identity(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, d, http.StatusOK)
}

// Auth
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		h.error(w, "Token is required", "bad_request", http.StatusBadRequest)
		return
	}

	jwt, err := h.auth.ValidateLoginToken(r.Context(), token)
	switch {
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrTokenExpired), errors.Is(err, auth.ErrTokenUsed):
		h.error(w, err.Error(), "unauthenticated", http.StatusUnauthorized)
		return
	case err != nil:
		h.log.Error("Login failed", "error", err)
		h.error(w, "Login failed", "internal_error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    jwt,
		Path:     "/",
		MaxAge:   int(auth.SessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (h *Handlers) CheckAuth(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	h.respond(w, map[string]interface{}{"authenticated": ok, "email": id.Email}, http.StatusOK)
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	h.respond(w, map[string]string{"status": "ok"}, http.StatusOK)
}
