package handlers

import (
	"net/http"

	"activity-notes/internal/dashboard"
)

func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if err := h.ssr.RenderIndex(w); err != nil {
		h.log.Error("Failed to render index", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

func (h *Handlers) DashboardPage(w http.ResponseWriter, r *http.Request) {
	d, err := h.loadDashboard(r.Context(), identity(r))
	if err != nil {
		h.failPage(w, r, err)
		return
	}
	if err := h.ssr.RenderDashboard(w, d); err != nil {
		h.log.Error("Failed to render dashboard", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

// SubmitNoteForm handles the dashboard's note form and sends the browser back
// to the refreshed dashboard.
func (h *Handlers) SubmitNoteForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	_, err := h.svc.SubmitNote(r.Context(), identity(r), dashboard.NoteInput{
		Title:       r.PostForm.Get("title"),
		Category:    r.PostForm.Get("category"),
		Description: r.PostForm.Get("description"),
	})
	if err != nil {
		h.failPage(w, r, err)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *Handlers) SavePreferencesForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	_, err := h.svc.SavePreferences(r.Context(), identity(r), dashboard.PreferencesInput{
		Categories:      r.PostForm["categories"],
		DefaultCategory: r.PostForm.Get("defaultCategory"),
	})
	if err != nil {
		h.failPage(w, r, err)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *Handlers) failPage(w http.ResponseWriter, r *http.Request, err error) {
	status, _, msg := h.classify(err)
	if status == http.StatusUnauthorized {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	http.Error(w, msg, status)
}
