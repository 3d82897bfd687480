package models

import "time"

type Priority string

const (
	PriorityHigh   Priority = "High Priority"
	PriorityMedium Priority = "Medium Priority"
	PriorityLow    Priority = "Low Priority"
)

// Identity is the signed-in principal a request acts for. A zero UserID means
// the request is unauthenticated.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

type User struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	DefaultCategory string    `json:"default_category"`
	CreatedAt       time.Time `json:"created_at"`
}

type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type UserCategory struct {
	UserID     string `json:"user_id"`
	CategoryID string `json:"category_id"`
}

type Note struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Priority    Priority  `json:"priority"`
	Summary     string    `json:"summary"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

type AuthToken struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Dashboard is the per-user read model rendered on the dashboard page.
type Dashboard struct {
	UserID             string     `json:"user_id"`
	Email              string     `json:"email"`
	DefaultCategory    string     `json:"default_category"`
	SelectedCategories []string   `json:"selected_categories"`
	Notes              []Note     `json:"notes"`
	ShowReminder       bool       `json:"show_reminder"`
	LastNoteAt         *time.Time `json:"last_note_at,omitempty"`
}
