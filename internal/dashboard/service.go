package dashboard

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"activity-notes/internal/classify"
	"activity-notes/internal/db"
	"activity-notes/internal/logger"
	"activity-notes/internal/models"
	"activity-notes/internal/prefs"
)

// ReminderAfter is how long since the last note before the dashboard nudges
// the user to write another.
const ReminderAfter = 5 * 24 * time.Hour

// Store is the subset of *db.DB the service needs.
type Store interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	UpsertCategory(ctx context.Context, name string) (*models.Category, error)
	ReplacePreferences(ctx context.Context, userID, defaultCategory string, categoryIDs []string) error
	CreateNote(ctx context.Context, n *models.Note) error
	SelectedCategories(ctx context.Context, userID string) ([]string, error)
	ListNotes(ctx context.Context, userID string, categories []string) ([]models.Note, error)
	LastNoteAt(ctx context.Context, userID string) (*time.Time, error)
}

type NoteInput struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

type PreferencesInput struct {
	Categories      []string `json:"categories"`
	DefaultCategory string   `json:"defaultCategory"`
}

type Service struct {
	store       Store
	gen         classify.Generator
	allow       prefs.AllowList
	invalidator Invalidator
	now         func() time.Time
	log         *logger.Logger
}

func New(store Store, gen classify.Generator, allow prefs.AllowList, inv Invalidator, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if inv == nil {
		inv = Invalidators{}
	}
	return &Service{
		store:       store,
		gen:         gen,
		allow:       allow,
		invalidator: inv,
		now:         time.Now,
		log:         log.With("service", "DashboardService"),
	}
}

// WithClock replaces the clock used for the reminder decision.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) AllowList() prefs.AllowList {
	return s.allow
}

// SubmitNote validates the input, classifies it and stores a new note.
//
// The stored category is always the user's saved default category, not the
// one supplied in the input.
func (s *Service) SubmitNote(ctx context.Context, id models.Identity, in NoteInput) (*models.Note, error) {
	if id.UserID == "" {
		return nil, ErrUnauthenticated
	}

	title := strings.TrimSpace(in.Title)
	category := strings.TrimSpace(in.Category)
	description := strings.TrimSpace(in.Description)

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"title", title},
		{"category", category},
		{"description", description},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Fields: missing}
	}

	finalCategory := prefs.FallbackCategory
	user, err := s.store.GetUser(ctx, id.UserID)
	switch {
	case errors.Is(err, db.ErrNotFound):
	case err != nil:
		return nil, storageErr("get user", err)
	default:
		finalCategory = user.DefaultCategory
	}

	result, err := s.gen.Generate(ctx, classify.Input{
		Title:       title,
		Category:    finalCategory,
		Description: description,
	})
	if err != nil {
		return nil, err
	}

	note := &models.Note{
		UserID:      id.UserID,
		Title:       title,
		Category:    finalCategory,
		Description: description,
		Priority:    result.Priority,
		Summary:     result.Summary,
		Content:     result.Content,
	}
	if err := s.store.CreateNote(ctx, note); err != nil {
		return nil, storageErr("create note", err)
	}

	s.log.Info("Note created", "user_id", id.UserID, "note_id", note.ID, "priority", note.Priority)
	s.markStale(ctx, id.UserID)
	return note, nil
}

// SavePreferences normalizes the selection, ensures every chosen category
// exists and replaces the user's preferences in one transaction.
func (s *Service) SavePreferences(ctx context.Context, id models.Identity, in PreferencesInput) (prefs.Preferences, error) {
	if id.UserID == "" {
		return prefs.Preferences{}, ErrUnauthenticated
	}

	p := prefs.Normalize(in.Categories, in.DefaultCategory, s.allow)

	categoryIDs := make([]string, 0, len(p.Categories))
	for _, name := range p.Categories {
		c, err := s.store.UpsertCategory(ctx, name)
		if err != nil {
			return prefs.Preferences{}, storageErr("upsert category", err)
		}
		categoryIDs = append(categoryIDs, c.ID)
	}

	if err := s.store.ReplacePreferences(ctx, id.UserID, p.DefaultCategory, categoryIDs); err != nil {
		return prefs.Preferences{}, storageErr("replace preferences", err)
	}

	s.log.Info("Preferences saved", "user_id", id.UserID, "categories", p.Categories, "default_category", p.DefaultCategory)
	s.markStale(ctx, id.UserID)
	return p, nil
}

// Load assembles the dashboard for id: notes filtered by the selected
// categories, newest first, plus the reminder decision.
func (s *Service) Load(ctx context.Context, id models.Identity) (*models.Dashboard, error) {
	if id.UserID == "" {
		return nil, ErrUnauthenticated
	}

	d := &models.Dashboard{
		UserID:          id.UserID,
		Email:           id.Email,
		DefaultCategory: prefs.FallbackCategory,
	}

	g, gctx := errgroup.WithContext(ctx)
	var user *models.User
	g.Go(func() error {
		u, err := s.store.GetUser(gctx, id.UserID)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			return storageErr("get user", err)
		}
		user = u
		return nil
	})
	g.Go(func() error {
		selected, err := s.store.SelectedCategories(gctx, id.UserID)
		if err != nil {
			return storageErr("selected categories", err)
		}
		notes, err := s.store.ListNotes(gctx, id.UserID, selected)
		if err != nil {
			return storageErr("list notes", err)
		}
		d.SelectedCategories = selected
		d.Notes = notes
		return nil
	})
	g.Go(func() error {
		last, err := s.store.LastNoteAt(gctx, id.UserID)
		if err != nil {
			return storageErr("last note", err)
		}
		d.LastNoteAt = last
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if user != nil {
		d.DefaultCategory = user.DefaultCategory
		if d.Email == "" {
			d.Email = user.Email
		}
	}
	if d.SelectedCategories == nil {
		d.SelectedCategories = []string{}
	}
	if d.Notes == nil {
		d.Notes = []models.Note{}
	}
	d.ShowReminder = ShowReminder(d.LastNoteAt, s.now())
	return d, nil
}

// ShowReminder reports whether the user has never written a note or the last
// one is at least ReminderAfter old.
func ShowReminder(last *time.Time, now time.Time) bool {
	if last == nil {
		return true
	}
	return now.Sub(*last) >= ReminderAfter
}

func (s *Service) markStale(ctx context.Context, userID string) {
	if err := s.invalidator.MarkStale(ctx, userID); err != nil {
		s.log.Warn("Failed to mark dashboard stale", "user_id", userID, "error", err)
	}
}
