package db

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activity-notes/internal/models"
)

// eachDriver runs fn against a fresh SQLite file and, when TEST_POSTGRES_DSN
// is set, against PostgreSQL.
func eachDriver(t *testing.T, fn func(t *testing.T, d *DB)) {
	t.Run("sqlite", func(t *testing.T) {
		fn(t, NewTestDB(t))
	})
	t.Run("postgres", func(t *testing.T) {
		dsn := os.Getenv("TEST_POSTGRES_DSN")
		if dsn == "" {
			t.Skip("set TEST_POSTGRES_DSN to run postgres integration tests")
		}
		d, err := New(context.Background(), DriverPostgres, dsn, nil)
		require.NoError(t, err)
		t.Cleanup(func() { d.Close() })
		fn(t, d)
	})
}

func uniqueEmail() string {
	return uuid.NewString() + "@example.com"
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), "oracle", "x", nil)
	assert.Error(t, err)
}

func TestMigrateIsRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.db")
	d, err := New(context.Background(), DriverSQLite, path, nil)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	d, err = New(context.Background(), DriverSQLite, path, nil)
	require.NoError(t, err)
	require.NoError(t, d.Close())
}

func TestRebind(t *testing.T) {
	pg := &DB{dialect: dialectPostgres}
	assert.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))
	lite := &DB{dialect: dialectSQLite}
	assert.Equal(t, "a = ? AND b = ?", lite.rebind("a = ? AND b = ?"))
}

func TestEnsureUser(t *testing.T) {
	eachDriver(t, func(t *testing.T, d *DB) {
		ctx := context.Background()
		email := uniqueEmail()

		u1, err := d.EnsureUser(ctx, email)
		require.NoError(t, err)
		assert.Equal(t, email, u1.Email)
		assert.Equal(t, "General", u1.DefaultCategory)

		u2, err := d.EnsureUser(ctx, email)
		require.NoError(t, err)
		assert.Equal(t, u1.ID, u2.ID)

		_, err = d.GetUser(ctx, uuid.NewString())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUpsertCategoryConcurrent(t *testing.T) {
	eachDriver(t, func(t *testing.T, d *DB) {
		ctx := context.Background()
		name := "Cat-" + uuid.NewString()

		const workers = 8
		ids := make([]string, workers)
		errs := make([]error, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				c, err := d.UpsertCategory(ctx, name)
				errs[i] = err
				if c != nil {
					ids[i] = c.ID
				}
			}(i)
		}
		wg.Wait()

		for i := range errs {
			require.NoError(t, errs[i])
			assert.Equal(t, ids[0], ids[i])
		}

		all, err := d.GetCategories(ctx)
		require.NoError(t, err)
		count := 0
		for _, c := range all {
			if c.Name == name {
				count++
			}
		}
		assert.Equal(t, 1, count)
	})
}

func TestReplacePreferences(t *testing.T) {
	eachDriver(t, func(t *testing.T, d *DB) {
		ctx := context.Background()
		u, err := d.EnsureUser(ctx, uniqueEmail())
		require.NoError(t, err)

		work, err := d.UpsertCategory(ctx, "Work")
		require.NoError(t, err)
		travel, err := d.UpsertCategory(ctx, "Travel")
		require.NoError(t, err)

		require.NoError(t, d.ReplacePreferences(ctx, u.ID, "Health", []string{work.ID, travel.ID}))
		names, err := d.SelectedCategories(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"Travel", "Work"}, names)

		require.NoError(t, d.ReplacePreferences(ctx, u.ID, "Work", []string{work.ID}))
		names, err = d.SelectedCategories(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"Work"}, names)

		require.NoError(t, d.ReplacePreferences(ctx, u.ID, "Personal", nil))
		names, err = d.SelectedCategories(ctx, u.ID)
		require.NoError(t, err)
		assert.Empty(t, names)

		got, err := d.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "Personal", got.DefaultCategory)
	})
}

func TestReplacePreferencesRollsBackOnInsertFailure(t *testing.T) {
	eachDriver(t, func(t *testing.T, d *DB) {
		ctx := context.Background()
		u, err := d.EnsureUser(ctx, uniqueEmail())
		require.NoError(t, err)
		work, err := d.UpsertCategory(ctx, "Work")
		require.NoError(t, err)
		require.NoError(t, d.ReplacePreferences(ctx, u.ID, "Health", []string{work.ID}))

		// The unknown category id violates the foreign key on the final insert.
		err = d.ReplacePreferences(ctx, u.ID, "Travel", []string{work.ID, uuid.NewString()})
		require.Error(t, err)

		names, err := d.SelectedCategories(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"Work"}, names)
		got, err := d.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "Health", got.DefaultCategory)
	})
}

func TestReplacePreferencesUnknownUser(t *testing.T) {
	eachDriver(t, func(t *testing.T, d *DB) {
		err := d.ReplacePreferences(context.Background(), uuid.NewString(), "Work", nil)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestListNotesFilterAndOrder(t *testing.T) {
	eachDriver(t, func(t *testing.T, d *DB) {
		ctx := context.Background()
		u, err := d.EnsureUser(ctx, uniqueEmail())
		require.NoError(t, err)
		other, err := d.EnsureUser(ctx, uniqueEmail())
		require.NoError(t, err)

		base := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)
		mk := func(userID, title, category string, offset time.Duration) {
			require.NoError(t, d.CreateNote(ctx, &models.Note{
				UserID: userID, Title: title, Category: category, Description: "d",
				Priority: models.PriorityLow, Summary: "s", Content: "c",
				CreatedAt: base.Add(offset),
			}))
		}
		mk(u.ID, "projects", "Work/Projects", 1*time.Minute)
		mk(u.ID, "health", "Health", 2*time.Minute)
		mk(u.ID, "work", "Work", 3*time.Minute)
		mk(u.ID, "lower", "work", 4*time.Minute)
		mk(other.ID, "foreign", "Work", 5*time.Minute)

		all, err := d.ListNotes(ctx, u.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"lower", "work", "health", "projects"}, titles(all))

		filtered, err := d.ListNotes(ctx, u.ID, []string{"Work"})
		require.NoError(t, err)
		assert.Equal(t, []string{"work", "projects"}, titles(filtered))

		either, err := d.ListNotes(ctx, u.ID, []string{"Health", "Projects"})
		require.NoError(t, err)
		assert.Equal(t, []string{"health", "projects"}, titles(either))

		last, err := d.LastNoteAt(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.True(t, last.Equal(base.Add(4*time.Minute)), "got %v", last)
	})
}

func TestLastNoteAtNone(t *testing.T) {
	eachDriver(t, func(t *testing.T, d *DB) {
		u, err := d.EnsureUser(context.Background(), uniqueEmail())
		require.NoError(t, err)
		last, err := d.LastNoteAt(context.Background(), u.ID)
		require.NoError(t, err)
		assert.Nil(t, last)
	})
}

func TestAuthTokens(t *testing.T) {
	eachDriver(t, func(t *testing.T, d *DB) {
		ctx := context.Background()
		u, err := d.EnsureUser(ctx, uniqueEmail())
		require.NoError(t, err)

		token := uuid.NewString()
		expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
		require.NoError(t, d.CreateAuthToken(ctx, u.ID, token, expires))

		got, err := d.GetAuthToken(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.UserID)
		assert.False(t, got.Used)
		assert.True(t, got.ExpiresAt.Equal(expires))

		ok, err := d.MarkTokenUsed(ctx, token)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = d.MarkTokenUsed(ctx, token)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = d.GetAuthToken(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func titles(notes []models.Note) []string {
	out := make([]string, 0, len(notes))
	for _, n := range notes {
		out = append(out, n.Title)
	}
	return out
}
