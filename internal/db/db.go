package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"activity-notes/internal/logger"
	"activity-notes/internal/models"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"

	DefaultCategory = "General"
)

var ErrNotFound = errors.New("not found")

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

type DB struct {
	conn    *sql.DB
	dialect dialect
	log     *logger.Logger
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New opens the store and applies the schema. driver is "sqlite" or "pgx"
// ("postgres" is accepted as an alias).
func New(ctx context.Context, driver, dsn string, log *logger.Logger) (*DB, error) {
	if log == nil {
		log = logger.Nop()
	}
	d := &DB{log: log.With("service", "DB", "driver", driver)}

	switch driver {
	case DriverSQLite, "":
		driver = DriverSQLite
		d.dialect = dialectSQLite
		dsn = withSQLitePragmas(dsn)
	case DriverPostgres, "postgres":
		driver = DriverPostgres
		d.dialect = dialectPostgres
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if d.dialect == dialectSQLite {
		// One connection serializes writers and keeps transactions isolated.
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	d.conn = conn
	if err := d.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	d.log.Debug("Database ready")
	return d, nil
}

func withSQLitePragmas(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (d *DB) migrate(ctx context.Context) error {
	ts := "TIMESTAMP"
	if d.dialect == dialectPostgres {
		ts = "TIMESTAMPTZ"
	}
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			default_category TEXT NOT NULL DEFAULT 'General',
			created_at ` + ts + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			created_at ` + ts + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_categories (
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			category_id TEXT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
			PRIMARY KEY (user_id, category_id)
		)`,
		`CREATE TABLE IF NOT EXISTS notes (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			category TEXT NOT NULL,
			description TEXT NOT NULL,
			priority TEXT NOT NULL,
			summary TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at ` + ts + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS notes_user_created_idx ON notes (user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS auth_tokens (
			id TEXT PRIMARY KEY,
			token TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			used BOOLEAN NOT NULL DEFAULT FALSE,
			created_at ` + ts + ` NOT NULL,
			expires_at ` + ts + ` NOT NULL
		)`,
	}

	for _, q := range queries {
		if _, err := d.conn.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (d *DB) rebind(query string) string {
	if d.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// containsExpr is a case-sensitive substring test of column against one argument.
func (d *DB) containsExpr(column string) string {
	if d.dialect == dialectPostgres {
		return "strpos(" + column + ", ?) > 0"
	}
	return "instr(" + column + ", ?) > 0"
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Users
func (d *DB) EnsureUser(ctx context.Context, email string) (*models.User, error) {
	var id string
	err := d.conn.QueryRowContext(ctx, d.rebind(
		`INSERT INTO users (id, email, default_category, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET email = excluded.email
		RETURNING id`),
		newID(), email, DefaultCategory, now()).Scan(&id)
	if err != nil {
		return nil, err
	}
	return d.GetUser(ctx, id)
}

func (d *DB) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := d.conn.QueryRowContext(ctx, d.rebind(
		`SELECT id, email, default_category, created_at FROM users WHERE id = ?`), id).
		Scan(&u.ID, &u.Email, &u.DefaultCategory, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Categories
func (d *DB) GetCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT id, name, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// UpsertCategory returns the category named name, creating it if absent. It is
// a single statement against the unique index, so concurrent callers converge
// on the same row.
func (d *DB) UpsertCategory(ctx context.Context, name string) (*models.Category, error) {
	c := models.Category{Name: name}
	err := d.conn.QueryRowContext(ctx, d.rebind(
		`INSERT INTO categories (id, name, created_at) VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET name = excluded.name
		RETURNING id`),
		newID(), name, now()).Scan(&c.ID)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SelectedCategories returns the names of the categories linked to userID.
func (d *DB) SelectedCategories(ctx context.Context, userID string) ([]string, error) {
	rows, err := d.conn.QueryContext(ctx, d.rebind(
		`SELECT c.name FROM user_categories uc
		JOIN categories c ON c.id = uc.category_id
		WHERE uc.user_id = ?
		ORDER BY c.name`), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ReplacePreferences sets the user's default category and swaps their whole
// category set in one transaction. On any error nothing changes.
func (d *DB) ReplacePreferences(ctx context.Context, userID, defaultCategory string, categoryIDs []string) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, d.rebind(`UPDATE users SET default_category = ? WHERE id = ?`), defaultCategory, userID)
	if err != nil {
		return fmt.Errorf("update default category: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, d.rebind(`DELETE FROM user_categories WHERE user_id = ?`), userID); err != nil {
		return fmt.Errorf("delete user categories: %w", err)
	}

	if len(categoryIDs) > 0 {
		if err := d.insertUserCategories(ctx, tx, userID, categoryIDs); err != nil {
			return fmt.Errorf("insert user categories: %w", err)
		}
	}

	return tx.Commit()
}

func (d *DB) insertUserCategories(ctx context.Context, q querier, userID string, categoryIDs []string) error {
	values := make([]string, 0, len(categoryIDs))
	args := make([]any, 0, 2*len(categoryIDs))
	for _, id := range categoryIDs {
		values = append(values, "(?, ?)")
		args = append(args, userID, id)
	}
	_, err := q.ExecContext(ctx, d.rebind(
		`INSERT INTO user_categories (user_id, category_id) VALUES `+strings.Join(values, ", ")), args...)
	return err
}

// Notes
func (d *DB) CreateNote(ctx context.Context, n *models.Note) error {
	if n.ID == "" {
		n.ID = newID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now()
	}
	_, err := d.conn.ExecContext(ctx, d.rebind(
		`INSERT INTO notes (id, user_id, title, category, description, priority, summary, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		n.ID, n.UserID, n.Title, n.Category, n.Description, string(n.Priority), n.Summary, n.Content, n.CreatedAt)
	return err
}

// ListNotes returns the user's notes, newest first. When categories is not
// empty a note matches if its category contains any of the names.
func (d *DB) ListNotes(ctx context.Context, userID string, categories []string) ([]models.Note, error) {
	query := `SELECT id, user_id, title, category, description, priority, summary, content, created_at
		FROM notes WHERE user_id = ?`
	args := []any{userID}
	if len(categories) > 0 {
		conds := make([]string, 0, len(categories))
		for _, name := range categories {
			conds = append(conds, d.containsExpr("category"))
			args = append(args, name)
		}
		query += ` AND (` + strings.Join(conds, " OR ") + `)`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := d.conn.QueryContext(ctx, d.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []models.Note
	for rows.Next() {
		var n models.Note
		var priority string
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Category, &n.Description, &priority, &n.Summary, &n.Content, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Priority = models.Priority(priority)
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// LastNoteAt returns the creation time of the user's newest note, or nil.
func (d *DB) LastNoteAt(ctx context.Context, userID string) (*time.Time, error) {
	var t time.Time
	err := d.conn.QueryRowContext(ctx, d.rebind(
		`SELECT created_at FROM notes WHERE user_id = ? ORDER BY created_at DESC LIMIT 1`), userID).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Auth Tokens
func (d *DB) CreateAuthToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := d.conn.ExecContext(ctx, d.rebind(
		`INSERT INTO auth_tokens (id, token, user_id, used, created_at, expires_at) VALUES (?, ?, ?, FALSE, ?, ?)`),
		newID(), token, userID, now(), expiresAt.UTC())
	return err
}

func (d *DB) GetAuthToken(ctx context.Context, token string) (*models.AuthToken, error) {
	var t models.AuthToken
	err := d.conn.QueryRowContext(ctx, d.rebind(
		`SELECT id, token, user_id, used, created_at, expires_at FROM auth_tokens WHERE token = ?`), token).
		Scan(&t.ID, &t.Token, &t.UserID, &t.Used, &t.CreatedAt, &t.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// MarkTokenUsed flips the token to used and reports whether this call did it.
func (d *DB) MarkTokenUsed(ctx context.Context, token string) (bool, error) {
	res, err := d.conn.ExecContext(ctx, d.rebind(
		`UPDATE auth_tokens SET used = TRUE WHERE token = ? AND used = FALSE`), token)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
