package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"studytrack/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'student',
		points INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS reminders (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		subject TEXT NOT NULL,
		deadline DATETIME NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_by INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE (title, subject, deadline),
		FOREIGN KEY (created_by) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS exams (
		id TEXT PRIMARY KEY,
		subject TEXT NOT NULL,
		exam_date DATETIME NOT NULL,
		exam_type TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_by INTEGER NOT NULL,
		uploader_name TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		UNIQUE (subject, exam_date, exam_type),
		FOREIGN KEY (created_by) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS reminder_completions (
		id TEXT PRIMARY KEY,
		reminder_id TEXT NOT NULL,
		user_id INTEGER NOT NULL,
		file_key TEXT NOT NULL DEFAULT '',
		completed_at DATETIME NOT NULL,
		UNIQUE (reminder_id, user_id),
		FOREIGN KEY (reminder_id) REFERENCES reminders(id),
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS groups (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_by INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (created_by) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS group_members (
		group_id TEXT NOT NULL,
		user_id INTEGER NOT NULL,
		joined_at DATETIME NOT NULL,
		UNIQUE (group_id, user_id),
		FOREIGN KEY (group_id) REFERENCES groups(id),
		FOREIGN KEY (user_id) REFERENCES users(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// IsUniqueViolation reports whether an error came from a UNIQUE constraint.
// modernc sqlite surfaces these only through the error text.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateReminder inserts a reminder, generating its ID if unset.
func (s *Store) CreateReminder(ctx context.Context, r model.Reminder) (model.Reminder, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt = time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders (id, title, subject, deadline, description, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Title, r.Subject, r.Deadline, r.Description, r.CreatedBy, r.CreatedAt,
	)
	if err != nil {
		return model.Reminder{}, err
	}
	return r, nil
}

// GetReminder returns a reminder by ID, or nil if not found.
func (s *Store) GetReminder(ctx context.Context, id string) (*model.Reminder, error) {
	var r model.Reminder
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, subject, deadline, description, created_by, created_at
		 FROM reminders WHERE id = ?`, id,
	).Scan(&r.ID, &r.Title, &r.Subject, &r.Deadline, &r.Description, &r.CreatedBy, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListReminders returns all reminders ordered by deadline.
// An empty subject means no subject filtering.
func (s *Store) ListReminders(ctx context.Context, subject string) ([]model.Reminder, error) {
	query := `SELECT id, title, subject, deadline, description, created_by, created_at
	          FROM reminders WHERE 1=1`
	var args []any
	if subject != "" {
		query += ` AND subject = ? COLLATE NOCASE`
		args = append(args, subject)
	}
	query += ` ORDER BY deadline`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReminders(rows)
}

// ListOpenReminders returns reminders whose deadline has not passed,
// ordered by deadline ascending.
func (s *Store) ListOpenReminders(ctx context.Context, now time.Time) ([]model.Reminder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, subject, deadline, description, created_by, created_at
		 FROM reminders WHERE deadline >= ? ORDER BY deadline`, now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReminders(rows)
}

// ListOpenRemindersByOwner returns a user's own open reminders.
func (s *Store) ListOpenRemindersByOwner(ctx context.Context, ownerID int64, now time.Time) ([]model.Reminder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, subject, deadline, description, created_by, created_at
		 FROM reminders WHERE created_by = ? AND deadline >= ? ORDER BY deadline`, ownerID, now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReminders(rows)
}

// UpdateReminder updates a reminder's mutable fields, scoped to its owner.
// Returns false when no row matched (missing or not owned by the caller).
func (s *Store) UpdateReminder(ctx context.Context, ownerID int64, r model.Reminder) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reminders SET title = ?, subject = ?, deadline = ?, description = ?
		 WHERE id = ? AND created_by = ?`,
		r.Title, r.Subject, r.Deadline, r.Description, r.ID, ownerID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteReminder deletes a single reminder owned by the caller.
// Returns false when no row matched.
func (s *Store) DeleteReminder(ctx context.Context, ownerID int64, id string) (bool, error) {
	n, err := s.DeleteRemindersByIDs(ctx, ownerID, []string{id})
	return n > 0, err
}

// DeleteRemindersByIDs deletes every reminder whose ID is in the set AND
// whose owner is the caller, returning how many rows were removed. Rows
// owned by other users are silently excluded.
func (s *Store) DeleteRemindersByIDs(ctx context.Context, ownerID int64, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `DELETE FROM reminders WHERE created_by = ? AND id IN (?` +
		strings.Repeat(",?", len(ids)-1) + `)`
	args := make([]any, 0, len(ids)+1)
	args = append(args, ownerID)
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func scanReminders(rows *sql.Rows) ([]model.Reminder, error) {
	var reminders []model.Reminder
	for rows.Next() {
		var r model.Reminder
		if err := rows.Scan(&r.ID, &r.Title, &r.Subject, &r.Deadline, &r.Description, &r.CreatedBy, &r.CreatedAt); err != nil {
			return nil, err
		}
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}
