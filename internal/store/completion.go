package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"studytrack/internal/model"
)

const completionPoints = 10

// CompleteReminder records that a user finished a reminder, upserting on the
// (reminder, user) pair. The first completion awards points; repeat calls
// (e.g. re-uploading a file) do not. Returns the completion row.
func (s *Store) CompleteReminder(ctx context.Context, reminderID string, userID int64, fileKey string) (model.Completion, error) {
	existing, err := s.GetCompletion(ctx, reminderID, userID)
	if err != nil {
		return model.Completion{}, err
	}

	c := model.Completion{
		ID:          uuid.NewString(),
		ReminderID:  reminderID,
		UserID:      userID,
		FileKey:     fileKey,
		CompletedAt: time.Now(),
	}
	if existing != nil {
		c.ID = existing.ID
		c.CompletedAt = existing.CompletedAt
		if fileKey == "" {
			c.FileKey = existing.FileKey
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Completion{}, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reminder_completions (id, reminder_id, user_id, file_key, completed_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(reminder_id, user_id) DO UPDATE SET file_key = ?`,
		c.ID, c.ReminderID, c.UserID, c.FileKey, c.CompletedAt, c.FileKey,
	)
	if err != nil {
		return model.Completion{}, err
	}

	if existing == nil {
		_, err = tx.ExecContext(ctx,
			`UPDATE users SET points = points + ? WHERE id = ?`, completionPoints, userID)
		if err != nil {
			return model.Completion{}, err
		}
	}

	return c, tx.Commit()
}

// GetCompletion returns the completion for a (reminder, user) pair, or nil.
func (s *Store) GetCompletion(ctx context.Context, reminderID string, userID int64) (*model.Completion, error) {
	var c model.Completion
	err := s.db.QueryRowContext(ctx,
		`SELECT id, reminder_id, user_id, file_key, completed_at
		 FROM reminder_completions WHERE reminder_id = ? AND user_id = ?`,
		reminderID, userID,
	).Scan(&c.ID, &c.ReminderID, &c.UserID, &c.FileKey, &c.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CompletionCount returns how many users completed a reminder.
func (s *Store) CompletionCount(ctx context.Context, reminderID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reminder_completions WHERE reminder_id = ?`, reminderID,
	).Scan(&count)
	return count, err
}

// ListReminderViews returns reminders decorated with completion counts and
// whether the given user has completed each one.
func (s *Store) ListReminderViews(ctx context.Context, userID int64, subject string) ([]model.ReminderView, error) {
	reminders, err := s.ListReminders(ctx, subject)
	if err != nil {
		return nil, err
	}
	views := make([]model.ReminderView, 0, len(reminders))
	for _, r := range reminders {
		count, err := s.CompletionCount(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		own, err := s.GetCompletion(ctx, r.ID, userID)
		if err != nil {
			return nil, err
		}
		views = append(views, model.ReminderView{
			Reminder:    r,
			Completions: count,
			IsCompleted: own != nil,
		})
	}
	return views, nil
}
