package store

import (
	"context"
	"time"

	"studytrack/internal/model"
)

// GetStats returns the dashboard aggregates for one user: open reminders,
// how many of them the user has completed, and upcoming exams.
func (s *Store) GetStats(ctx context.Context, userID int64, now time.Time) (model.Stats, error) {
	var st model.Stats

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reminders WHERE deadline >= ?`, now,
	).Scan(&st.PendingReminders)
	if err != nil {
		return st, err
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reminder_completions WHERE user_id = ?`, userID,
	).Scan(&st.CompletedReminders)
	if err != nil {
		return st, err
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM exams WHERE exam_date >= ?`, now,
	).Scan(&st.UpcomingExams)
	return st, err
}

// ListSubjects returns the distinct subjects used across reminders and
// exams, alphabetically.
func (s *Store) ListSubjects(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT subject FROM reminders UNION SELECT subject FROM exams ORDER BY subject`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subjects []string
	for rows.Next() {
		var subj string
		if err := rows.Scan(&subj); err != nil {
			return nil, err
		}
		subjects = append(subjects, subj)
	}
	return subjects, rows.Err()
}
