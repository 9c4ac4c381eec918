package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"studytrack/internal/model"
)

// CreateExam inserts an exam, generating its ID if unset.
// The exam type is normalized into the closed enum before it is stored.
func (s *Store) CreateExam(ctx context.Context, e model.Exam) (model.Exam, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.ExamType = model.NormalizeExamType(string(e.ExamType))
	e.CreatedAt = time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exams (id, subject, exam_date, exam_type, description, created_by, uploader_name, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Subject, e.ExamDate, e.ExamType, e.Description, e.CreatedBy, e.UploaderName, e.CreatedAt,
	)
	if err != nil {
		return model.Exam{}, err
	}
	return e, nil
}

// GetExam returns an exam by ID, or nil if not found.
func (s *Store) GetExam(ctx context.Context, id string) (*model.Exam, error) {
	var e model.Exam
	err := s.db.QueryRowContext(ctx,
		`SELECT id, subject, exam_date, exam_type, description, created_by, uploader_name, created_at
		 FROM exams WHERE id = ?`, id,
	).Scan(&e.ID, &e.Subject, &e.ExamDate, &e.ExamType, &e.Description, &e.CreatedBy, &e.UploaderName, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListExams returns all exams ordered by exam date.
func (s *Store) ListExams(ctx context.Context) ([]model.Exam, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, subject, exam_date, exam_type, description, created_by, uploader_name, created_at
		 FROM exams ORDER BY exam_date`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanExams(rows)
}

// ListOpenExams returns exams whose date has not passed, ordered by date.
func (s *Store) ListOpenExams(ctx context.Context, now time.Time) ([]model.Exam, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, subject, exam_date, exam_type, description, created_by, uploader_name, created_at
		 FROM exams WHERE exam_date >= ? ORDER BY exam_date`, now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanExams(rows)
}

// ListOpenExamsByOwner returns a user's own open exams.
func (s *Store) ListOpenExamsByOwner(ctx context.Context, ownerID int64, now time.Time) ([]model.Exam, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, subject, exam_date, exam_type, description, created_by, uploader_name, created_at
		 FROM exams WHERE created_by = ? AND exam_date >= ? ORDER BY exam_date`, ownerID, now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanExams(rows)
}

// DeleteExam deletes a single exam owned by the caller.
func (s *Store) DeleteExam(ctx context.Context, ownerID int64, id string) (bool, error) {
	n, err := s.DeleteExamsByIDs(ctx, ownerID, []string{id})
	return n > 0, err
}

// DeleteExamsByIDs deletes every exam in the ID set owned by the caller,
// returning the number of rows removed. Foreign rows are silently excluded.
func (s *Store) DeleteExamsByIDs(ctx context.Context, ownerID int64, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `DELETE FROM exams WHERE created_by = ? AND id IN (?` +
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

func scanExams(rows *sql.Rows) ([]model.Exam, error) {
	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(&e.ID, &e.Subject, &e.ExamDate, &e.ExamType, &e.Description, &e.CreatedBy, &e.UploaderName, &e.CreatedAt); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}
