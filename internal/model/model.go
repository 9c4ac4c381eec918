package model

import (
	"context"
	"strings"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent is a regular student user.
	UserRoleStudent UserRole = "student"
	// UserRoleAdmin is an admin user.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	Points       int       `json:"points"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// ExamType is the closed set of exam categories.
type ExamType string

const (
	ExamInternalTest ExamType = "Internal Test"
	ExamViva         ExamType = "Viva"
	ExamMidSem       ExamType = "Mid-Sem"
	ExamFinal        ExamType = "Final"
)

var examTypes = map[ExamType]bool{
	ExamInternalTest: true,
	ExamViva:         true,
	ExamMidSem:       true,
	ExamFinal:        true,
}

// NormalizeExamType coerces an arbitrary string into the closed exam type
// set. Matching is case- and whitespace-insensitive; anything unrecognized
// becomes Internal Test so an out-of-enum value never reaches the database.
func NormalizeExamType(s string) ExamType {
	trimmed := strings.TrimSpace(s)
	if examTypes[ExamType(trimmed)] {
		return ExamType(trimmed)
	}
	switch strings.ToLower(trimmed) {
	case "internal test", "internal", "test":
		return ExamInternalTest
	case "viva":
		return ExamViva
	case "mid-sem", "midsem", "mid sem", "mid-semester", "midterm":
		return ExamMidSem
	case "final", "finals", "final exam":
		return ExamFinal
	default:
		return ExamInternalTest
	}
}

// Reminder is an assignment/homework record with a deadline.
type Reminder struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Subject     string    `json:"subject"`
	Deadline    time.Time `json:"deadline"`
	Description string    `json:"description,omitempty"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// Exam is a scheduled test record.
type Exam struct {
	ID           string    `json:"id"`
	Subject      string    `json:"subject"`
	ExamDate     time.Time `json:"exam_date"`
	ExamType     ExamType  `json:"exam_type"`
	Description  string    `json:"description,omitempty"`
	CreatedBy    int64     `json:"created_by"`
	UploaderName string    `json:"uploader_name"`
	CreatedAt    time.Time `json:"created_at"`
}

// Completion marks a reminder as done by one user, optionally with an
// uploaded file. At most one completion exists per (reminder, user) pair.
type Completion struct {
	ID          string    `json:"id"`
	ReminderID  string    `json:"reminder_id"`
	UserID      int64     `json:"user_id"`
	FileKey     string    `json:"file_key,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// ReminderView combines a reminder with its completion state for listing.
type ReminderView struct {
	Reminder
	Completions int  `json:"completions"`
	IsCompleted bool `json:"is_completed"`
}

// Group is a study group.
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	Members   int       `json:"members,omitempty"`
}

// Stats holds the aggregate counts shown on the dashboard.
type Stats struct {
	PendingReminders   int `json:"pending_reminders"`
	CompletedReminders int `json:"completed_reminders"`
	UpcomingExams      int `json:"upcoming_exams"`
}

// TurnRole is a conversation message role.
type TurnRole string

const (
	TurnUser      TurnRole = "user"
	TurnAssistant TurnRole = "assistant"
)

// Turn is one message in the assistant conversation. The full sequence is
// passed back on every request so the model has continuity across commands.
type Turn struct {
	Role    TurnRole `json:"role"`
	Content string   `json:"content"`
}

// ServerConfig holds runtime parameters set via CLI flags.
type ServerConfig struct {
	Addr          string
	UploadDir     string
	SecureCookies bool
	HistoryLimit  int // max conversation turns kept per assistant session
}
