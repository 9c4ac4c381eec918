package store

import (
	"context"
	"testing"
	"time"

	"studytrack/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insertTestUser(t *testing.T, s *Store, username string) int64 {
	t.Helper()
	id, err := s.CreateUser(model.User{
		Username:     username,
		DisplayName:  username,
		PasswordHash: "x",
		Role:         model.UserRoleStudent,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("insertTestUser: %v", err)
	}
	return id
}

func insertTestReminder(t *testing.T, s *Store, owner int64, title, subject string, deadline time.Time) model.Reminder {
	t.Helper()
	r, err := s.CreateReminder(context.Background(), model.Reminder{
		Title:     title,
		Subject:   subject,
		Deadline:  deadline,
		CreatedBy: owner,
	})
	if err != nil {
		t.Fatalf("insertTestReminder: %v", err)
	}
	return r
}

func TestReminderCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := insertTestUser(t, s, "alice")
	due := time.Now().Add(48 * time.Hour)

	r := insertTestReminder(t, s, owner, "Maths HW", "Maths", due)
	if r.ID == "" {
		t.Fatal("expected generated ID")
	}

	got, err := s.GetReminder(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetReminder: %v", err)
	}
	if got == nil || got.Title != "Maths HW" {
		t.Fatalf("unexpected reminder: %+v", got)
	}

	// Not found returns nil, nil.
	missing, err := s.GetReminder(ctx, "no-such-id")
	if err != nil {
		t.Fatalf("GetReminder missing: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing reminder, got %+v", missing)
	}

	// Update by owner succeeds; by someone else does not.
	r.Title = "Maths HW v2"
	ok, err := s.UpdateReminder(ctx, owner, r)
	if err != nil || !ok {
		t.Fatalf("UpdateReminder: ok=%v err=%v", ok, err)
	}
	ok, err = s.UpdateReminder(ctx, owner+1, r)
	if err != nil {
		t.Fatalf("UpdateReminder foreign: %v", err)
	}
	if ok {
		t.Error("update by non-owner should not match any row")
	}

	got, _ = s.GetReminder(ctx, r.ID)
	if got.Title != "Maths HW v2" {
		t.Errorf("expected updated title, got %q", got.Title)
	}
}

func TestReminderUniqueConstraint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := insertTestUser(t, s, "alice")
	due := time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC)

	insertTestReminder(t, s, owner, "Maths HW", "Maths", due)
	_, err := s.CreateReminder(ctx, model.Reminder{
		Title: "Maths HW", Subject: "Maths", Deadline: due, CreatedBy: owner,
	})
	if err == nil {
		t.Fatal("expected unique violation")
	}
	if !IsUniqueViolation(err) {
		t.Errorf("IsUniqueViolation(%v) = false, want true", err)
	}
}

func TestListOpenReminders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := insertTestUser(t, s, "alice")
	other := insertTestUser(t, s, "bob")
	now := time.Now()

	insertTestReminder(t, s, owner, "Past", "History", now.Add(-24*time.Hour))
	insertTestReminder(t, s, owner, "Soon", "Maths", now.Add(24*time.Hour))
	insertTestReminder(t, s, other, "Later", "Physics", now.Add(72*time.Hour))

	open, err := s.ListOpenReminders(ctx, now)
	if err != nil {
		t.Fatalf("ListOpenReminders: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("expected 2 open reminders, got %d", len(open))
	}
	// Ordered by deadline ascending.
	if open[0].Title != "Soon" || open[1].Title != "Later" {
		t.Errorf("unexpected order: %q, %q", open[0].Title, open[1].Title)
	}

	mine, err := s.ListOpenRemindersByOwner(ctx, owner, now)
	if err != nil {
		t.Fatalf("ListOpenRemindersByOwner: %v", err)
	}
	if len(mine) != 1 || mine[0].Title != "Soon" {
		t.Errorf("expected only owner's open reminder, got %+v", mine)
	}
}

func TestDeleteRemindersByIDsOwnership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := insertTestUser(t, s, "alice")
	bob := insertTestUser(t, s, "bob")
	due := time.Now().Add(24 * time.Hour)

	r1 := insertTestReminder(t, s, alice, "Maths HW 1", "Maths", due)
	r2 := insertTestReminder(t, s, alice, "Maths HW 2", "Maths", due.Add(time.Hour))
	r3 := insertTestReminder(t, s, bob, "Physics HW", "Physics", due)

	// Alice deletes her two plus Bob's ID: Bob's row must survive.
	n, err := s.DeleteRemindersByIDs(ctx, alice, []string{r1.ID, r2.ID, r3.ID})
	if err != nil {
		t.Fatalf("DeleteRemindersByIDs: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 deleted, got %d", n)
	}

	left, _ := s.GetReminder(ctx, r3.ID)
	if left == nil {
		t.Error("foreign-owned reminder should not have been deleted")
	}

	// Deleting only foreign IDs removes nothing and reports zero.
	n, err = s.DeleteRemindersByIDs(ctx, alice, []string{r3.ID})
	if err != nil {
		t.Fatalf("DeleteRemindersByIDs foreign: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 deleted, got %d", n)
	}

	// Empty ID set is a no-op.
	n, err = s.DeleteRemindersByIDs(ctx, alice, nil)
	if err != nil || n != 0 {
		t.Errorf("empty set: n=%d err=%v", n, err)
	}
}

func TestExamCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := insertTestUser(t, s, "alice")
	date := time.Now().Add(96 * time.Hour)

	e, err := s.CreateExam(ctx, model.Exam{
		Subject:      "Java",
		ExamDate:     date,
		ExamType:     "viva", // lowercase on purpose
		CreatedBy:    owner,
		UploaderName: "alice",
	})
	if err != nil {
		t.Fatalf("CreateExam: %v", err)
	}
	if e.ExamType != model.ExamViva {
		t.Errorf("expected normalized exam type Viva, got %q", e.ExamType)
	}

	// Out-of-enum type falls back to Internal Test.
	e2, err := s.CreateExam(ctx, model.Exam{
		Subject:   "Physics",
		ExamDate:  date,
		ExamType:  "pop quiz",
		CreatedBy: owner,
	})
	if err != nil {
		t.Fatalf("CreateExam fallback: %v", err)
	}
	if e2.ExamType != model.ExamInternalTest {
		t.Errorf("expected Internal Test fallback, got %q", e2.ExamType)
	}

	// Duplicate (subject, date, type) violates the unique constraint.
	_, err = s.CreateExam(ctx, model.Exam{
		Subject: "Java", ExamDate: date, ExamType: model.ExamViva, CreatedBy: owner,
	})
	if !IsUniqueViolation(err) {
		t.Errorf("expected unique violation, got %v", err)
	}

	exams, err := s.ListExams(ctx)
	if err != nil {
		t.Fatalf("ListExams: %v", err)
	}
	if len(exams) != 2 {
		t.Fatalf("expected 2 exams, got %d", len(exams))
	}

	ok, err := s.DeleteExam(ctx, owner, e.ID)
	if err != nil || !ok {
		t.Fatalf("DeleteExam: ok=%v err=%v", ok, err)
	}
	gone, _ := s.GetExam(ctx, e.ID)
	if gone != nil {
		t.Error("exam should be deleted")
	}
}

func TestCompletionUpsertAndPoints(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := insertTestUser(t, s, "alice")
	r := insertTestReminder(t, s, owner, "Maths HW", "Maths", time.Now().Add(24*time.Hour))

	c, err := s.CompleteReminder(ctx, r.ID, owner, "")
	if err != nil {
		t.Fatalf("CompleteReminder: %v", err)
	}
	if c.FileKey != "" {
		t.Errorf("expected empty file key, got %q", c.FileKey)
	}

	u, _ := s.GetUserByID(owner)
	if u.Points != 10 {
		t.Errorf("expected 10 points after first completion, got %d", u.Points)
	}

	// Second call attaches a file but awards no further points.
	c2, err := s.CompleteReminder(ctx, r.ID, owner, "1/file.pdf")
	if err != nil {
		t.Fatalf("CompleteReminder upsert: %v", err)
	}
	if c2.ID != c.ID {
		t.Errorf("upsert should keep the completion row, got new ID")
	}
	if c2.FileKey != "1/file.pdf" {
		t.Errorf("expected file key set, got %q", c2.FileKey)
	}

	u, _ = s.GetUserByID(owner)
	if u.Points != 10 {
		t.Errorf("expected points unchanged at 10, got %d", u.Points)
	}

	count, err := s.CompletionCount(ctx, r.ID)
	if err != nil {
		t.Fatalf("CompletionCount: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 completion, got %d", count)
	}
}

func TestListReminderViews(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := insertTestUser(t, s, "alice")
	bob := insertTestUser(t, s, "bob")
	r := insertTestReminder(t, s, alice, "Maths HW", "Maths", time.Now().Add(24*time.Hour))
	insertTestReminder(t, s, alice, "Essay", "English", time.Now().Add(48*time.Hour))

	if _, err := s.CompleteReminder(ctx, r.ID, bob, ""); err != nil {
		t.Fatalf("CompleteReminder: %v", err)
	}

	views, err := s.ListReminderViews(ctx, bob, "")
	if err != nil {
		t.Fatalf("ListReminderViews: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 views, got %d", len(views))
	}
	if !views[0].IsCompleted || views[0].Completions != 1 {
		t.Errorf("expected first reminder completed by bob: %+v", views[0])
	}
	if views[1].IsCompleted {
		t.Errorf("second reminder should not be completed")
	}

	// Subject filter is case-insensitive.
	maths, err := s.ListReminderViews(ctx, bob, "maths")
	if err != nil {
		t.Fatalf("ListReminderViews filtered: %v", err)
	}
	if len(maths) != 1 || maths[0].Subject != "Maths" {
		t.Errorf("expected only the Maths reminder, got %+v", maths)
	}
}

func TestGroupsAndLeaderboard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := insertTestUser(t, s, "alice")
	bob := insertTestUser(t, s, "bob")

	g, err := s.CreateGroup(ctx, "CS 2026", alice)
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if g.Members != 1 {
		t.Errorf("creator should be a member, got %d", g.Members)
	}

	if err := s.JoinGroup(ctx, g.ID, bob); err != nil {
		t.Fatalf("JoinGroup: %v", err)
	}
	// Joining twice is a no-op.
	if err := s.JoinGroup(ctx, g.ID, bob); err != nil {
		t.Fatalf("JoinGroup repeat: %v", err)
	}

	got, _ := s.GetGroup(ctx, g.ID)
	if got.Members != 2 {
		t.Errorf("expected 2 members, got %d", got.Members)
	}

	if err := s.LeaveGroup(ctx, g.ID, bob); err != nil {
		t.Fatalf("LeaveGroup: %v", err)
	}
	got, _ = s.GetGroup(ctx, g.ID)
	if got.Members != 1 {
		t.Errorf("expected 1 member after leave, got %d", got.Members)
	}

	// Leaderboard orders by points.
	r := insertTestReminder(t, s, alice, "HW", "Maths", time.Now().Add(time.Hour))
	if _, err := s.CompleteReminder(ctx, r.ID, bob, ""); err != nil {
		t.Fatalf("CompleteReminder: %v", err)
	}
	board, err := s.Leaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(board) != 2 || board[0].Username != "bob" {
		t.Errorf("expected bob on top, got %+v", board)
	}
}

func TestGetStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := insertTestUser(t, s, "alice")
	now := time.Now()

	insertTestReminder(t, s, alice, "Past", "History", now.Add(-24*time.Hour))
	open := insertTestReminder(t, s, alice, "Open", "Maths", now.Add(24*time.Hour))
	if _, err := s.CompleteReminder(ctx, open.ID, alice, ""); err != nil {
		t.Fatalf("CompleteReminder: %v", err)
	}
	if _, err := s.CreateExam(ctx, model.Exam{
		Subject: "Java", ExamDate: now.Add(48 * time.Hour), ExamType: model.ExamFinal, CreatedBy: alice,
	}); err != nil {
		t.Fatalf("CreateExam: %v", err)
	}

	st, err := s.GetStats(ctx, alice, now)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if st.PendingReminders != 1 {
		t.Errorf("pending = %d, want 1", st.PendingReminders)
	}
	if st.CompletedReminders != 1 {
		t.Errorf("completed = %d, want 1", st.CompletedReminders)
	}
	if st.UpcomingExams != 1 {
		t.Errorf("upcoming exams = %d, want 1", st.UpcomingExams)
	}
}

func TestListSubjects(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := insertTestUser(t, s, "alice")
	now := time.Now()

	insertTestReminder(t, s, alice, "HW1", "Maths", now)
	insertTestReminder(t, s, alice, "HW2", "Maths", now.Add(time.Hour))
	if _, err := s.CreateExam(ctx, model.Exam{
		Subject: "Java", ExamDate: now, ExamType: model.ExamViva, CreatedBy: alice,
	}); err != nil {
		t.Fatalf("CreateExam: %v", err)
	}

	subjects, err := s.ListSubjects(ctx)
	if err != nil {
		t.Fatalf("ListSubjects: %v", err)
	}
	if len(subjects) != 2 || subjects[0] != "Java" || subjects[1] != "Maths" {
		t.Errorf("expected [Java Maths], got %v", subjects)
	}
}

func TestAuthSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := insertTestUser(t, s, "alice")

	token, err := s.CreateAuthSession(ctx, alice)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}

	sess, err := s.GetAuthSession(ctx, token)
	if err != nil {
		t.Fatalf("GetAuthSession: %v", err)
	}
	if sess == nil || sess.UserID != alice {
		t.Fatalf("unexpected session: %+v", sess)
	}

	if err := s.DeleteAuthSession(ctx, token); err != nil {
		t.Fatalf("DeleteAuthSession: %v", err)
	}
	sess, err = s.GetAuthSession(ctx, token)
	if err != nil {
		t.Fatalf("GetAuthSession after delete: %v", err)
	}
	if sess != nil {
		t.Error("expected nil session after delete")
	}
}

func TestExpiredAuthSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := insertTestUser(t, s, "alice")

	// Backdate a session past its expiry.
	past := time.Now().Add(-time.Hour)
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO auth_sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		"stale-token", alice, past.Add(-authSessionTTL), past,
	); err != nil {
		t.Fatalf("insert stale session: %v", err)
	}

	sess, err := s.GetAuthSession(ctx, "stale-token")
	if err != nil {
		t.Fatalf("GetAuthSession: %v", err)
	}
	if sess != nil {
		t.Errorf("expired session should read as nil, got %+v", sess)
	}

	live, err := s.CreateAuthSession(ctx, alice)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO auth_sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		"stale-token-2", alice, past.Add(-authSessionTTL), past,
	); err != nil {
		t.Fatalf("insert stale session: %v", err)
	}

	n, err := s.CleanupExpiredSessions(ctx)
	if err != nil {
		t.Fatalf("CleanupExpiredSessions: %v", err)
	}
	if n != 1 {
		t.Errorf("swept %d sessions, want 1", n)
	}
	sess, err = s.GetAuthSession(ctx, live)
	if err != nil {
		t.Fatalf("GetAuthSession after cleanup: %v", err)
	}
	if sess == nil {
		t.Error("live session should survive the sweep")
	}
}
