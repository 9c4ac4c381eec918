package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"studytrack/internal/model"
)

// CheckDuplicateReminder compares a creation candidate against all open
// reminders. With no open records it short-circuits to unique without
// calling the model. A failed guard call is fail-open: the auxiliary check
// must not block legitimate input on an upstream outage.
func (a *Assistant) CheckDuplicateReminder(ctx context.Context, candidate model.Reminder) (bool, string) {
	existing, err := a.store.ListOpenReminders(ctx, a.now())
	if err != nil {
		slog.Warn("duplicate guard: listing open reminders failed", "error", err)
		return false, ""
	}
	if len(existing) == 0 {
		return false, ""
	}

	var sb strings.Builder
	sb.WriteString("New reminder to check:\n")
	fmt.Fprintf(&sb, "Title: %s\nSubject: %s\nDeadline: %s\nDescription: %s\n\n",
		candidate.Title, candidate.Subject, candidate.Deadline.Format("2006-01-02"), orNone(candidate.Description))
	sb.WriteString("Existing reminders:\n")
	for i, r := range existing {
		fmt.Fprintf(&sb, "%d. Title: %s, Subject: %s, Deadline: %s, Description: %s\n",
			i+1, r.Title, r.Subject, r.Deadline.Format("2006-01-02"), orNone(r.Description))
	}
	sb.WriteString("\nAnalyze if the new reminder is a duplicate or very similar to any existing reminder. Consider:\n")
	sb.WriteString("- Same or very similar title\n- Same subject\n- Similar deadlines (within 1-2 days)\n- Similar descriptions\n\n")
	sb.WriteString(`Respond with ONLY "DUPLICATE" if it's clearly a duplicate, or "UNIQUE" if it's different. `)
	sb.WriteString("If duplicate, add a brief reason after a pipe character like: DUPLICATE|Same assignment already exists\n")

	return a.askGuard(ctx, sb.String())
}

// CheckDuplicateExam is the exam-kind counterpart of CheckDuplicateReminder.
func (a *Assistant) CheckDuplicateExam(ctx context.Context, candidate model.Exam) (bool, string) {
	existing, err := a.store.ListOpenExams(ctx, a.now())
	if err != nil {
		slog.Warn("duplicate guard: listing open exams failed", "error", err)
		return false, ""
	}
	if len(existing) == 0 {
		return false, ""
	}

	var sb strings.Builder
	sb.WriteString("New exam to check:\n")
	fmt.Fprintf(&sb, "Subject: %s\nDate: %s\nType: %s\nDescription: %s\n\n",
		candidate.Subject, candidate.ExamDate.Format("2006-01-02"), candidate.ExamType, orNone(candidate.Description))
	sb.WriteString("Existing exams:\n")
	for i, e := range existing {
		fmt.Fprintf(&sb, "%d. Subject: %s, Date: %s, Type: %s, Description: %s\n",
			i+1, e.Subject, e.ExamDate.Format("2006-01-02"), e.ExamType, orNone(e.Description))
	}
	sb.WriteString("\nAnalyze if the new exam is a duplicate or very similar to any existing exam. Consider:\n")
	sb.WriteString("- Same subject and exam type\n- Similar dates (within 1-2 days)\n- Similar descriptions\n\n")
	sb.WriteString(`Respond with ONLY "DUPLICATE" if it's clearly a duplicate, or "UNIQUE" if it's different. `)
	sb.WriteString("If duplicate, add a brief reason after a pipe character like: DUPLICATE|Same Math exam on the same date\n")

	return a.askGuard(ctx, sb.String())
}

func (a *Assistant) askGuard(ctx context.Context, prompt string) (bool, string) {
	raw, err := a.llm.Chat(ctx, guardSystem, nil, prompt)
	if err != nil {
		slog.Warn("duplicate guard call failed, allowing creation", "error", err)
		return false, ""
	}
	return parseGuardVerdict(raw)
}

// parseGuardVerdict splits the model's reply on the first pipe. The first
// token decides the outcome (case-insensitive DUPLICATE match); the rest is
// the human-readable reason.
func parseGuardVerdict(raw string) (bool, string) {
	status, reason, _ := strings.Cut(strings.TrimSpace(raw), "|")
	if !strings.Contains(strings.ToUpper(status), "DUPLICATE") {
		return false, ""
	}
	return true, strings.TrimSpace(reason)
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
