package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"studytrack/internal/i18n"
	"studytrack/internal/model"
	"studytrack/internal/store"
)

// Assistant runs the voice command pipeline: classify the transcript,
// extract a structured command, vet creations for duplicates, then execute
// against the store. All mutations are scoped to the calling user.
type Assistant struct {
	store *store.Store
	llm   Completer
	now   func() time.Time
}

func New(st *store.Store, llm Completer) *Assistant {
	return &Assistant{
		store: st,
		llm:   llm,
		now:   time.Now,
	}
}

// Execute processes one transcript for the given user and returns the
// assistant's reply. Upstream model failures are returned as errors so the
// caller can map them to transport status codes; everything the pipeline can
// answer itself comes back as a Result.
func (a *Assistant) Execute(ctx context.Context, user *model.User, transcript string, history []model.Turn) (model.Result, error) {
	if user == nil {
		return model.Result{}, ErrUnauthorized
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return clarify(i18n.T(ctx, "ClarifyEmpty")), nil
	}

	switch ClassifyIntent(transcript) {
	case IntentQuery:
		return a.answerQuery(ctx, transcript, history)
	case IntentDelete:
		return a.runDelete(ctx, user, transcript, history)
	default:
		return a.runCreate(ctx, user, transcript, history)
	}
}

// answerQuery loads the user's open records, hands them to the model as
// JSON context and relays its natural-language answer verbatim.
func (a *Assistant) answerQuery(ctx context.Context, transcript string, history []model.Turn) (model.Result, error) {
	reminders, err := a.store.ListOpenReminders(ctx, a.now())
	if err != nil {
		return model.Result{}, fmt.Errorf("listing reminders: %w", err)
	}
	exams, err := a.store.ListOpenExams(ctx, a.now())
	if err != nil {
		return model.Result{}, fmt.Errorf("listing exams: %w", err)
	}

	remJSON, _ := json.Marshal(reminders)
	examJSON, _ := json.Marshal(exams)

	var sb strings.Builder
	sb.WriteString("Answer this question about the student's assignments and exams: \"" + transcript + "\"\n\n")
	sb.WriteString("Today's date is " + a.now().Format("2006-01-02") + ".\n\n")
	sb.WriteString("Pending reminders (JSON):\n")
	sb.Write(remJSON)
	sb.WriteString("\n\nUpcoming exams (JSON):\n")
	sb.Write(examJSON)
	sb.WriteString("\n\nAnswer naturally and concisely based only on this data.")

	answer, err := a.llm.Chat(ctx, answerSystem, history, sb.String())
	if err != nil {
		return model.Result{}, err
	}
	return model.Result{Type: model.ResultResponse, Message: strings.TrimSpace(answer)}, nil
}

// runDelete resolves the transcript to record IDs among the user's own open
// items and removes them. A user with nothing open gets a clarification
// without a model round trip.
func (a *Assistant) runDelete(ctx context.Context, user *model.User, transcript string, history []model.Turn) (model.Result, error) {
	reminders, err := a.store.ListOpenRemindersByOwner(ctx, user.ID, a.now())
	if err != nil {
		return model.Result{}, fmt.Errorf("listing reminders: %w", err)
	}
	exams, err := a.store.ListOpenExamsByOwner(ctx, user.ID, a.now())
	if err != nil {
		return model.Result{}, fmt.Errorf("listing exams: %w", err)
	}
	if len(reminders) == 0 && len(exams) == 0 {
		return clarify(i18n.T(ctx, "NothingToDelete")), nil
	}

	cmd, err := a.extractDelete(ctx, transcript, history, reminders, exams)
	if err != nil {
		return model.Result{}, err
	}
	if cmd.Type == model.CommandClarification {
		return clarify(cmd.Message), nil
	}

	var n int
	switch cmd.ItemType {
	case model.ItemReminder:
		n, err = a.store.DeleteRemindersByIDs(ctx, user.ID, cmd.ItemIDs)
	case model.ItemExam:
		n, err = a.store.DeleteExamsByIDs(ctx, user.ID, cmd.ItemIDs)
	}
	if err != nil {
		return model.Result{}, fmt.Errorf("deleting items: %w", err)
	}

	msgID := "DeletedReminders"
	if cmd.ItemType == model.ItemExam {
		msgID = "DeletedExams"
	}
	slog.Info("voice delete executed", "user", user.Username, "kind", cmd.ItemType, "requested", len(cmd.ItemIDs), "deleted", n)
	return model.Result{
		Type:        model.ResultDeleted,
		Message:     i18n.Tp(ctx, msgID, n),
		Deleted:     n,
		DeletedKind: cmd.ItemType,
	}, nil
}

// runCreate extracts a creation command and inserts the record. Two layers
// reject duplicates: the model guard before the insert, and the table's
// unique constraint as the backstop.
func (a *Assistant) runCreate(ctx context.Context, user *model.User, transcript string, history []model.Turn) (model.Result, error) {
	cmd, err := a.extractCreate(ctx, transcript, history)
	if err != nil {
		return model.Result{}, err
	}

	switch cmd.Type {
	case model.CommandClarification:
		return clarify(cmd.Message), nil
	case model.CommandExam:
		return a.createExam(ctx, user, cmd)
	case model.CommandReminder:
		return a.createReminder(ctx, user, cmd)
	case model.CommandDelete:
		// The extractor outranks the keyword pre-filter: a confident
		// structured delete reroutes even though no delete verb matched.
		return a.runDelete(ctx, user, transcript, history)
	default:
		return model.Result{}, fmt.Errorf("%w: unexpected command type %q", ErrMalformedModelOutput, cmd.Type)
	}
}

func (a *Assistant) createReminder(ctx context.Context, user *model.User, cmd model.Command) (model.Result, error) {
	if cmd.Subject == "" {
		return clarify(i18n.T(ctx, "ClarifyMissingSubject")), nil
	}
	deadline, ok := resolveDate(cmd.Date, cmd.Time)
	if !ok {
		return clarify(i18n.T(ctx, "ClarifyMissingDate")), nil
	}
	title := cmd.Title
	if title == "" {
		title = cmd.Subject + " assignment"
	}

	candidate := model.Reminder{
		Title:       title,
		Subject:     cmd.Subject,
		Deadline:    deadline,
		Description: cmd.Description,
		CreatedBy:   user.ID,
	}
	if dup, reason := a.CheckDuplicateReminder(ctx, candidate); dup {
		if reason == "" {
			reason = i18n.T(ctx, "DuplicateReminder")
		}
		return model.Result{Type: model.ResultDuplicate, Message: reason}, nil
	}

	created, err := a.store.CreateReminder(ctx, candidate)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return model.Result{Type: model.ResultDuplicate, Message: i18n.T(ctx, "DuplicateReminder")}, nil
		}
		return model.Result{}, fmt.Errorf("creating reminder: %w", err)
	}

	slog.Info("voice reminder created", "user", user.Username, "title", created.Title, "subject", created.Subject)
	return model.Result{
		Type: model.ResultReminder,
		Message: i18n.Td(ctx, "ReminderCreated", map[string]any{
			"Title": created.Title,
			"Date":  created.Deadline.Format("January 2, 2006"),
		}),
		Reminder: &created,
	}, nil
}

func (a *Assistant) createExam(ctx context.Context, user *model.User, cmd model.Command) (model.Result, error) {
	if cmd.Subject == "" {
		return clarify(i18n.T(ctx, "ClarifyMissingSubject")), nil
	}
	examDate, ok := resolveDate(cmd.Date, cmd.Time)
	if !ok {
		return clarify(i18n.T(ctx, "ClarifyMissingDate")), nil
	}

	candidate := model.Exam{
		Subject:     cmd.Subject,
		ExamDate:    examDate,
		ExamType:    model.NormalizeExamType(cmd.ExamType),
		Description: cmd.Description,
		CreatedBy:   user.ID,
	}
	if dup, reason := a.CheckDuplicateExam(ctx, candidate); dup {
		if reason == "" {
			reason = i18n.T(ctx, "DuplicateExam")
		}
		return model.Result{Type: model.ResultDuplicate, Message: reason}, nil
	}

	created, err := a.store.CreateExam(ctx, candidate)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return model.Result{Type: model.ResultDuplicate, Message: i18n.T(ctx, "DuplicateExam")}, nil
		}
		return model.Result{}, fmt.Errorf("creating exam: %w", err)
	}

	slog.Info("voice exam created", "user", user.Username, "subject", created.Subject, "type", created.ExamType)
	return model.Result{
		Type: model.ResultExam,
		Message: i18n.Td(ctx, "ExamCreated", map[string]any{
			"Subject": created.Subject,
			"Type":    string(created.ExamType),
			"Date":    created.ExamDate.Format("January 2, 2006"),
		}),
		Exam: &created,
	}, nil
}

func clarify(msg string) model.Result {
	return model.Result{Type: model.ResultClarification, Message: msg}
}
