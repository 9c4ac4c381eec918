package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"studytrack/internal/model"
)

// Completer is the language-model dependency of the pipeline.
type Completer interface {
	Chat(ctx context.Context, system string, history []model.Turn, prompt string) (string, error)
}

const parserSystem = "You are a voice command parser for a student assignment tracker. " +
	"Always respond with a single valid JSON object and nothing else."

const answerSystem = "You are a helpful study assistant. Provide brief, natural responses."

const guardSystem = "You are a precise duplicate detection system. Respond concisely."

var reminderCues = []string{"assignment", "homework", "task"}
var examCues = []string{"exam", "test", "quiz", "viva", "mid-sem", "midsem", "final"}

// extractCreate turns a transcript into a create command via one model call.
func (a *Assistant) extractCreate(ctx context.Context, transcript string, history []model.Turn) (model.Command, error) {
	prompt := buildCreatePrompt(transcript, a.now())
	raw, err := a.llm.Chat(ctx, parserSystem, history, prompt)
	if err != nil {
		return model.Command{}, err
	}
	cmd, err := parseCommand(raw)
	if err != nil {
		return model.Command{}, err
	}
	applyLexicalCues(transcript, &cmd)
	return cmd, nil
}

// extractDelete asks the model to pick IDs from the caller's own open
// records. IDs outside that listing are discarded, so the model can never
// widen the delete scope.
func (a *Assistant) extractDelete(ctx context.Context, transcript string, history []model.Turn, reminders []model.Reminder, exams []model.Exam) (model.Command, error) {
	prompt := buildDeletePrompt(transcript, reminders, exams)
	raw, err := a.llm.Chat(ctx, parserSystem, history, prompt)
	if err != nil {
		return model.Command{}, err
	}
	cmd, err := parseCommand(raw)
	if err != nil {
		return model.Command{}, err
	}
	if cmd.Type != model.CommandDelete {
		return cmd, nil
	}

	known := map[string]bool{}
	switch cmd.ItemType {
	case model.ItemReminder:
		for _, r := range reminders {
			known[r.ID] = true
		}
	case model.ItemExam:
		for _, e := range exams {
			known[e.ID] = true
		}
	default:
		return model.Command{
			Type:    model.CommandClarification,
			Message: "Should I delete reminders or exams?",
		}, nil
	}

	// IDs outside the caller's listing are dropped, not reported: the cycle
	// ends with a count, never with a hint that a foreign record exists.
	cmd.ItemIDs = lo.Filter(cmd.ItemIDs, func(id string, _ int) bool { return known[id] })
	return cmd, nil
}

func buildCreatePrompt(transcript string, today time.Time) string {
	var sb strings.Builder
	sb.WriteString("Extract structured information from this voice command: \"" + transcript + "\"\n\n")
	sb.WriteString("Today's date is " + today.Format("2006-01-02") + ".\n\n")
	sb.WriteString("Determine if this is:\n")
	sb.WriteString("1. An EXAM: about a test/quiz/exam, with a subject and an exam date\n")
	sb.WriteString("2. A REMINDER: about an assignment/homework/task, with a subject and a deadline\n\n")
	sb.WriteString("The words \"assignment\", \"homework\" and \"task\" ALWAYS mean a reminder. ")
	sb.WriteString("The words \"exam\", \"test\", \"quiz\", \"viva\", \"mid-sem\" and \"final\" ALWAYS mean an exam.\n\n")
	sb.WriteString("Return JSON with this structure:\n")
	sb.WriteString(`{"type": "exam" or "reminder", "title": "extracted title", "subject": "subject name", "date": "YYYY-MM-DD", "time": "HH:MM (exams only)", "exam_type": "one of: Internal Test, Viva, Mid-Sem, Final", "description": "any additional details"}`)
	sb.WriteString("\n\n")
	sb.WriteString("If the year is not stated, use the current year. ")
	sb.WriteString("exam_type must be exactly one of the four listed values.\n")
	sb.WriteString("If required information is missing or unclear even using the conversation so far, return: ")
	sb.WriteString(`{"type": "clarification", "message": "what you need to clarify"}`)
	sb.WriteString("\n")
	return sb.String()
}

func buildDeletePrompt(transcript string, reminders []model.Reminder, exams []model.Exam) string {
	var sb strings.Builder
	sb.WriteString("The user wants to delete records. Their own open items are listed below with identifiers.\n\n")

	sb.WriteString("REMINDERS:\n")
	if len(reminders) == 0 {
		sb.WriteString("(none)\n")
	}
	for i, r := range reminders {
		fmt.Fprintf(&sb, "%d. [id=%s] %q subject=%s due=%s\n",
			i+1, r.ID, r.Title, r.Subject, r.Deadline.Format("2006-01-02"))
	}

	sb.WriteString("\nEXAMS:\n")
	if len(exams) == 0 {
		sb.WriteString("(none)\n")
	}
	for i, e := range exams {
		fmt.Fprintf(&sb, "%d. [id=%s] %s %s on %s\n",
			i+1, e.ID, e.Subject, e.ExamType, e.ExamDate.Format("2006-01-02"))
	}

	sb.WriteString("\nFrom this voice command: \"" + transcript + "\"\n")
	sb.WriteString("select the items to delete. Return JSON:\n")
	sb.WriteString(`{"type": "delete", "item_type": "reminder" or "exam", "item_ids": ["id", ...]}`)
	sb.WriteString("\n\n")
	sb.WriteString("Match the scope of the request: \"all maths assignments\" means every reminder whose subject is maths, case-insensitively. ")
	sb.WriteString("If nothing matches or the request is ambiguous, return: ")
	sb.WriteString(`{"type": "clarification", "message": "what you need to clarify"}`)
	sb.WriteString("\n")
	return sb.String()
}

// parseCommand locates the first balanced JSON object in the model's reply
// and decodes it. Free text around the object is tolerated; a reply with no
// such span, or an undecodable one, is ErrMalformedModelOutput.
func parseCommand(raw string) (model.Command, error) {
	span, ok := firstJSONObject(raw)
	if !ok {
		return model.Command{}, ErrMalformedModelOutput
	}
	var cmd model.Command
	if err := json.Unmarshal([]byte(span), &cmd); err != nil {
		return model.Command{}, fmt.Errorf("%w: %v", ErrMalformedModelOutput, err)
	}
	return cmd, nil
}

// firstJSONObject returns the first balanced {...} span in s, honoring
// string literals and escapes.
func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}

// applyLexicalCues forces the record kind when the transcript contains an
// explicit cue word, overriding whatever the model inferred.
func applyLexicalCues(transcript string, cmd *model.Command) {
	if cmd.Type != model.CommandExam && cmd.Type != model.CommandReminder {
		return
	}
	lower := strings.ToLower(transcript)
	for _, cue := range reminderCues {
		if strings.Contains(lower, cue) {
			cmd.Type = model.CommandReminder
			return
		}
	}
	for _, cue := range examCues {
		if strings.Contains(lower, cue) {
			cmd.Type = model.CommandExam
			return
		}
	}
}

// resolveDate parses the extractor's YYYY-MM-DD date, optionally combined
// with an HH:MM time, into a concrete instant.
func resolveDate(date, clock string) (time.Time, bool) {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, false
	}
	if clock != "" {
		if t, err := time.Parse("15:04", clock); err == nil {
			d = d.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
		}
	}
	return d, true
}
