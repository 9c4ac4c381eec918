package model

// CommandType identifies what a parsed voice command asks for.
type CommandType string

const (
	// CommandExam creates an exam entry.
	CommandExam CommandType = "exam"
	// CommandReminder creates an assignment reminder.
	CommandReminder CommandType = "reminder"
	// CommandDelete removes one or more existing records.
	CommandDelete CommandType = "delete"
	// CommandClarification ends the turn asking the user for more detail.
	CommandClarification CommandType = "clarification"
)

// ItemType scopes a delete command to one record kind.
type ItemType string

const (
	ItemReminder ItemType = "reminder"
	ItemExam     ItemType = "exam"
)

// Command is the structured form of a natural-language request, as emitted
// by the extractor. Which fields are populated depends on Type.
type Command struct {
	Type CommandType `json:"type"`

	// Create fields.
	Title       string `json:"title,omitempty"`
	Subject     string `json:"subject,omitempty"`
	Date        string `json:"date,omitempty"` // YYYY-MM-DD
	Time        string `json:"time,omitempty"` // HH:MM, exams only
	ExamType    string `json:"exam_type,omitempty"`
	Description string `json:"description,omitempty"`

	// Delete fields.
	ItemType ItemType `json:"item_type,omitempty"`
	ItemIDs  []string `json:"item_ids,omitempty"`

	// Clarification text.
	Message string `json:"message,omitempty"`
}

// ResultType is the outcome class of one assistant cycle.
type ResultType string

const (
	// ResultResponse is a read-only conversational answer.
	ResultResponse ResultType = "response"
	// ResultClarification asks the user for more information.
	ResultClarification ResultType = "clarification"
	// ResultExam reports a created exam.
	ResultExam ResultType = "exam"
	// ResultReminder reports a created reminder.
	ResultReminder ResultType = "reminder"
	// ResultDeleted reports a completed bulk delete.
	ResultDeleted ResultType = "delete_success"
	// ResultDuplicate reports a create rejected by the duplicate guard.
	ResultDuplicate ResultType = "duplicate"
)

// Result is what one assistant cycle returns to the caller. Message is
// always set; Reminder/Exam/Deleted are populated for their result types.
type Result struct {
	Type        ResultType `json:"type"`
	Message     string     `json:"message"`
	Reminder    *Reminder  `json:"reminder,omitempty"`
	Exam        *Exam      `json:"exam,omitempty"`
	Deleted     int        `json:"deleted,omitempty"`
	DeletedKind ItemType   `json:"deleted_kind,omitempty"`
}
