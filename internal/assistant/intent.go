package assistant

import "regexp"

// Intent is the classified purpose of one utterance.
type Intent string

const (
	IntentQuery  Intent = "query"
	IntentDelete Intent = "delete"
	IntentCreate Intent = "create"
)

var (
	deletePattern = regexp.MustCompile(`(?i)\b(delete|remove|cancel|clear)\b`)
	queryPattern  = regexp.MustCompile(`(?i)\b(how many|what|show|tell|list|pending|upcoming|overdue|do i have)\b`)
)

// ClassifyIntent routes a transcript to one of the three handlers using a
// keyword pre-filter. Delete verbs are checked before query words: "cancel
// my pending exam" is a deletion, not a listing. Creation is the fallback
// when neither pattern matches.
func ClassifyIntent(transcript string) Intent {
	if deletePattern.MatchString(transcript) {
		return IntentDelete
	}
	if queryPattern.MatchString(transcript) {
		return IntentQuery
	}
	return IntentCreate
}
