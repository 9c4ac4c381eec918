package assistant

import (
	"testing"

	"pgregory.net/rapid"
)

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		transcript string
		want       Intent
	}{
		{"how many assignments do I have", IntentQuery},
		{"what's due this week", IntentQuery},
		{"show my pending reminders", IntentQuery},
		{"list upcoming exams", IntentQuery},
		{"tell me about my maths homework", IntentQuery},
		{"do i have anything overdue", IntentQuery},
		{"add a physics assignment due Friday", IntentCreate},
		{"I have a maths mid-sem on the 12th", IntentCreate},
		{"remind me to submit the lab report", IntentCreate},
		{"delete the physics assignment", IntentDelete},
		{"remove all maths reminders", IntentDelete},
		{"cancel my chemistry exam", IntentDelete},
		{"clear everything for biology", IntentDelete},
		// Delete verbs win over query words.
		{"delete all my pending assignments", IntentDelete},
		{"cancel whatever exams are upcoming", IntentDelete},
		{"remove what I added yesterday", IntentDelete},
		// Substrings must not trigger: "deleted" is not "delete".
		{"show the undeletable ones", IntentQuery},
		{"canceled classes resume tomorrow", IntentCreate},
	}
	for _, tt := range tests {
		if got := ClassifyIntent(tt.transcript); got != tt.want {
			t.Errorf("ClassifyIntent(%q) = %v, want %v", tt.transcript, got, tt.want)
		}
	}
}

func TestDeleteAlwaysWinsOverQuery(t *testing.T) {
	deleteWords := []string{"delete", "remove", "cancel", "clear"}
	queryWords := []string{"how many", "what", "show", "tell", "list", "pending", "upcoming"}

	rapid.Check(t, func(t *rapid.T) {
		d := rapid.SampledFrom(deleteWords).Draw(t, "deleteWord")
		q := rapid.SampledFrom(queryWords).Draw(t, "queryWord")
		filler := rapid.StringMatching(`[a-z ]{0,20}`).Draw(t, "filler")

		var transcript string
		if rapid.Bool().Draw(t, "queryFirst") {
			transcript = q + " " + filler + " " + d
		} else {
			transcript = d + " " + filler + " " + q
		}
		if got := ClassifyIntent(transcript); got != IntentDelete {
			t.Fatalf("ClassifyIntent(%q) = %v, want delete", transcript, got)
		}
	})
}
