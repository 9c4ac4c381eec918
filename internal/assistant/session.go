package assistant

import (
	"sync"

	"studytrack/internal/model"
)

// Sessions tracks per-user conversation state. Each user runs at most one
// command cycle at a time; starting a second while one is outstanding is
// rejected rather than queued. History is appended only when a cycle
// finishes, never mid-flight.
type Sessions struct {
	mu     sync.Mutex
	limit  int
	byUser map[int64]*session
}

type session struct {
	busy    bool
	history []model.Turn
}

// NewSessions creates a session registry. historyLimit caps the number of
// turns kept per user; older turns are dropped to bound prompt size.
func NewSessions(historyLimit int) *Sessions {
	if historyLimit <= 0 {
		historyLimit = 20
	}
	return &Sessions{
		limit:  historyLimit,
		byUser: make(map[int64]*session),
	}
}

// Begin marks a cycle in flight for the user and returns a copy of their
// conversation history. It returns ErrBusy if a cycle is already running.
func (s *Sessions) Begin(userID int64) ([]model.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.byUser[userID]
	if sess == nil {
		sess = &session{}
		s.byUser[userID] = sess
	}
	if sess.busy {
		return nil, ErrBusy
	}
	sess.busy = true

	history := make([]model.Turn, len(sess.history))
	copy(history, sess.history)
	return history, nil
}

// Finish ends the user's cycle. When the cycle completed (ok), the user
// utterance and the assistant reply are appended as turns; a failed or
// aborted cycle leaves the history untouched.
func (s *Sessions) Finish(userID int64, userText, assistantText string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.byUser[userID]
	if sess == nil {
		return
	}
	sess.busy = false
	if !ok {
		return
	}

	sess.history = append(sess.history,
		model.Turn{Role: model.TurnUser, Content: userText},
		model.Turn{Role: model.TurnAssistant, Content: assistantText},
	)
	if len(sess.history) > s.limit {
		sess.history = sess.history[len(sess.history)-s.limit:]
	}
}

// History returns a copy of the user's conversation history.
func (s *Sessions) History(userID int64) []model.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.byUser[userID]
	if sess == nil {
		return nil
	}
	history := make([]model.Turn, len(sess.history))
	copy(history, sess.history)
	return history
}

// Reset clears the user's conversation history.
func (s *Sessions) Reset(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byUser, userID)
}
