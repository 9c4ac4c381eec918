package handler

import (
	"io"
	"log/slog"
	"net/http"

	"studytrack/internal/model"
	"studytrack/internal/notify"
)

const maxAudioBytes = 25 << 20

type commandResponse struct {
	Transcript string       `json:"transcript"`
	Result     model.Result `json:"result"`
}

func (h *Handler) handleAssistantCommand(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	var req struct {
		Transcript string `json:"transcript"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	h.runAssistant(w, r, user, req.Transcript)
}

// handleAssistantVoice accepts a recorded audio clip, transcribes it and
// feeds the transcript through the same pipeline as a typed command.
func (h *Handler) handleAssistantVoice(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	if err := r.ParseMultipartForm(maxAudioBytes); err != nil {
		respondError(w, http.StatusBadRequest, "audio too large")
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		respondError(w, http.StatusBadRequest, "no audio uploaded")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		slog.Error("failed to read audio upload", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	transcript, err := h.llm.Transcribe(r.Context(), header.Filename, audio)
	if err != nil {
		respondPipelineError(w, r, err)
		return
	}
	slog.Info("transcribed voice command", "user", user.Username, "bytes", len(audio))

	h.runAssistant(w, r, user, transcript)
}

func (h *Handler) runAssistant(w http.ResponseWriter, r *http.Request, user *model.User, transcript string) {
	history, err := h.sessions.Begin(user.ID)
	if err != nil {
		respondPipelineError(w, r, err)
		return
	}

	// Deferred so the busy flag is released even if the pipeline panics;
	// only a completed cycle lands in the history.
	var res model.Result
	completed := false
	defer func() {
		h.sessions.Finish(user.ID, transcript, res.Message, completed)
	}()

	res, err = h.assistant.Execute(r.Context(), user, transcript, history)
	if err != nil {
		respondPipelineError(w, r, err)
		return
	}
	completed = true

	h.publishResult(res)
	respondJSON(w, http.StatusOK, commandResponse{Transcript: transcript, Result: res})
}

// publishResult turns a mutating assistant outcome into change events.
func (h *Handler) publishResult(res model.Result) {
	switch res.Type {
	case model.ResultReminder:
		if res.Reminder != nil {
			h.broker.Publish(notify.Event{Table: "reminders", Op: notify.OpInsert, ID: res.Reminder.ID})
		}
	case model.ResultExam:
		if res.Exam != nil {
			h.broker.Publish(notify.Event{Table: "exams", Op: notify.OpInsert, ID: res.Exam.ID})
		}
	case model.ResultDeleted:
		if res.Deleted > 0 {
			table := "reminders"
			if res.DeletedKind == model.ItemExam {
				table = "exams"
			}
			h.broker.Publish(notify.Event{Table: table, Op: notify.OpDelete})
		}
	}
}

func (h *Handler) handleAssistantHistory(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	history := h.sessions.History(user.ID)
	if history == nil {
		history = []model.Turn{}
	}
	respondJSON(w, http.StatusOK, history)
}

func (h *Handler) handleAssistantReset(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	h.sessions.Reset(user.ID)
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
