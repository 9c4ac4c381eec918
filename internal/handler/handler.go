package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"studytrack/internal/assistant"
	"studytrack/internal/blob"
	"studytrack/internal/i18n"
	"studytrack/internal/llm"
	"studytrack/internal/model"
	"studytrack/internal/notify"
	"studytrack/internal/store"
)

// LLM is the language-model dependency of the HTTP layer.
type LLM interface {
	assistant.Completer
	Transcribe(ctx context.Context, filename string, audio []byte) (string, error)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store     *store.Store
	llm       LLM
	assistant *assistant.Assistant
	sessions  *assistant.Sessions
	broker    *notify.Broker
	blobs     *blob.Store
	config    model.ServerConfig
}

// New creates a new Handler.
func New(s *store.Store, l LLM, cfg model.ServerConfig) (*Handler, error) {
	blobs, err := blob.New(cfg.UploadDir)
	if err != nil {
		return nil, err
	}
	return &Handler{
		store:     s,
		llm:       l,
		assistant: assistant.New(s, l),
		sessions:  assistant.NewSessions(cfg.HistoryLimit),
		broker:    notify.NewBroker(),
		blobs:     blobs,
		config:    cfg,
	}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Use(h.csrfMiddleware)

	r.Post("/api/register", h.handleRegister)
	r.Post("/api/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Post("/api/logout", h.handleLogout)
		r.Get("/api/me", h.handleMe)

		r.Get("/api/reminders", h.handleListReminders)
		r.Post("/api/reminders", h.handleCreateReminder)
		r.Get("/api/reminders/{reminderID}", h.handleGetReminder)
		r.Put("/api/reminders/{reminderID}", h.handleUpdateReminder)
		r.Delete("/api/reminders/{reminderID}", h.handleDeleteReminder)
		r.Post("/api/reminders/{reminderID}/complete", h.handleCompleteReminder)
		r.Get("/api/reminders/{reminderID}/file", h.handleDownloadCompletion)

		r.Get("/api/exams", h.handleListExams)
		r.Post("/api/exams", h.handleCreateExam)
		r.Delete("/api/exams/{examID}", h.handleDeleteExam)

		r.Get("/api/stats", h.handleStats)
		r.Get("/api/subjects", h.handleSubjects)

		r.Get("/api/groups", h.handleListGroups)
		r.Post("/api/groups", h.handleCreateGroup)
		r.Post("/api/groups/{groupID}/join", h.handleJoinGroup)
		r.Post("/api/groups/{groupID}/leave", h.handleLeaveGroup)
		r.Get("/api/leaderboard", h.handleLeaderboard)

		r.Post("/api/assistant/command", h.handleAssistantCommand)
		r.Post("/api/assistant/voice", h.handleAssistantVoice)
		r.Get("/api/assistant/history", h.handleAssistantHistory)
		r.Delete("/api/assistant/history", h.handleAssistantReset)

		r.Get("/api/events", h.handleEvents)

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleAdmin))
			r.Get("/api/admin/users", h.handleListUsers)
			r.Post("/api/admin/users/{userID}/toggle", h.handleToggleUserActive)
		})
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorBody{Error: msg})
}

// respondPipelineError maps pipeline and upstream failures onto transport
// status codes. Rate limits and exhausted credit pass through as their own
// statuses so the client can tell them apart.
func respondPipelineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, assistant.ErrBusy):
		respondError(w, http.StatusConflict, i18n.T(r.Context(), "AssistantBusy"))
	case errors.Is(err, assistant.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, llm.ErrRateLimited):
		respondError(w, http.StatusTooManyRequests, "rate limit exceeded, try again shortly")
	case errors.Is(err, llm.ErrPaymentRequired):
		respondError(w, http.StatusPaymentRequired, "model credits exhausted")
	case errors.Is(err, assistant.ErrMalformedModelOutput):
		slog.Error("assistant returned malformed output", "error", err)
		respondError(w, http.StatusBadGateway, "the assistant returned an unusable reply")
	default:
		slog.Error("assistant command failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
