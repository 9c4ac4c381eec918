package handler

import (
	"log/slog"
	"net/http"
	"time"

	"studytrack/internal/model"
)

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	stats, err := h.store.GetStats(r.Context(), user.ID, time.Now())
	if err != nil {
		slog.Error("failed to load stats", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.store.ListSubjects(r.Context())
	if err != nil {
		slog.Error("failed to list subjects", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if subjects == nil {
		subjects = []string{}
	}
	respondJSON(w, http.StatusOK, subjects)
}
