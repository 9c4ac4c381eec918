package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"studytrack/internal/model"
	"studytrack/internal/store"
)

const defaultLeaderboardSize = 20

func (h *Handler) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.store.ListGroups(r.Context())
	if err != nil {
		slog.Error("failed to list groups", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, groups)
}

func (h *Handler) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	group, err := h.store.CreateGroup(r.Context(), req.Name, user.ID)
	if err != nil {
		if store.IsUniqueViolation(err) {
			respondError(w, http.StatusConflict, "a group with this name already exists")
			return
		}
		slog.Error("failed to create group", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusCreated, group)
}

func (h *Handler) handleJoinGroup(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	id := chi.URLParam(r, "groupID")

	group, err := h.store.GetGroup(r.Context(), id)
	if err != nil {
		slog.Error("failed to get group", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if group == nil {
		respondError(w, http.StatusNotFound, "group not found")
		return
	}

	if err := h.store.JoinGroup(r.Context(), id, user.ID); err != nil {
		slog.Error("failed to join group", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleLeaveGroup(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	if err := h.store.LeaveGroup(r.Context(), chi.URLParam(r, "groupID"), user.ID); err != nil {
		slog.Error("failed to leave group", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := defaultLeaderboardSize
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			respondError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	users, err := h.store.Leaderboard(r.Context(), limit)
	if err != nil {
		slog.Error("failed to load leaderboard", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, users)
}
