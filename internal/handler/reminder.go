package handler

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"

	"studytrack/internal/i18n"
	"studytrack/internal/model"
	"studytrack/internal/notify"
	"studytrack/internal/store"
)

type reminderRequest struct {
	Title       string    `json:"title"`
	Subject     string    `json:"subject"`
	Deadline    time.Time `json:"deadline"`
	Description string    `json:"description,omitempty"`
}

func (h *Handler) handleListReminders(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	subject := r.URL.Query().Get("subject")

	views, err := h.store.ListReminderViews(r.Context(), user.ID, subject)
	if err != nil {
		slog.Error("failed to list reminders", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		views = rankReminders(q, views)
	}
	respondJSON(w, http.StatusOK, views)
}

// rankReminders fuzzy-matches the query against title and subject and
// returns the hits ordered best first.
func rankReminders(q string, views []model.ReminderView) []model.ReminderView {
	targets := lo.Map(views, func(v model.ReminderView, _ int) string {
		return v.Title + " " + v.Subject
	})
	ranks := fuzzy.RankFindNormalizedFold(q, targets)
	sort.Sort(ranks)

	out := make([]model.ReminderView, 0, len(ranks))
	for _, rk := range ranks {
		out = append(out, views[rk.OriginalIndex])
	}
	return out
}

func (h *Handler) handleCreateReminder(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	var req reminderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Title == "" || req.Subject == "" || req.Deadline.IsZero() {
		respondError(w, http.StatusBadRequest, "title, subject and deadline are required")
		return
	}

	candidate := model.Reminder{
		Title:       req.Title,
		Subject:     req.Subject,
		Deadline:    req.Deadline,
		Description: req.Description,
		CreatedBy:   user.ID,
	}
	if dup, reason := h.assistant.CheckDuplicateReminder(r.Context(), candidate); dup {
		if reason == "" {
			reason = i18n.T(r.Context(), "DuplicateReminder")
		}
		respondError(w, http.StatusConflict, reason)
		return
	}

	created, err := h.store.CreateReminder(r.Context(), candidate)
	if err != nil {
		if store.IsUniqueViolation(err) {
			respondError(w, http.StatusConflict, "an identical reminder already exists")
			return
		}
		slog.Error("failed to create reminder", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.broker.Publish(notify.Event{Table: "reminders", Op: notify.OpInsert, ID: created.ID})
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleGetReminder(w http.ResponseWriter, r *http.Request) {
	reminder, err := h.store.GetReminder(r.Context(), chi.URLParam(r, "reminderID"))
	if err != nil {
		slog.Error("failed to get reminder", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if reminder == nil {
		respondError(w, http.StatusNotFound, "reminder not found")
		return
	}
	respondJSON(w, http.StatusOK, reminder)
}

func (h *Handler) handleUpdateReminder(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	id := chi.URLParam(r, "reminderID")

	var req reminderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Title == "" || req.Subject == "" || req.Deadline.IsZero() {
		respondError(w, http.StatusBadRequest, "title, subject and deadline are required")
		return
	}

	ok, err := h.store.UpdateReminder(r.Context(), user.ID, model.Reminder{
		ID:          id,
		Title:       req.Title,
		Subject:     req.Subject,
		Deadline:    req.Deadline,
		Description: req.Description,
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			respondError(w, http.StatusConflict, "an identical reminder already exists")
			return
		}
		slog.Error("failed to update reminder", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "reminder not found")
		return
	}

	h.broker.Publish(notify.Event{Table: "reminders", Op: notify.OpUpdate, ID: id})
	updated, err := h.store.GetReminder(r.Context(), id)
	if err != nil {
		slog.Error("failed to get reminder", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if updated == nil {
		respondError(w, http.StatusNotFound, "reminder not found")
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDeleteReminder(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	id := chi.URLParam(r, "reminderID")

	ok, err := h.store.DeleteReminder(r.Context(), user.ID, id)
	if err != nil {
		slog.Error("failed to delete reminder", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "reminder not found")
		return
	}

	h.broker.Publish(notify.Event{Table: "reminders", Op: notify.OpDelete, ID: id})
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

const maxUploadBytes = 10 << 20

// handleCompleteReminder marks a reminder done for the caller, optionally
// attaching a proof file from a multipart form. Completing an already
// completed reminder replaces the file and awards no extra points.
func (h *Handler) handleCompleteReminder(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	id := chi.URLParam(r, "reminderID")

	reminder, err := h.store.GetReminder(r.Context(), id)
	if err != nil {
		slog.Error("failed to get reminder", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if reminder == nil {
		respondError(w, http.StatusNotFound, "reminder not found")
		return
	}

	var fileKey string
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			respondError(w, http.StatusBadRequest, "file too large")
			return
		}
		file, header, err := r.FormFile("file")
		if err == nil {
			defer file.Close()
			fileKey = completionKey(user.ID, id, header.Filename)
			if err := h.blobs.Put(fileKey, file); err != nil {
				slog.Error("failed to store completion file", "error", err)
				respondError(w, http.StatusInternalServerError, "internal error")
				return
			}
		}
	}

	completion, err := h.store.CompleteReminder(r.Context(), id, user.ID, fileKey)
	if err != nil {
		slog.Error("failed to complete reminder", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.broker.Publish(notify.Event{Table: "reminder_completions", Op: notify.OpInsert, ID: completion.ID})
	respondJSON(w, http.StatusOK, completion)
}

// completionKey derives the blob key for a user's completion file. Keeping
// the key a pure function of (user, reminder) makes re-uploads overwrite.
func completionKey(userID int64, reminderID, filename string) string {
	return strconv.FormatInt(userID, 10) + "/" + reminderID + filepath.Ext(filename)
}

func (h *Handler) handleDownloadCompletion(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	id := chi.URLParam(r, "reminderID")

	completion, err := h.store.GetCompletion(r.Context(), id, user.ID)
	if err != nil {
		slog.Error("failed to get completion", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if completion == nil || completion.FileKey == "" {
		respondError(w, http.StatusNotFound, "no file uploaded for this reminder")
		return
	}

	rc, err := h.blobs.Open(completion.FileKey)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			respondError(w, http.StatusNotFound, "file not found")
			return
		}
		slog.Error("failed to open completion file", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename="+filepath.Base(completion.FileKey))
	if _, err := io.Copy(w, rc); err != nil {
		slog.Error("failed to stream completion file", "error", err)
	}
}
