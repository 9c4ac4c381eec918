package handler

import (
	"log/slog"
	"net/http"
	"sort"
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

type examRequest struct {
	Subject     string    `json:"subject"`
	ExamDate    time.Time `json:"exam_date"`
	ExamType    string    `json:"exam_type"`
	Description string    `json:"description,omitempty"`
}

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	exams, err := h.store.ListExams(r.Context())
	if err != nil {
		slog.Error("failed to list exams", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		exams = rankExams(q, exams)
	}
	respondJSON(w, http.StatusOK, exams)
}

// rankExams fuzzy-matches the query against subject and type, best first.
func rankExams(q string, exams []model.Exam) []model.Exam {
	targets := lo.Map(exams, func(e model.Exam, _ int) string {
		return e.Subject + " " + string(e.ExamType)
	})
	ranks := fuzzy.RankFindNormalizedFold(q, targets)
	sort.Sort(ranks)

	out := make([]model.Exam, 0, len(ranks))
	for _, rk := range ranks {
		out = append(out, exams[rk.OriginalIndex])
	}
	return out
}

func (h *Handler) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	var req examRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Subject == "" || req.ExamDate.IsZero() {
		respondError(w, http.StatusBadRequest, "subject and exam_date are required")
		return
	}

	candidate := model.Exam{
		Subject:      req.Subject,
		ExamDate:     req.ExamDate,
		ExamType:     model.NormalizeExamType(req.ExamType),
		Description:  req.Description,
		CreatedBy:    user.ID,
		UploaderName: user.DisplayName,
	}
	if dup, reason := h.assistant.CheckDuplicateExam(r.Context(), candidate); dup {
		if reason == "" {
			reason = i18n.T(r.Context(), "DuplicateExam")
		}
		respondError(w, http.StatusConflict, reason)
		return
	}

	created, err := h.store.CreateExam(r.Context(), candidate)
	if err != nil {
		if store.IsUniqueViolation(err) {
			respondError(w, http.StatusConflict, "an identical exam already exists")
			return
		}
		slog.Error("failed to create exam", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.broker.Publish(notify.Event{Table: "exams", Op: notify.OpInsert, ID: created.ID})
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleDeleteExam(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	id := chi.URLParam(r, "examID")

	ok, err := h.store.DeleteExam(r.Context(), user.ID, id)
	if err != nil {
		slog.Error("failed to delete exam", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "exam not found")
		return
	}

	h.broker.Publish(notify.Event{Table: "exams", Op: notify.OpDelete, ID: id})
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
