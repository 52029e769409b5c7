package handlers

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"studyhub-backend/internal/apperr"
	"studyhub-backend/internal/models"
	"studyhub-backend/internal/services"
)

type LessonHandler struct {
	workspaces WorkspaceGetter
	gen        services.Generator
}

func NewLessonHandler(workspaces WorkspaceGetter, gen services.Generator) *LessonHandler {
	return &LessonHandler{workspaces: workspaces, gen: gen}
}

// Generate writes a theory lesson for a subject topic. Nothing is saved
// until the client posts it back to /lessons.
func (h *LessonHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.LessonRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.Subject.Valid() {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Unknown subject",
			map[string]string{"subject": string(req.Subject)}, r))
		return
	}
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}

	content, err := h.gen.GenerateTheory(r.Context(), req.Subject, req.Topic, ws.State.Snapshot().StudentProfile)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"subject": req.Subject,
		"topic":   req.Topic,
		"content": content,
	})
}

func (h *LessonHandler) List(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	lessons := ws.State.Snapshot().SavedLessons
	if lessons == nil {
		lessons = []models.SavedLesson{}
	}
	writeJSON(w, http.StatusOK, withWarnings(map[string]interface{}{"lessons": lessons}, ws))
}

func (h *LessonHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req struct {
		models.LessonRequest
		Content string `json:"content" validate:"required"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}

	lesson := models.SavedLesson{
		ID:      uuid.NewString(),
		Subject: req.Subject,
		Topic:   strings.TrimSpace(req.Topic),
		Content: req.Content,
		Date:    time.Now().UTC(),
	}
	if !lesson.Subject.Valid() {
		lesson.Subject = models.SubjectGeneral
	}
	if _, err := ws.State.Mutate(func(s *models.AppState) error {
		s.SavedLessons = append([]models.SavedLesson{lesson}, s.SavedLessons...)
		return nil
	}); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, withWarnings(map[string]interface{}{"lesson": lesson}, ws))
}

func (h *LessonHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := ws.State.Mutate(func(s *models.AppState) error {
		i := slices.IndexFunc(s.SavedLessons, func(l models.SavedLesson) bool { return l.ID == id })
		if i < 0 {
			return fmt.Errorf("%w: lesson %s", apperr.ErrNotFound, id)
		}
		s.SavedLessons = slices.Delete(s.SavedLessons, i, i+1)
		return nil
	}); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
