package handlers

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"studyhub-backend/internal/apperr"
	"studyhub-backend/internal/models"
)

// PlannerHandler serves the to-do list and the weekly study reminders.
type PlannerHandler struct {
	workspaces WorkspaceGetter
}

func NewPlannerHandler(workspaces WorkspaceGetter) *PlannerHandler {
	return &PlannerHandler{workspaces: workspaces}
}

func (h *PlannerHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, withWarnings(map[string]interface{}{"tasks": ws.State.Snapshot().Tasks}, ws))
}

func (h *PlannerHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req models.TaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"text": "required"}, r))
		return
	}
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}

	task := models.Task{ID: uuid.NewString(), Text: text}
	if _, err := ws.State.Mutate(func(s *models.AppState) error {
		s.Tasks = append(s.Tasks, task)
		return nil
	}); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, withWarnings(map[string]interface{}{"task": task}, ws))
}

// UpdateTask edits the text or completion flag; omitted fields are kept.
func (h *PlannerHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text      *string `json:"text"`
		Completed *bool   `json:"completed"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Text != nil && strings.TrimSpace(*req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"text": "required"}, r))
		return
	}
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	var updated models.Task
	if _, err := ws.State.Mutate(func(s *models.AppState) error {
		i := slices.IndexFunc(s.Tasks, func(t models.Task) bool { return t.ID == id })
		if i < 0 {
			return fmt.Errorf("%w: task %s", apperr.ErrNotFound, id)
		}
		if req.Text != nil {
			s.Tasks[i].Text = strings.TrimSpace(*req.Text)
		}
		if req.Completed != nil {
			s.Tasks[i].Completed = *req.Completed
		}
		updated = s.Tasks[i]
		return nil
	}); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, withWarnings(map[string]interface{}{"task": updated}, ws))
}

func (h *PlannerHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := ws.State.Mutate(func(s *models.AppState) error {
		i := slices.IndexFunc(s.Tasks, func(t models.Task) bool { return t.ID == id })
		if i < 0 {
			return fmt.Errorf("%w: task %s", apperr.ErrNotFound, id)
		}
		s.Tasks = slices.Delete(s.Tasks, i, i+1)
		return nil
	}); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PlannerHandler) ListReminders(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, withWarnings(map[string]interface{}{"reminders": ws.State.Snapshot().Reminders}, ws))
}

func (h *PlannerHandler) CreateReminder(w http.ResponseWriter, r *http.Request) {
	var req models.ReminderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}

	rem := reminderFrom(uuid.NewString(), req, true)
	if _, err := ws.State.Mutate(func(s *models.AppState) error {
		s.Reminders = append(s.Reminders, rem)
		return nil
	}); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, withWarnings(map[string]interface{}{"reminder": rem}, ws))
}

// UpdateReminder replaces a reminder. Active keeps its value when omitted.
func (h *PlannerHandler) UpdateReminder(w http.ResponseWriter, r *http.Request) {
	var req models.ReminderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	var updated models.Reminder
	if _, err := ws.State.Mutate(func(s *models.AppState) error {
		i := slices.IndexFunc(s.Reminders, func(rm models.Reminder) bool { return rm.ID == id })
		if i < 0 {
			return fmt.Errorf("%w: reminder %s", apperr.ErrNotFound, id)
		}
		updated = reminderFrom(id, req, s.Reminders[i].Active)
		s.Reminders[i] = updated
		return nil
	}); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, withWarnings(map[string]interface{}{"reminder": updated}, ws))
}

func (h *PlannerHandler) DeleteReminder(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := ws.State.Mutate(func(s *models.AppState) error {
		i := slices.IndexFunc(s.Reminders, func(rm models.Reminder) bool { return rm.ID == id })
		if i < 0 {
			return fmt.Errorf("%w: reminder %s", apperr.ErrNotFound, id)
		}
		s.Reminders = slices.Delete(s.Reminders, i, i+1)
		return nil
	}); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func reminderFrom(id string, req models.ReminderRequest, active bool) models.Reminder {
	if req.Active != nil {
		active = *req.Active
	}
	days := slices.Clone(req.Days)
	slices.Sort(days)
	return models.Reminder{
		ID:     id,
		Title:  strings.TrimSpace(req.Title),
		Time:   req.Time,
		Days:   slices.Compact(days),
		Active: active,
	}
}
