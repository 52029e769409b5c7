package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"studyhub-backend/internal/models"
)

// StateHandler serves the profile's whole state document, the student
// profile and opaque drafts.
type StateHandler struct {
	workspaces WorkspaceGetter
}

func NewStateHandler(workspaces WorkspaceGetter) *StateHandler {
	return &StateHandler{workspaces: workspaces}
}

func (h *StateHandler) Get(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, withWarnings(map[string]interface{}{
		"state":        ws.State.Snapshot(),
		"result_count": ws.Results.Len(),
	}, ws))
}

func (h *StateHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req models.StudentProfile
	if !decodeJSON(w, r, &req) {
		return
	}
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}

	st, err := ws.State.Mutate(func(s *models.AppState) error {
		s.StudentProfile = req
		return nil
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, withWarnings(map[string]interface{}{"profile": st.StudentProfile}, ws))
}

func (h *StateHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	raw, err := ws.Draft(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if raw == nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Draft not found", r))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

func (h *StateHandler) PutDraft(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil || !json.Valid(raw) {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Draft must be valid JSON", r))
		return
	}
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	if err := ws.SaveDraft(r.Context(), chi.URLParam(r, "name"), raw); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, withWarnings(map[string]interface{}{"message": "Draft saved"}, ws))
}

func (h *StateHandler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	if err := ws.DeleteDraft(r.Context(), chi.URLParam(r, "name")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
