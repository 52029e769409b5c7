package handlers

import (
	"net/http"

	"studyhub-backend/internal/middleware"
	"studyhub-backend/internal/services"
)

// StudySessionHandler drives the study-minute ticker from the client's
// start, heartbeat and stop calls.
type StudySessionHandler struct {
	tracker    *services.StudyTracker
	workspaces WorkspaceGetter
}

func NewStudySessionHandler(tracker *services.StudyTracker, workspaces WorkspaceGetter) *StudySessionHandler {
	return &StudySessionHandler{tracker: tracker, workspaces: workspaces}
}

func (h *StudySessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	sess, err := h.tracker.Start(r.Context(), ws.ProfileID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, withWarnings(map[string]interface{}{
		"session": sess,
		"stats":   ws.State.Snapshot().StudyStats,
	}, ws))
}

func (h *StudySessionHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	sess, err := h.tracker.Heartbeat(middleware.GetProfileID(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"session": sess})
}

func (h *StudySessionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	sess, err := h.tracker.Stop(ws.ProfileID, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, withWarnings(map[string]interface{}{
		"session": sess,
		"stats":   ws.State.Snapshot().StudyStats,
	}, ws))
}
