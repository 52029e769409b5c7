package handlers

import (
	"net/http"

	"studyhub-backend/internal/grades"
	"studyhub-backend/internal/models"
	"studyhub-backend/internal/services"
)

// GradeHandler serves the grade tracker, career analysis and the study roadmap.
type GradeHandler struct {
	workspaces WorkspaceGetter
	gen        services.Generator
}

func NewGradeHandler(workspaces WorkspaceGetter, gen services.Generator) *GradeHandler {
	return &GradeHandler{workspaces: workspaces, gen: gen}
}

func (h *GradeHandler) Get(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, withWarnings(map[string]interface{}{
		"grades": ws.State.Snapshot().GradeRecord,
	}, ws))
}

// Put replaces the whole grade record. Averages are always recomputed.
func (h *GradeHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req models.GradeRecord
	if !decodeJSON(w, r, &req) {
		return
	}
	record, err := grades.Recompute(req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	st, err := ws.State.Mutate(func(s *models.AppState) error {
		s.GradeRecord = record
		return nil
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, withWarnings(map[string]interface{}{"grades": st.GradeRecord}, ws))
}

// Analyze suggests majors and universities from the stored grades.
func (h *GradeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	snap := ws.State.Snapshot()
	if len(snap.GradeRecord) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Enter some grades before requesting an analysis", r))
		return
	}
	suggestion, err := h.gen.AnalyzeGrades(r.Context(), snap.GradeRecord, snap.StudentProfile)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"analysis": suggestion})
}

// Roadmap returns the cached roadmap; "roadmap" is null until one is generated.
func (h *GradeHandler) Roadmap(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	rm, err := ws.Roadmap(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, withWarnings(map[string]interface{}{"roadmap": rm}, ws))
}

// GenerateRoadmap builds a new roadmap and replaces the cached one.
func (h *GradeHandler) GenerateRoadmap(w http.ResponseWriter, r *http.Request) {
	var req models.RoadmapRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	rm, err := h.gen.GenerateRoadmap(r.Context(), req.Target, req.CurrentLevel, ws.State.Snapshot().StudentProfile)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if err := ws.SaveRoadmap(r.Context(), rm); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, withWarnings(map[string]interface{}{"roadmap": rm}, ws))
}
