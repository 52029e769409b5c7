package handlers

import (
	"net/http"

	"studyhub-backend/internal/models"
	"studyhub-backend/internal/quiz"
	"studyhub-backend/internal/services"
)

// DefaultGapAnalysisWindow bounds how many recent results feed a gap analysis.
const DefaultGapAnalysisWindow = 5

// ExamHandler serves the result log and gap analysis over it.
type ExamHandler struct {
	sessions   *quiz.Manager
	workspaces WorkspaceGetter
	gen        services.Generator
	window     int
}

func NewExamHandler(sessions *quiz.Manager, workspaces WorkspaceGetter, gen services.Generator, window int) *ExamHandler {
	if window <= 0 {
		window = DefaultGapAnalysisWindow
	}
	return &ExamHandler{sessions: sessions, workspaces: workspaces, gen: gen, window: window}
}

// History lists graded results, newest first.
func (h *ExamHandler) History(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	history := ws.Results.All()
	if history == nil {
		history = []models.ExamResult{}
	}
	writeJSON(w, http.StatusOK, withWarnings(map[string]interface{}{"results": history}, ws))
}

// ClearHistory empties the result log. It requires ?confirm=true.
func (h *ExamHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if !confirmed(r) {
		writeJSON(w, http.StatusConflict, errorResp("CONFIRMATION_REQUIRED", "Clearing history cannot be undone", r))
		return
	}
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	if err := ws.Results.Clear(r.Context()); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GapAnalysis diagnoses weak areas from recent results and opens a remedial
// session over the suggested questions.
func (h *ExamHandler) GapAnalysis(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	history := ws.Results.Recent(h.window)
	if len(history) == 0 {
		writeJSON(w, http.StatusConflict, errorResp("INVALID_STATE", "Take at least one exam before requesting a gap analysis", r))
		return
	}

	analysis, err := h.gen.GenerateGapAnalysis(r.Context(), history, ws.State.Snapshot().StudentProfile)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	remedial := quiz.ValidateQuestions(analysis.RemedialQuestions)
	if len(remedial) == 0 {
		writeJSON(w, http.StatusBadGateway, errorResp("GENERATION_FAILED", "The analysis did not include any usable practice questions", r))
		return
	}
	analysis.RemedialQuestions = remedial

	sess, err := h.sessions.Create(ws.ProfileID, quiz.Config{
		Kind:    quiz.KindRemedial,
		Subject: "remedial",
		Results: ws.Results,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if err := sess.Generate(r.Context(), quiz.Fixed(remedial)); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, withWarnings(map[string]interface{}{
		"diagnosis": analysis.Diagnosis,
		"session":   sess.View(),
	}, ws))
}
