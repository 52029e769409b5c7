package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"studyhub-backend/internal/models"
	"studyhub-backend/internal/quiz"
	"studyhub-backend/internal/services"
	"studyhub-backend/internal/store"
)

// DefaultExamDuration applies to mock exams started without a time limit.
const DefaultExamDuration = 45 * time.Minute

type SessionHandler struct {
	sessions   *quiz.Manager
	workspaces WorkspaceGetter
	gen        services.Generator
}

func NewSessionHandler(sessions *quiz.Manager, workspaces WorkspaceGetter, gen services.Generator) *SessionHandler {
	return &SessionHandler{sessions: sessions, workspaces: workspaces, gen: gen}
}

// Create opens a quiz or exam session and starts generating its questions.
// The response returns while generation is still running.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.StartSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	for _, t := range req.Types {
		if !t.Valid() {
			writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Unknown question type",
				map[string]string{"types": string(t)}, r))
			return
		}
	}
	if strings.TrimSpace(req.Topic) == "" && req.Material == nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "A topic or reference material is required", r))
		return
	}

	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}

	kind := quiz.Kind(req.Kind)
	limit := time.Duration(req.TimeLimitSeconds) * time.Second
	if kind == quiz.KindExam && limit == 0 {
		limit = DefaultExamDuration
	}

	sess, err := h.sessions.Create(ws.ProfileID, quiz.Config{
		Kind:      kind,
		Subject:   req.Subject,
		TimeLimit: limit,
		Types:     req.Types,
		Results:   ws.Results,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	qreq := models.QuizRequest{
		Topic:    req.Topic,
		Material: req.Material,
		Types:    req.Types,
		Subject:  req.Subject,
		Profile:  ws.State.Snapshot().StudentProfile,
		Exam:     kind == quiz.KindExam,
	}
	if err := sess.Generate(r.Context(), func(ctx context.Context) ([]models.QuizQuestion, error) {
		return h.gen.GenerateQuiz(ctx, qreq)
	}); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{"session": sess.View()})
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*quiz.Session, *store.Workspace, bool) {
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return nil, nil, false
	}
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return nil, nil, false
	}
	sess, err := h.sessions.Get(ws.ProfileID, id)
	if err != nil {
		handleServiceError(w, r, err)
		return nil, nil, false
	}
	return sess, ws, true
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"session": sess.View()})
}

func (h *SessionHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req models.AnswerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, _, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.Answer(chi.URLParam(r, "questionId"), req.Answer); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"session": sess.View()})
}

func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sess, ws, ok := h.session(w, r)
	if !ok {
		return
	}
	result, warnings, err := sess.Submit()
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, withWarnings(map[string]interface{}{
		"result":  result,
		"session": sess.View(),
	}, ws, warnings...))
}

// Abandon leaves the session. A running attempt needs ?confirm=true.
func (h *SessionHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	sess, ws, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.Abandon(confirmed(r)); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.sessions.Remove(ws.ProfileID, sess.ID())
	writeJSON(w, http.StatusOK, map[string]string{"message": "Session abandoned"})
}

// Reset returns a graded session to setup for another attempt.
func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.Reset(); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"session": sess.View()})
}

// SessionEvents forwards session events to the profile's live connections.
func SessionEvents(n services.Notifier) func(profileID uuid.UUID, ev quiz.Event) {
	return func(profileID uuid.UUID, ev quiz.Event) {
		payload := models.SessionEvent{
			SessionID:        ev.SessionID,
			Status:           string(ev.Status),
			RemainingSeconds: int((ev.Remaining + time.Second - 1) / time.Second),
			Result:           ev.Result,
		}
		if ev.Err != nil {
			payload.Error = ev.Err.Error()
		}
		n.Notify(profileID, models.WSMessage{Type: "session." + string(ev.Type), Payload: payload})
	}
}
