package handlers

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"studyhub-backend/internal/apperr"
	"studyhub-backend/internal/models"
	"studyhub-backend/internal/services"
)

const chatTitleRunes = 40

type ChatHandler struct {
	workspaces WorkspaceGetter
	gen        services.Generator
}

func NewChatHandler(workspaces WorkspaceGetter, gen services.Generator) *ChatHandler {
	return &ChatHandler{workspaces: workspaces, gen: gen}
}

// Chat sends one message to the tutor. Without a session_id a new
// conversation is started; both turns are saved to the profile's state.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" && req.ImageBase64 == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "A message or an image is required", r))
		return
	}
	var image *models.Material
	if req.ImageBase64 != "" {
		img, err := decodeImage(req.ImageBase64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Invalid image",
				map[string]string{"image_base64": "base64"}, r))
			return
		}
		image = img
	}

	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	snap := ws.State.Snapshot()

	var history []models.ChatMessage
	if req.SessionID != "" {
		i := slices.IndexFunc(snap.ChatSessions, func(c models.ChatSession) bool { return c.ID == req.SessionID })
		if i < 0 {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Chat session not found", r))
			return
		}
		history = snap.ChatSessions[i].Messages
	}

	reply, err := h.gen.Chat(r.Context(), services.ChatInput{
		Message:  req.Message,
		Image:    image,
		GenZ:     req.GenZMode,
		Socratic: req.Socratic,
		History:  history,
		Profile:  snap.StudentProfile,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	userMsg := models.ChatMessage{ID: uuid.NewString(), Role: "user", Text: req.Message, Image: req.ImageBase64}
	modelMsg := models.ChatMessage{ID: uuid.NewString(), Role: "model", Text: reply}
	sessionID := req.SessionID
	if _, err := ws.State.Mutate(func(s *models.AppState) error {
		if sessionID != "" {
			i := slices.IndexFunc(s.ChatSessions, func(c models.ChatSession) bool { return c.ID == sessionID })
			if i < 0 {
				return fmt.Errorf("%w: chat session %s was deleted", apperr.ErrNotFound, sessionID)
			}
			s.ChatSessions[i].Messages = append(s.ChatSessions[i].Messages, userMsg, modelMsg)
			s.ChatSessions[i].Date = time.Now().UTC()
			return nil
		}
		sessionID = uuid.NewString()
		s.ChatSessions = append([]models.ChatSession{{
			ID:       sessionID,
			Title:    chatTitle(req.Message),
			Messages: []models.ChatMessage{userMsg, modelMsg},
			Date:     time.Now().UTC(),
		}}, s.ChatSessions...)
		return nil
	}); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, withWarnings(map[string]interface{}{
		"session_id": sessionID,
		"reply":      reply,
	}, ws))
}

// Explain gives a short explanation of a highlighted passage.
func (h *ChatHandler) Explain(w http.ResponseWriter, r *http.Request) {
	var req models.ExplainRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	text, err := h.gen.Explain(r.Context(), req.Text, ws.State.Snapshot().StudentProfile)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"explanation": text})
}

// decodeImage accepts raw base64 or a data: URL.
func decodeImage(s string) (*models.Material, error) {
	mime := "image/jpeg"
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		header, data, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(header, ";base64") {
			return nil, fmt.Errorf("%w: malformed data URL", apperr.ErrInvalidArgument)
		}
		mime = strings.TrimSuffix(header, ";base64")
		s = data
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidArgument, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty image", apperr.ErrInvalidArgument)
	}
	return &models.Material{MIMEType: mime, Data: raw, Name: "image"}, nil
}

func chatTitle(msg string) string {
	if msg == "" {
		return "Image question"
	}
	if r := []rune(msg); len(r) > chatTitleRunes {
		return string(r[:chatTitleRunes]) + "..."
	}
	return msg
}
