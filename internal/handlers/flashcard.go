package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"studyhub-backend/internal/apperr"
	"studyhub-backend/internal/middleware"
	"studyhub-backend/internal/models"
	"studyhub-backend/internal/services"
	"studyhub-backend/internal/srs"
)

type FlashcardHandler struct {
	cards      *services.FlashcardService
	workspaces WorkspaceGetter
	gen        services.Generator
}

func NewFlashcardHandler(cards *services.FlashcardService, workspaces WorkspaceGetter, gen services.Generator) *FlashcardHandler {
	return &FlashcardHandler{cards: cards, workspaces: workspaces, gen: gen}
}

func (h *FlashcardHandler) List(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	cards, err := h.cards.List(r.Context(), ws.ProfileID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if cards == nil {
		cards = []models.Flashcard{}
	}
	writeJSON(w, http.StatusOK, withWarnings(map[string]interface{}{"flashcards": cards}, ws))
}

// Due lists the review queue in deck order, or oldest first with ?order=urgency.
func (h *FlashcardHandler) Due(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	due, stats, err := h.cards.Due(r.Context(), ws.ProfileID, r.URL.Query().Get("order") == "urgency")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, withWarnings(map[string]interface{}{
		"flashcards": due,
		"stats":      stats,
	}, ws))
}

func (h *FlashcardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateFlashcardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}

	created, err := h.cards.Add(r.Context(), ws.ProfileID, req.Subject, models.FlashcardDraft{Front: req.Front, Back: req.Back})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, withWarnings(map[string]interface{}{"flashcard": created[0]}, ws))
}

// Generate asks the generator for cards from free text and adds them to the deck.
func (h *FlashcardHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateFlashcardsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}

	drafts, err := h.gen.GenerateFlashcards(r.Context(), req.Content, ws.State.Snapshot().StudentProfile)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if len(drafts) == 0 {
		handleServiceError(w, r, fmt.Errorf("%w: no flashcards generated", apperr.ErrGenerationFailed))
		return
	}

	created, err := h.cards.Add(r.Context(), ws.ProfileID, req.Subject, drafts...)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, withWarnings(map[string]interface{}{"flashcards": created}, ws))
}

func (h *FlashcardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	if err := h.cards.Delete(r.Context(), ws.ProfileID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Review records one outcome for a single card.
func (h *FlashcardHandler) Review(w http.ResponseWriter, r *http.Request) {
	outcome, ok := decodeOutcome(w, r)
	if !ok {
		return
	}
	profileID := middleware.GetProfileID(r.Context())

	card, err := h.cards.Review(r.Context(), profileID, chi.URLParam(r, "id"), outcome)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"flashcard": card})
}

func (h *FlashcardHandler) StartReview(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	state, err := h.cards.StartReview(r.Context(), ws.ProfileID)
	if errors.Is(err, srs.ErrNothingToReview) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"review":            services.ReviewState{Done: true},
			"nothing_to_review": true,
			"message":           "No cards are due. Come back later!",
		})
		return
	}
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, withWarnings(map[string]interface{}{"review": state}, ws))
}

func (h *FlashcardHandler) AnswerReview(w http.ResponseWriter, r *http.Request) {
	outcome, ok := decodeOutcome(w, r)
	if !ok {
		return
	}
	ws, ok := workspace(w, r, h.workspaces)
	if !ok {
		return
	}
	state, err := h.cards.AnswerReview(r.Context(), ws.ProfileID, outcome)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, withWarnings(map[string]interface{}{"review": state}, ws))
}

func decodeOutcome(w http.ResponseWriter, r *http.Request) (srs.Outcome, bool) {
	var req models.ReviewOutcomeRequest
	if !decodeJSON(w, r, &req) {
		return "", false
	}
	outcome, err := srs.ParseOutcome(req.Outcome)
	if err != nil {
		handleServiceError(w, r, err)
		return "", false
	}
	return outcome, true
}
