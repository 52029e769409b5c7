package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"studyhub-backend/internal/apperr"
	"studyhub-backend/internal/logger"
	"studyhub-backend/internal/models"
	"studyhub-backend/internal/srs"
)

// ReviewState describes a profile's review session after each step.
type ReviewState struct {
	Current   *models.Flashcard `json:"current"`
	Remaining int               `json:"remaining"`
	Reviewed  int               `json:"reviewed"`
	Done      bool              `json:"done"`
	Last      *models.Flashcard `json:"last,omitempty"`
	// Skipped names a card deleted from the deck while it was queued.
	Skipped string `json:"skipped,omitempty"`
}

// FlashcardService manages a profile's deck and its review sessions.
type FlashcardService struct {
	workspaces WorkspaceGetter
	log        *logger.Logger
	now        func() time.Time

	mu      sync.Mutex
	reviews map[uuid.UUID]*srs.ReviewSession
}

func NewFlashcardService(workspaces WorkspaceGetter, log *logger.Logger) *FlashcardService {
	return &FlashcardService{
		workspaces: workspaces,
		log:        logger.OrNop(log),
		now:        time.Now,
		reviews:    make(map[uuid.UUID]*srs.ReviewSession),
	}
}

func (s *FlashcardService) List(ctx context.Context, profileID uuid.UUID) ([]models.Flashcard, error) {
	ws, err := s.workspaces.Get(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return ws.State.Snapshot().Flashcards, nil
}

// Due returns the due queue. byUrgency sorts the oldest-due cards first.
func (s *FlashcardService) Due(ctx context.Context, profileID uuid.UUID, byUrgency bool) ([]models.Flashcard, models.DeckStats, error) {
	ws, err := s.workspaces.Get(ctx, profileID)
	if err != nil {
		return nil, models.DeckStats{}, err
	}
	cards := ws.State.Snapshot().Flashcards
	now := s.now()
	var due []models.Flashcard
	if byUrgency {
		due = srs.DueCardsByUrgency(cards, now)
	} else {
		due = slices.Collect(srs.DueCards(cards, now))
	}
	if due == nil {
		due = []models.Flashcard{}
	}
	return due, srs.Stats(cards, now), nil
}

// Add stores new cards at level 0, due immediately. Unknown subjects fall
// back to General.
func (s *FlashcardService) Add(ctx context.Context, profileID uuid.UUID, subject models.Subject, drafts ...models.FlashcardDraft) ([]models.Flashcard, error) {
	if !subject.Valid() {
		subject = models.SubjectGeneral
	}
	now := models.Millis(s.now())
	created := make([]models.Flashcard, 0, len(drafts))
	for _, d := range drafts {
		front, back := strings.TrimSpace(d.Front), strings.TrimSpace(d.Back)
		if front == "" || back == "" {
			return nil, fmt.Errorf("%w: flashcard front and back are required", apperr.ErrInvalidArgument)
		}
		next := *now
		created = append(created, models.Flashcard{
			ID:         uuid.NewString(),
			Front:      front,
			Back:       back,
			Subject:    subject,
			Level:      0,
			NextReview: &next,
		})
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("%w: no flashcards to add", apperr.ErrInvalidArgument)
	}

	ws, err := s.workspaces.Get(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if _, err := ws.State.Mutate(func(st *models.AppState) error {
		st.Flashcards = append(st.Flashcards, created...)
		return nil
	}); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *FlashcardService) Delete(ctx context.Context, profileID uuid.UUID, cardID string) error {
	ws, err := s.workspaces.Get(ctx, profileID)
	if err != nil {
		return err
	}
	_, err = ws.State.Mutate(func(st *models.AppState) error {
		i := slices.IndexFunc(st.Flashcards, func(c models.Flashcard) bool { return c.ID == cardID })
		if i < 0 {
			return fmt.Errorf("%w: flashcard %s", apperr.ErrNotFound, cardID)
		}
		st.Flashcards = slices.Delete(st.Flashcards, i, i+1)
		return nil
	})
	return err
}

// Review applies one outcome to a single card outside of a review session.
func (s *FlashcardService) Review(ctx context.Context, profileID uuid.UUID, cardID string, outcome srs.Outcome) (models.Flashcard, error) {
	ws, err := s.workspaces.Get(ctx, profileID)
	if err != nil {
		return models.Flashcard{}, err
	}
	var updated models.Flashcard
	_, err = ws.State.Mutate(func(st *models.AppState) error {
		i := slices.IndexFunc(st.Flashcards, func(c models.Flashcard) bool { return c.ID == cardID })
		if i < 0 {
			return fmt.Errorf("%w: flashcard %s", apperr.ErrNotFound, cardID)
		}
		card, err := srs.RecordOutcome(st.Flashcards[i], outcome, s.now())
		if err != nil {
			return err
		}
		st.Flashcards[i] = card
		updated = card
		return nil
	})
	return updated, err
}

// StartReview snapshots the due queue into a new review session, replacing
// any unfinished one. An empty queue returns srs.ErrNothingToReview.
func (s *FlashcardService) StartReview(ctx context.Context, profileID uuid.UUID) (ReviewState, error) {
	ws, err := s.workspaces.Get(ctx, profileID)
	if err != nil {
		return ReviewState{}, err
	}
	rs, err := srs.NewReviewSession(ws.State.Snapshot().Flashcards, s.now())
	if err != nil {
		s.mu.Lock()
		delete(s.reviews, profileID)
		s.mu.Unlock()
		return ReviewState{}, err
	}

	s.mu.Lock()
	s.reviews[profileID] = rs
	state := reviewState(rs, nil)
	s.mu.Unlock()
	return state, nil
}

// AnswerReview records the outcome against the deck's live copy of the current
// card and advances. A card deleted since the session started is skipped and
// reported in ReviewState.Skipped.
func (s *FlashcardService) AnswerReview(ctx context.Context, profileID uuid.UUID, outcome srs.Outcome) (ReviewState, error) {
	ws, err := s.workspaces.Get(ctx, profileID)
	if err != nil {
		return ReviewState{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.reviews[profileID]
	if !ok {
		return ReviewState{}, fmt.Errorf("%w: no review session in progress", apperr.ErrInvalidTransition)
	}
	current, ok := rs.Current()
	if !ok {
		delete(s.reviews, profileID)
		return ReviewState{}, fmt.Errorf("%w: review session already finished", apperr.ErrInvalidTransition)
	}

	var updated models.Flashcard
	_, err = ws.State.Mutate(func(st *models.AppState) error {
		i := slices.IndexFunc(st.Flashcards, func(c models.Flashcard) bool { return c.ID == current.ID })
		if i < 0 {
			return fmt.Errorf("%w: flashcard %s", apperr.ErrNotFound, current.ID)
		}
		card, err := srs.RecordOutcome(st.Flashcards[i], outcome, s.now())
		if err != nil {
			return err
		}
		st.Flashcards[i] = card
		updated = card
		return nil
	})

	var state ReviewState
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		rs.Skip()
		state = reviewState(rs, nil)
		state.Skipped = current.ID
	case err != nil:
		return ReviewState{}, err
	default:
		if err := rs.Advance(updated); err != nil {
			return ReviewState{}, err
		}
		state = reviewState(rs, &updated)
	}

	if rs.Done() {
		delete(s.reviews, profileID)
		s.log.Debug("review session finished", "profile_id", profileID, "reviewed", state.Reviewed)
	}
	return state, nil
}

func reviewState(rs *srs.ReviewSession, last *models.Flashcard) ReviewState {
	st := ReviewState{
		Remaining: rs.Remaining(),
		Reviewed:  len(rs.Reviewed()),
		Done:      rs.Done(),
		Last:      last,
	}
	if card, ok := rs.Current(); ok {
		st.Current = &card
	}
	return st
}
