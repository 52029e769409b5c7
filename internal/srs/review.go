package srs

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"studyhub-backend/internal/apperr"
	"studyhub-backend/internal/models"
)

// ErrNothingToReview is returned when a review session starts with an empty
// due queue. It is a terminal condition, not a failure.
var ErrNothingToReview = errors.New("nothing to review")

var errFinished = fmt.Errorf("%w: review session already finished", apperr.ErrInvalidTransition)

// ReviewSession walks a snapshot of the due queue one card at a time.
type ReviewSession struct {
	queue    []models.Flashcard
	pos      int
	reviewed []models.Flashcard
}

// NewReviewSession snapshots the due queue at now.
func NewReviewSession(cards []models.Flashcard, now time.Time) (*ReviewSession, error) {
	queue := slices.Collect(DueCards(cards, now))
	if len(queue) == 0 {
		return nil, ErrNothingToReview
	}
	return &ReviewSession{queue: queue}, nil
}

// Current returns the card being presented, and false once the queue is exhausted.
func (s *ReviewSession) Current() (models.Flashcard, bool) {
	if s.pos >= len(s.queue) {
		return models.Flashcard{}, false
	}
	return s.queue[s.pos], true
}

// Record applies outcome to the current card and advances.
func (s *ReviewSession) Record(outcome Outcome, now time.Time) (models.Flashcard, error) {
	card, ok := s.Current()
	if !ok {
		return models.Flashcard{}, errFinished
	}
	updated, err := RecordOutcome(card, outcome, now)
	if err != nil {
		return models.Flashcard{}, err
	}
	return updated, s.Advance(updated)
}

// Advance moves past the current card, recording updated as its new state.
// updated must carry the current card's ID; callers use it when the outcome
// was applied to a fresher copy than the snapshot.
func (s *ReviewSession) Advance(updated models.Flashcard) error {
	card, ok := s.Current()
	if !ok {
		return errFinished
	}
	if card.ID != updated.ID {
		return fmt.Errorf("%w: expected card %s, got %s", apperr.ErrInvalidArgument, card.ID, updated.ID)
	}
	s.pos++
	s.reviewed = append(s.reviewed, updated)
	return nil
}

// Skip moves past the current card without recording it and returns the card.
func (s *ReviewSession) Skip() (models.Flashcard, bool) {
	card, ok := s.Current()
	if ok {
		s.pos++
	}
	return card, ok
}

func (s *ReviewSession) Remaining() int { return len(s.queue) - s.pos }

func (s *ReviewSession) Done() bool { return s.pos >= len(s.queue) }

// Reviewed returns the updated cards in review order.
func (s *ReviewSession) Reviewed() []models.Flashcard {
	return slices.Clone(s.reviewed)
}
