package srs

import (
	"errors"
	"testing"
	"time"

	"studyhub-backend/internal/apperr"
	"studyhub-backend/internal/models"
)

func TestNewReviewSessionEmptyQueue(t *testing.T) {
	now := time.Now()
	cards := []models.Flashcard{{ID: "later", NextReview: models.Millis(now.Add(time.Hour))}}
	if _, err := NewReviewSession(cards, now); !errors.Is(err, ErrNothingToReview) {
		t.Fatalf("expected ErrNothingToReview, got %v", err)
	}
	if _, err := NewReviewSession(nil, now); !errors.Is(err, ErrNothingToReview) {
		t.Fatalf("expected ErrNothingToReview for empty deck, got %v", err)
	}
}

func TestReviewSessionWalksQueue(t *testing.T) {
	now := time.Now()
	cards := []models.Flashcard{{ID: "a"}, {ID: "b", Level: 3}}
	s, err := NewReviewSession(cards, now)
	if err != nil {
		t.Fatal(err)
	}
	if s.Remaining() != 2 {
		t.Fatalf("expected 2 remaining, got %d", s.Remaining())
	}

	got, err := s.Record(Remembered, now)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "a" || got.Level != 1 {
		t.Fatalf("unexpected first review: %+v", got)
	}

	got, err = s.Record(Forgotten, now)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "b" || got.Level != 0 {
		t.Fatalf("unexpected second review: %+v", got)
	}

	if !s.Done() {
		t.Fatal("expected session to be done")
	}
	if _, err := s.Record(Remembered, now); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition after finish, got %v", err)
	}
	if len(s.Reviewed()) != 2 {
		t.Fatalf("expected 2 reviewed cards, got %d", len(s.Reviewed()))
	}
}

func TestReviewSessionBadOutcomeDoesNotAdvance(t *testing.T) {
	s, err := NewReviewSession([]models.Flashcard{{ID: "a"}}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Record(Outcome("meh"), time.Now()); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if s.Remaining() != 1 {
		t.Fatalf("queue advanced on bad outcome")
	}
}

func TestReviewSessionAdvanceAndSkip(t *testing.T) {
	s, err := NewReviewSession([]models.Flashcard{{ID: "a"}, {ID: "b"}}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Advance(models.Flashcard{ID: "b"}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("expected mismatched card to be rejected, got %v", err)
	}
	if err := s.Advance(models.Flashcard{ID: "a", Level: 4}); err != nil {
		t.Fatal(err)
	}
	if skipped, ok := s.Skip(); !ok || skipped.ID != "b" {
		t.Fatalf("expected to skip b, got %+v %v", skipped, ok)
	}
	if !s.Done() {
		t.Fatal("expected session to be done")
	}
	if _, ok := s.Skip(); ok {
		t.Fatal("skip past the end should report false")
	}
	if got := s.Reviewed(); len(got) != 1 || got[0].Level != 4 {
		t.Fatalf("expected only the advanced card to be recorded, got %+v", got)
	}
	if err := s.Advance(models.Flashcard{ID: "a"}); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition after finish, got %v", err)
	}
}
