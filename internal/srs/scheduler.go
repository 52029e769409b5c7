// Package srs implements the spaced-repetition ladder used for flashcard review.
//
// A card at level L that is remembered moves to level L+1 and becomes due again
// after 2^L days. A forgotten card drops back to level 0 and is due immediately.
package srs

import (
	"cmp"
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"studyhub-backend/internal/apperr"
	"studyhub-backend/internal/models"
)

type Outcome string

const (
	Remembered Outcome = "remembered"
	Forgotten  Outcome = "forgotten"
)

// Day is the base interval of the ladder.
const Day = 24 * time.Hour

const dayMillis = int64(Day / time.Millisecond)

// maxShift caps the exponent. 2^30 days in milliseconds is about 9.3e16, so the
// interval plus any realistic timestamp stays inside int64.
const maxShift = 30

// ParseOutcome accepts the canonical outcome names and the "easy"/"hard"
// button labels used by the review screen.
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "remembered", "easy":
		return Remembered, nil
	case "forgotten", "hard":
		return Forgotten, nil
	}
	return "", fmt.Errorf("%w: unknown review outcome %q", apperr.ErrInvalidArgument, s)
}

// IsDue reports whether card may be reviewed at now.
func IsDue(card models.Flashcard, now time.Time) bool {
	return card.NextReview == nil || *card.NextReview <= now.UnixMilli()
}

// DueCards yields every due card in the order they appear in cards.
func DueCards(cards []models.Flashcard, now time.Time) iter.Seq[models.Flashcard] {
	return func(yield func(models.Flashcard) bool) {
		for _, c := range cards {
			if !IsDue(c, now) {
				continue
			}
			if !yield(c) {
				return
			}
		}
	}
}

// DueCardsByUrgency returns the due cards ordered by NextReview ascending.
// Cards never scheduled come first; ties keep store order.
func DueCardsByUrgency(cards []models.Flashcard, now time.Time) []models.Flashcard {
	due := slices.Collect(DueCards(cards, now))
	slices.SortStableFunc(due, func(a, b models.Flashcard) int {
		switch {
		case a.NextReview == nil && b.NextReview == nil:
			return 0
		case a.NextReview == nil:
			return -1
		case b.NextReview == nil:
			return 1
		}
		return cmp.Compare(*a.NextReview, *b.NextReview)
	})
	return due
}

// IntervalMillis returns the wait in milliseconds after a successful review
// that lands on level. time.Duration would overflow from level 18 upwards.
func IntervalMillis(level int) int64 {
	if level < 1 {
		return 0
	}
	return dayMillis << min(level-1, maxShift)
}

// RecordOutcome returns card updated for outcome at now. The input is not modified.
func RecordOutcome(card models.Flashcard, outcome Outcome, now time.Time) (models.Flashcard, error) {
	switch outcome {
	case Forgotten:
		card.Level = 0
		card.NextReview = models.Millis(now)
	case Remembered:
		if card.Level < 0 {
			card.Level = 0
		}
		card.Level++
		next := now.UnixMilli() + IntervalMillis(card.Level)
		card.NextReview = &next
	default:
		return card, fmt.Errorf("%w: unknown review outcome %q", apperr.ErrInvalidArgument, outcome)
	}
	return card, nil
}

// Stats summarises a deck for the dashboard.
func Stats(cards []models.Flashcard, now time.Time) models.DeckStats {
	s := models.DeckStats{TotalCards: len(cards)}
	for _, c := range cards {
		switch {
		case c.Level == 0:
			s.New++
		case c.Level >= 5:
			s.Mastered++
		default:
			s.Learning++
		}
		if IsDue(c, now) {
			s.DueNow++
		}
	}
	return s
}
