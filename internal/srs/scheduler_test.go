package srs

import (
	"errors"
	"slices"
	"testing"
	"time"

	"studyhub-backend/internal/apperr"
	"studyhub-backend/internal/models"
)

func ms(t time.Time) *int64 { return models.Millis(t) }

func ids(cards []models.Flashcard) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.ID)
	}
	return out
}

func TestRecordOutcomeForgottenResetsLadder(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for _, level := range []int{0, 1, 4, 12} {
		card := models.Flashcard{ID: "c", Level: level, NextReview: ms(now.Add(72 * time.Hour))}
		got, err := RecordOutcome(card, Forgotten, now)
		if err != nil {
			t.Fatalf("level %d: unexpected error: %v", level, err)
		}
		if got.Level != 0 {
			t.Fatalf("level %d: expected level 0, got %d", level, got.Level)
		}
		if *got.NextReview != now.UnixMilli() {
			t.Fatalf("level %d: expected next review now, got %d", level, *got.NextReview)
		}
	}
}

func TestRecordOutcomeRememberedDoubles(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	dayMs := int64(24 * 60 * 60 * 1000)
	for level := 0; level <= maxShift; level++ {
		card := models.Flashcard{ID: "c", Level: level}
		got, err := RecordOutcome(card, Remembered, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Level != level+1 {
			t.Fatalf("expected level %d, got %d", level+1, got.Level)
		}
		want := now.UnixMilli() + (int64(1)<<level)*dayMs
		if *got.NextReview != want {
			t.Fatalf("level %d: expected next review %d, got %d", level, want, *got.NextReview)
		}
	}
}

func TestRecordOutcomeDoesNotMutateInput(t *testing.T) {
	now := time.Now()
	orig := models.Flashcard{ID: "c", Level: 2, NextReview: ms(now)}
	before := *orig.NextReview
	if _, err := RecordOutcome(orig, Remembered, now); err != nil {
		t.Fatal(err)
	}
	if orig.Level != 2 || *orig.NextReview != before {
		t.Fatalf("input card was modified: %+v", orig)
	}
}

func TestRecordOutcomeRejectsUnknownOutcome(t *testing.T) {
	_, err := RecordOutcome(models.Flashcard{ID: "c"}, Outcome("maybe"), time.Now())
	if !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestRecordOutcomeHugeLevelDoesNotOverflow(t *testing.T) {
	now := time.Now()
	capped := now.UnixMilli() + (int64(1)<<30)*dayMillis
	for _, level := range []int{30, 31, 64, 500} {
		got, err := RecordOutcome(models.Flashcard{ID: "c", Level: level}, Remembered, now)
		if err != nil {
			t.Fatal(err)
		}
		if *got.NextReview != capped {
			t.Fatalf("level %d: expected capped review time %d, got %d", level, capped, *got.NextReview)
		}
	}
}

func TestIntervalMillisIsMonotonic(t *testing.T) {
	prev := IntervalMillis(0)
	for level := 1; level <= 40; level++ {
		got := IntervalMillis(level)
		if got < prev || got <= 0 {
			t.Fatalf("level %d: interval %d after %d", level, got, prev)
		}
		prev = got
	}
}

func TestParseOutcome(t *testing.T) {
	tests := []struct {
		in      string
		want    Outcome
		wantErr bool
	}{
		{"remembered", Remembered, false},
		{" Forgotten ", Forgotten, false},
		{"easy", Remembered, false},
		{"hard", Forgotten, false},
		{"", "", true},
		{"skip", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutcome(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseOutcome(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseOutcome(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDueCardsKeepsInsertionOrder(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	cards := []models.Flashcard{
		{ID: "late-due", NextReview: ms(now.Add(-time.Minute))},
		{ID: "future", NextReview: ms(now.Add(time.Hour))},
		{ID: "new"},
		{ID: "early-due", NextReview: ms(now.Add(-48 * time.Hour))},
		{ID: "exact", NextReview: ms(now)},
	}

	got := ids(slices.Collect(DueCards(cards, now)))
	want := []string{"late-due", "new", "early-due", "exact"}
	if !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	again := ids(slices.Collect(DueCards(cards, now)))
	if !slices.Equal(got, again) {
		t.Fatalf("repeated calls disagree: %v vs %v", got, again)
	}
}

func TestDueCardsNeverYieldsFutureCards(t *testing.T) {
	now := time.Now()
	var cards []models.Flashcard
	for i := -10; i <= 10; i++ {
		cards = append(cards, models.Flashcard{ID: "c", NextReview: ms(now.Add(time.Duration(i) * time.Hour))})
	}
	for c := range DueCards(cards, now) {
		if *c.NextReview > now.UnixMilli() {
			t.Fatalf("future card yielded: %d > %d", *c.NextReview, now.UnixMilli())
		}
	}
}

func TestDueCardsByUrgencySortsOldestFirst(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	cards := []models.Flashcard{
		{ID: "a", NextReview: ms(now.Add(-time.Minute))},
		{ID: "b"},
		{ID: "c", NextReview: ms(now.Add(-48 * time.Hour))},
		{ID: "d", NextReview: ms(now.Add(time.Hour))},
		{ID: "e"},
	}
	got := ids(DueCardsByUrgency(cards, now))
	want := []string{"b", "e", "c", "a"}
	if !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestScenarioNewCardLifecycle(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	cards := []models.Flashcard{{ID: "new", Front: "2+2", Back: "4"}}

	if got := ids(slices.Collect(DueCards(cards, now))); !slices.Equal(got, []string{"new"}) {
		t.Fatalf("new card should be due immediately, got %v", got)
	}

	updated, err := RecordOutcome(cards[0], Remembered, now)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Level != 1 || *updated.NextReview != now.Add(Day).UnixMilli() {
		t.Fatalf("unexpected card after first success: %+v", updated)
	}
	cards[0] = updated

	if got := slices.Collect(DueCards(cards, now)); len(got) != 0 {
		t.Fatalf("card should not be due right after review, got %v", ids(got))
	}
	if got := ids(slices.Collect(DueCards(cards, now.Add(Day)))); !slices.Equal(got, []string{"new"}) {
		t.Fatalf("card should be due one day later, got %v", got)
	}
}

func TestStats(t *testing.T) {
	now := time.Now()
	cards := []models.Flashcard{
		{ID: "a"},
		{ID: "b", Level: 2, NextReview: ms(now.Add(time.Hour))},
		{ID: "c", Level: 6, NextReview: ms(now.Add(-time.Hour))},
	}
	s := Stats(cards, now)
	if s.TotalCards != 3 || s.New != 1 || s.Learning != 1 || s.Mastered != 1 || s.DueNow != 2 {
		t.Fatalf("unexpected stats: %+v", s)
	}
}
