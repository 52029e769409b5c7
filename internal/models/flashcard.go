package models

import "time"

type Subject string

const (
	SubjectMath        Subject = "Toán"
	SubjectLiterature  Subject = "Văn"
	SubjectEnglish     Subject = "Anh"
	SubjectInformatics Subject = "Tin"
	SubjectGeneral     Subject = "General"
)

// Subjects lists the fixed subject enumeration, General excluded.
var Subjects = []Subject{SubjectMath, SubjectLiterature, SubjectEnglish, SubjectInformatics}

// Valid reports whether s is one of the known subjects or General.
func (s Subject) Valid() bool {
	if s == SubjectGeneral {
		return true
	}
	for _, known := range Subjects {
		if s == known {
			return true
		}
	}
	return false
}

// Flashcard carries its own spaced-repetition metadata.
// NextReview is nil until the card is scheduled; a nil value means due now.
type Flashcard struct {
	ID         string  `json:"id"`
	Front      string  `json:"front"`
	Back       string  `json:"back"`
	Subject    Subject `json:"subject"`
	Level      int     `json:"level"`
	NextReview *int64  `json:"next_review,omitempty"`
}

// DueAt returns NextReview as a time, and false when the card has none.
func (c Flashcard) DueAt() (time.Time, bool) {
	if c.NextReview == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(*c.NextReview), true
}

// Millis converts t to the millisecond timestamp stored in NextReview.
func Millis(t time.Time) *int64 {
	ms := t.UnixMilli()
	return &ms
}

type CreateFlashcardRequest struct {
	Front   string  `json:"front" validate:"required"`
	Back    string  `json:"back" validate:"required"`
	Subject Subject `json:"subject"`
}

type GenerateFlashcardsRequest struct {
	Content string  `json:"content" validate:"required"`
	Subject Subject `json:"subject"`
}

// FlashcardDraft is one generated front/back pair before it enters the card store.
type FlashcardDraft struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

type ReviewOutcomeRequest struct {
	Outcome string `json:"outcome" validate:"required"`
}

type DeckStats struct {
	TotalCards int `json:"total_cards"`
	New        int `json:"new"`
	Learning   int `json:"learning"`
	Mastered   int `json:"mastered"`
	DueNow     int `json:"due_now"`
}
