// Package quiz grades question sets and drives quiz, mock-exam and remedial
// sessions from generation through grading.
package quiz

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"studyhub-backend/internal/models"
)

// Normalize trims s and applies Unicode case folding.
func Normalize(s string) string {
	// cases.Caser is stateful; one per call.
	return cases.Fold().String(strings.TrimSpace(s))
}

// IsCorrect grades a single answer. Multiple-choice and true-false answers must
// match exactly after normalisation. Short answers are accepted when either
// side contains the other as a whole-word sequence, so "paris is the capital"
// matches "Paris" but "banana" does not match "A".
func IsCorrect(q models.QuizQuestion, answer string) bool {
	user := Normalize(answer)
	if user == "" {
		return false
	}
	correct := Normalize(q.CorrectAnswer)
	if q.Type != models.QuizShortAnswer {
		return user == correct
	}
	if user == correct {
		return true
	}
	u, c := words(user), words(correct)
	if len(u) == 0 || len(c) == 0 {
		return false
	}
	return containsRun(u, c) || containsRun(c, u)
}

// Grade counts correct answers. Unanswered questions count as wrong.
func Grade(questions []models.QuizQuestion, answers map[string]string) int {
	score := 0
	for _, q := range questions {
		if a, ok := answers[q.ID]; ok && IsCorrect(q, a) {
			score++
		}
	}
	return score
}

// Wrong returns the questions that were answered incorrectly or not at all.
func Wrong(questions []models.QuizQuestion, answers map[string]string) []models.QuizQuestion {
	var out []models.QuizQuestion
	for _, q := range questions {
		if !IsCorrect(q, answers[q.ID]) {
			out = append(out, q)
		}
	}
	return out
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.Is(unicode.Mn, r)
	})
}

// containsRun reports whether needle appears as a contiguous run inside hay.
func containsRun(hay, needle []string) bool {
	if len(needle) > len(hay) {
		return false
	}
	for i := 0; i+len(needle) <= len(hay); i++ {
		if slices.Equal(hay[i:i+len(needle)], needle) {
			return true
		}
	}
	return false
}
