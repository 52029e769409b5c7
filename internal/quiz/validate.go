package quiz

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"studyhub-backend/internal/models"
)

// ValidateQuestions repairs a generated batch and drops what cannot be
// repaired. Missing ids are filled in, true/false answers are canonicalised,
// multiple-choice answers given as a letter or index are resolved to the
// option text, and multiple-choice questions whose answer matches no option
// are dropped. When allowed is non-empty, other types are dropped too.
func ValidateQuestions(in []models.QuizQuestion, allowed ...models.QuizType) []models.QuizQuestion {
	out := make([]models.QuizQuestion, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, q := range in {
		q.Question = strings.TrimSpace(q.Question)
		q.Type = models.QuizType(strings.ToLower(strings.TrimSpace(string(q.Type))))
		if q.Question == "" || !q.Type.Valid() {
			continue
		}
		if len(allowed) > 0 && !containsType(allowed, q.Type) {
			continue
		}
		if q.ID == "" || seen[q.ID] {
			q.ID = uuid.NewString()
		}

		switch q.Type {
		case models.QuizMultipleChoice:
			answer, ok := resolveOption(q.Options, q.CorrectAnswer)
			if !ok {
				continue
			}
			q.CorrectAnswer = answer
		case models.QuizTrueFalse:
			answer, ok := canonicalBool(q.CorrectAnswer)
			if !ok {
				continue
			}
			q.CorrectAnswer = answer
			q.Options = nil
		case models.QuizShortAnswer:
			if strings.TrimSpace(q.CorrectAnswer) == "" {
				continue
			}
			q.Options = nil
		}

		seen[q.ID] = true
		out = append(out, q)
	}
	return out
}

func containsType(types []models.QuizType, t models.QuizType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

func resolveOption(options []string, answer string) (string, bool) {
	if len(options) < 2 {
		return "", false
	}
	norm := Normalize(answer)
	for _, o := range options {
		if Normalize(o) == norm {
			return o, true
		}
	}

	// "B", "b)", "B. Hà Nội"
	if r := []rune(strings.TrimSpace(answer)); len(r) > 0 {
		letter := r[0]
		if letter >= 'a' && letter <= 'z' {
			letter -= 'a' - 'A'
		}
		if letter >= 'A' && letter <= 'Z' && (len(r) == 1 || strings.ContainsRune(".):", r[1])) {
			idx := int(letter - 'A')
			if idx < len(options) {
				return options[idx], true
			}
		}
	}

	if n, err := strconv.Atoi(strings.TrimSpace(answer)); err == nil && n >= 0 && n < len(options) {
		return options[n], true
	}
	return "", false
}

func canonicalBool(s string) (string, bool) {
	switch Normalize(s) {
	case "true", "đúng", "t":
		return "True", true
	case "false", "sai", "f":
		return "False", true
	}
	return "", false
}
