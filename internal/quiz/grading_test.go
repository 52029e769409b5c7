package quiz

import (
	"testing"

	"studyhub-backend/internal/models"
)

func TestIsCorrect(t *testing.T) {
	mc := models.QuizQuestion{ID: "1", Type: models.QuizMultipleChoice, Options: []string{"Hà Nội", "Huế"}, CorrectAnswer: "Hà Nội"}
	tf := models.QuizQuestion{ID: "2", Type: models.QuizTrueFalse, CorrectAnswer: "True"}
	sa := models.QuizQuestion{ID: "3", Type: models.QuizShortAnswer, CorrectAnswer: "Paris"}
	letter := models.QuizQuestion{ID: "4", Type: models.QuizShortAnswer, CorrectAnswer: "A"}

	tests := []struct {
		name   string
		q      models.QuizQuestion
		answer string
		want   bool
	}{
		{"mc exact", mc, "Hà Nội", true},
		{"mc case and space", mc, "  hà nội ", true},
		{"mc wrong", mc, "Huế", false},
		{"mc partial is wrong", mc, "Hà", false},
		{"tf lower", tf, "true", true},
		{"tf wrong", tf, "False", false},
		{"sa containment", sa, "paris is the capital", true},
		{"sa exact", sa, "PARIS", true},
		{"sa wrong", sa, "Lyon", false},
		{"sa answer inside reference", models.QuizQuestion{Type: models.QuizShortAnswer, CorrectAnswer: "the city of Paris"}, "Paris", true},
		{"sa empty", sa, "   ", false},
		{"sa word boundary", letter, "banana", false},
		{"sa single letter word", letter, "answer a", true},
		{"sa punctuation", sa, "Paris!", true},
		{"sa substring of word", sa, "parisian", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCorrect(tt.q, tt.answer); got != tt.want {
				t.Fatalf("IsCorrect(%q, %q) = %v, want %v", tt.q.CorrectAnswer, tt.answer, got, tt.want)
			}
		})
	}
}

func TestNormalizeFoldsUnicode(t *testing.T) {
	if Normalize("  ĐÚNG ") != Normalize("đúng") {
		t.Fatalf("expected Vietnamese capitals to fold: %q vs %q", Normalize("  ĐÚNG "), Normalize("đúng"))
	}
}

func TestGradeDeterministicAndBounded(t *testing.T) {
	qs := []models.QuizQuestion{
		{ID: "a", Type: models.QuizTrueFalse, CorrectAnswer: "True"},
		{ID: "b", Type: models.QuizTrueFalse, CorrectAnswer: "False"},
		{ID: "c", Type: models.QuizShortAnswer, CorrectAnswer: "oxygen"},
	}
	answers := map[string]string{"a": "True", "c": "Oxygen gas", "zzz": "ignored"}

	first := Grade(qs, answers)
	for i := 0; i < 20; i++ {
		if got := Grade(qs, answers); got != first {
			t.Fatalf("grade changed between runs: %d vs %d", first, got)
		}
	}
	if first != 2 {
		t.Fatalf("expected score 2, got %d", first)
	}
	if first < 0 || first > len(qs) {
		t.Fatalf("score out of bounds: %d", first)
	}
	if Grade(qs, nil) != 0 {
		t.Fatal("expected zero score with no answers")
	}
	if len(Wrong(qs, answers)) != 1 {
		t.Fatalf("expected one wrong question, got %d", len(Wrong(qs, answers)))
	}
}
