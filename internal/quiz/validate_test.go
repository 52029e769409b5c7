package quiz

import (
	"testing"

	"studyhub-backend/internal/models"
)

func TestValidateQuestions(t *testing.T) {
	in := []models.QuizQuestion{
		{ID: "1", Type: "multiple-choice", Question: "Capital?", Options: []string{"Huế", "Hà Nội", "Đà Nẵng"}, CorrectAnswer: "B"},
		{ID: "2", Type: "multiple-choice", Question: "Sum?", Options: []string{"1", "2"}, CorrectAnswer: "seven"},
		{ID: "3", Type: "true-false", Question: "Sky is blue", Options: []string{"True", "False"}, CorrectAnswer: "đúng"},
		{ID: "3", Type: "short-answer", Question: "Gas we breathe", CorrectAnswer: "Oxygen"},
		{ID: "5", Type: "essay", Question: "Discuss", CorrectAnswer: "..."},
		{ID: "6", Type: "short-answer", Question: "   ", CorrectAnswer: "x"},
		{Type: "multiple-choice", Question: "Index", Options: []string{"zero", "one"}, CorrectAnswer: "1"},
	}

	got := ValidateQuestions(in)
	if len(got) != 4 {
		t.Fatalf("expected 4 questions, got %d: %+v", len(got), got)
	}
	if got[0].CorrectAnswer != "Hà Nội" {
		t.Fatalf("letter answer not resolved: %q", got[0].CorrectAnswer)
	}
	if got[1].CorrectAnswer != "True" || got[1].Options != nil {
		t.Fatalf("true/false not canonicalised: %+v", got[1])
	}
	if got[2].ID == "3" {
		t.Fatal("duplicate id should be replaced")
	}
	if got[3].ID == "" || got[3].CorrectAnswer != "one" {
		t.Fatalf("index answer or id not filled in: %+v", got[3])
	}
}

func TestValidateQuestionsAllowedTypes(t *testing.T) {
	in := []models.QuizQuestion{
		{ID: "1", Type: models.QuizTrueFalse, Question: "q", CorrectAnswer: "False"},
		{ID: "2", Type: models.QuizShortAnswer, Question: "q", CorrectAnswer: "x"},
	}
	got := ValidateQuestions(in, models.QuizShortAnswer)
	if len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("expected only the short answer question, got %+v", got)
	}
}
