package services

import (
	"context"
	"fmt"

	"studyhub-backend/internal/apperr"
	"studyhub-backend/internal/models"
)

// Generator is the generative collaborator behind every AI feature.
// GeminiService is the production implementation.
type Generator interface {
	GenerateQuiz(ctx context.Context, req models.QuizRequest) ([]models.QuizQuestion, error)
	GenerateFlashcards(ctx context.Context, content string, profile models.StudentProfile) ([]models.FlashcardDraft, error)
	GenerateGapAnalysis(ctx context.Context, history []models.ExamResult, profile models.StudentProfile) (models.GapAnalysis, error)
	GenerateTheory(ctx context.Context, subject models.Subject, topic string, profile models.StudentProfile) (string, error)
	Explain(ctx context.Context, text string, profile models.StudentProfile) (string, error)
	Chat(ctx context.Context, in ChatInput) (string, error)
	GenerateRoadmap(ctx context.Context, target, currentLevel string, profile models.StudentProfile) (models.StudyRoadmap, error)
	GenerateMindmap(ctx context.Context, input string) (models.MindmapData, error)
	AnalyzeGrades(ctx context.Context, grades models.GradeRecord, profile models.StudentProfile) (models.CareerSuggestion, error)
}

var _ Generator = (*GeminiService)(nil)

// DisabledGenerator answers every request with ErrUnavailable. It stands in
// when no Gemini API key is configured so the rest of the app keeps working.
type DisabledGenerator struct{}

var _ Generator = DisabledGenerator{}

func unavailable() error {
	return fmt.Errorf("%w: AI generation is not configured", apperr.ErrUnavailable)
}

func (DisabledGenerator) GenerateQuiz(context.Context, models.QuizRequest) ([]models.QuizQuestion, error) {
	return nil, unavailable()
}

func (DisabledGenerator) GenerateFlashcards(context.Context, string, models.StudentProfile) ([]models.FlashcardDraft, error) {
	return nil, unavailable()
}

func (DisabledGenerator) GenerateGapAnalysis(context.Context, []models.ExamResult, models.StudentProfile) (models.GapAnalysis, error) {
	return models.GapAnalysis{}, unavailable()
}

func (DisabledGenerator) GenerateTheory(context.Context, models.Subject, string, models.StudentProfile) (string, error) {
	return "", unavailable()
}

func (DisabledGenerator) Explain(context.Context, string, models.StudentProfile) (string, error) {
	return "", unavailable()
}

func (DisabledGenerator) Chat(context.Context, ChatInput) (string, error) {
	return "", unavailable()
}

func (DisabledGenerator) GenerateRoadmap(context.Context, string, string, models.StudentProfile) (models.StudyRoadmap, error) {
	return models.StudyRoadmap{}, unavailable()
}

func (DisabledGenerator) GenerateMindmap(context.Context, string) (models.MindmapData, error) {
	return models.MindmapData{}, unavailable()
}

func (DisabledGenerator) AnalyzeGrades(context.Context, models.GradeRecord, models.StudentProfile) (models.CareerSuggestion, error) {
	return models.CareerSuggestion{}, unavailable()
}
