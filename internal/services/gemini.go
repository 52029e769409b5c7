package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"studyhub-backend/internal/apperr"
	"studyhub-backend/internal/logger"
	"studyhub-backend/internal/models"
)

const DefaultGeminiModel = "gemini-2.0-flash"

type GeminiService struct {
	client    *genai.Client
	modelName string
	log       *logger.Logger
	rateChan  chan struct{} // Token bucket
}

func NewGeminiService(apiKey, modelName string, concurrentReqs int, log *logger.Logger) (*GeminiService, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY is not set", apperr.ErrUnavailable)
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	if concurrentReqs < 1 {
		concurrentReqs = 1
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	// Token bucket for rate limiting
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:    client,
		modelName: modelName,
		log:       logger.OrNop(log),
		rateChan:  rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// model builds a per-call model so concurrent requests never share a system
// instruction or schema.
func (s *GeminiService) model(system string, temperature float32, schema *genai.Schema) *genai.GenerativeModel {
	m := s.client.GenerativeModel(s.modelName)
	m.SetTemperature(temperature)
	m.SetTopP(0.95)
	if system != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if schema != nil {
		m.ResponseMIMEType = "application/json"
		m.ResponseSchema = schema
	}
	return m
}

func (s *GeminiService) generate(ctx context.Context, op string, m *genai.GenerativeModel, parts ...genai.Part) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	start := time.Now()
	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		s.log.Warn("gemini request failed", "op", op, "error", err)
		return "", fmt.Errorf("%w: Gemini API error: %v", apperr.ErrGenerationFailed, err)
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			s.log.Warn("gemini stopped early", "op", op, "candidate", i, "finish_reason", cand.FinishReason.String())
		}
	}

	text := strings.TrimSpace(extractText(resp))
	s.log.Debug("gemini response", "op", op, "chars", len(text), "elapsed", time.Since(start))
	if text == "" {
		return "", fmt.Errorf("%w: empty response from Gemini", apperr.ErrGenerationFailed)
	}
	return text, nil
}

// GenerateQuiz returns a question set for a topic or attached material.
func (s *GeminiService) GenerateQuiz(ctx context.Context, req models.QuizRequest) ([]models.QuizQuestion, error) {
	system := baseInstruction + buildContext(req.Profile) + examinerInstruction
	types := req.Types
	if len(types) == 0 {
		types = []models.QuizType{models.QuizMultipleChoice}
	}
	m := s.model(system, 0.4, questionListSchema(types))

	parts := []genai.Part{}
	if req.Material != nil {
		parts = append(parts, genai.Blob{MIMEType: req.Material.MIMEType, Data: req.Material.Data})
	}
	parts = append(parts, genai.Text(buildQuizPrompt(req)))

	raw, err := s.generate(ctx, "quiz", m, parts...)
	if err != nil {
		return nil, err
	}
	var questions []models.QuizQuestion
	if err := parseJSON(raw, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (s *GeminiService) GenerateFlashcards(ctx context.Context, content string, profile models.StudentProfile) ([]models.FlashcardDraft, error) {
	m := s.model(baseInstruction+buildContext(profile), 0.4, flashcardSchema())
	prompt := fmt.Sprintf("Create flashcards from this content. Front: a question or term under 15 words. Back: a self-contained answer under 60 words.\n\n---CONTENT---\n%s\n---END---", content)

	raw, err := s.generate(ctx, "flashcards", m, genai.Text(prompt))
	if err != nil {
		return nil, err
	}
	var cards []models.FlashcardDraft
	if err := parseJSON(raw, &cards); err != nil {
		return nil, err
	}
	return validateFlashcardDrafts(cards), nil
}

// GenerateGapAnalysis diagnoses weaknesses from recent results and proposes
// remedial questions.
func (s *GeminiService) GenerateGapAnalysis(ctx context.Context, history []models.ExamResult, profile models.StudentProfile) (models.GapAnalysis, error) {
	m := s.model(baseInstruction+buildContext(profile), 0.5, gapAnalysisSchema())
	raw, err := s.generate(ctx, "gap-analysis", m, genai.Text(buildGapAnalysisPrompt(history)))
	if err != nil {
		return models.GapAnalysis{}, err
	}
	var out models.GapAnalysis
	if err := parseJSON(raw, &out); err != nil {
		return models.GapAnalysis{}, err
	}
	return out, nil
}

func (s *GeminiService) GenerateTheory(ctx context.Context, subject models.Subject, topic string, profile models.StudentProfile) (string, error) {
	m := s.model(baseInstruction+tutorMode+buildContext(profile), 0.7, nil)
	prompt := fmt.Sprintf("Teach the topic %q for the subject %s in detail. This is grade-12 national exam material; highlight the points that show up in exams most often.", topic, subject)
	return s.generate(ctx, "theory", m, genai.Text(prompt))
}

func (s *GeminiService) Explain(ctx context.Context, text string, profile models.StudentProfile) (string, error) {
	m := s.model(baseInstruction+buildContext(profile)+"Explain very briefly and simply.\n", 0.5, nil)
	return s.generate(ctx, "explain", m, genai.Text(fmt.Sprintf("Briefly explain this passage: %q", text)))
}

// ChatInput is one tutor turn. History holds earlier messages of the same
// conversation, oldest first.
type ChatInput struct {
	Message  string
	Image    *models.Material
	GenZ     bool
	Socratic bool
	History  []models.ChatMessage
	Profile  models.StudentProfile
}

func (s *GeminiService) Chat(ctx context.Context, in ChatInput) (string, error) {
	system := baseInstruction + buildContext(in.Profile)
	if in.GenZ {
		system += genZMode
	} else {
		system += tutorMode
	}
	if in.Socratic {
		system += socraticMode
	}
	m := s.model(system, 0.8, nil)

	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	cs := m.StartChat()
	cs.History = chatHistory(in.History)

	parts := []genai.Part{}
	if in.Image != nil {
		parts = append(parts, genai.Blob{MIMEType: in.Image.MIMEType, Data: in.Image.Data})
	}
	if in.Message != "" {
		parts = append(parts, genai.Text(in.Message))
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: empty chat message", apperr.ErrInvalidArgument)
	}

	resp, err := cs.SendMessage(ctx, parts...)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		s.log.Warn("gemini chat failed", "error", err)
		return "", fmt.Errorf("%w: Gemini API error: %v", apperr.ErrGenerationFailed, err)
	}
	text := strings.TrimSpace(extractText(resp))
	if text == "" {
		return "", fmt.Errorf("%w: empty chat reply", apperr.ErrGenerationFailed)
	}
	return text, nil
}

func (s *GeminiService) GenerateRoadmap(ctx context.Context, target, currentLevel string, profile models.StudentProfile) (models.StudyRoadmap, error) {
	system := "You are an exam-preparation strategist. Weigh strengths and weaknesses and lay out the most efficient plan. Answer in Vietnamese.\n" + buildContext(profile)
	m := s.model(system, 0.6, roadmapSchema())
	prompt := fmt.Sprintf("Goal: %q. Current level: %q. Build a study roadmap.", target, currentLevel)

	raw, err := s.generate(ctx, "roadmap", m, genai.Text(prompt))
	if err != nil {
		return models.StudyRoadmap{}, err
	}
	var rm models.StudyRoadmap
	if err := parseJSON(raw, &rm); err != nil {
		return models.StudyRoadmap{}, err
	}
	if len(rm.Steps) == 0 {
		return models.StudyRoadmap{}, fmt.Errorf("%w: roadmap has no steps", apperr.ErrGenerationFailed)
	}
	return rm, nil
}

// GenerateMindmap returns nodes and edges without coordinates; callers run
// mindmap.Layout on the result.
func (s *GeminiService) GenerateMindmap(ctx context.Context, input string) (models.MindmapData, error) {
	system := `You design mind maps. Turn the text into a JSON tree for a radial layout.
Nodes: exactly one "root"; "branch" nodes hang off the root; "leaf" nodes hang off branches. Labels are key phrases under 5 words. Shapes: rect for root, rounded for branches, circle for leaves. Ids are unique.
Edges: source is the parent id, target is the child id.
Go at least two levels deep (root -> branch -> leaf). Labels in Vietnamese.`
	m := s.model(system, 0.5, mindmapSchema())

	raw, err := s.generate(ctx, "mindmap", m, genai.Text(fmt.Sprintf("Analyse this content and build a detailed mind map: %q", input)))
	if err != nil {
		return models.MindmapData{}, err
	}
	var data models.MindmapData
	if err := parseJSON(raw, &data); err != nil {
		return models.MindmapData{}, err
	}
	if len(data.Nodes) == 0 {
		return models.MindmapData{}, fmt.Errorf("%w: mind map has no nodes", apperr.ErrGenerationFailed)
	}
	return data, nil
}

func (s *GeminiService) AnalyzeGrades(ctx context.Context, grades models.GradeRecord, profile models.StudentProfile) (models.CareerSuggestion, error) {
	m := s.model("You are a career counsellor for Vietnamese high-school students. Answer in Vietnamese.", 0.6, careerSchema())
	raw, err := s.generate(ctx, "grades", m, genai.Text(buildGradeAnalysisPrompt(grades, profile)))
	if err != nil {
		return models.CareerSuggestion{}, err
	}
	var out models.CareerSuggestion
	if err := parseJSON(raw, &out); err != nil {
		return models.CareerSuggestion{}, err
	}
	return out, nil
}

// Helper functions

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

func chatHistory(msgs []models.ChatMessage) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		role := "user"
		if m.Role == "model" {
			role = "model"
		}
		out = append(out, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Text)}})
	}
	return out
}

// cleanJSON strips the markdown fences models sometimes wrap JSON in.
func cleanJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw)
}

// parseJSON decodes raw into v. When the whole text does not parse it tries
// the outermost array or object inside it.
func parseJSON(raw string, v any) error {
	text := cleanJSON(raw)
	err := json.Unmarshal([]byte(text), v)
	if err == nil {
		return nil
	}
	for _, pair := range [][2]string{{"[", "]"}, {"{", "}"}} {
		start := strings.Index(text, pair[0])
		end := strings.LastIndex(text, pair[1])
		if start >= 0 && end > start {
			if json.Unmarshal([]byte(text[start:end+1]), v) == nil {
				return nil
			}
		}
	}
	return fmt.Errorf("%w: invalid JSON from Gemini: %v", apperr.ErrGenerationFailed, err)
}

func validateFlashcardDrafts(cards []models.FlashcardDraft) []models.FlashcardDraft {
	out := make([]models.FlashcardDraft, 0, len(cards))
	for _, c := range cards {
		c.Front = strings.TrimSpace(c.Front)
		c.Back = strings.TrimSpace(c.Back)
		if c.Front == "" || c.Back == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func sortedSubjects(r models.GradeRecord) []string {
	return slices.Sorted(maps.Keys(r))
}
