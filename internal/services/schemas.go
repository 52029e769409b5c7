package services

import (
	"github.com/google/generative-ai-go/genai"

	"studyhub-backend/internal/models"
)

func str(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: desc}
}

func strList() *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}}
}

func questionSchema(types []models.QuizType) *genai.Schema {
	enum := make([]string, len(types))
	for i, t := range types {
		enum[i] = string(t)
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"id":             str(""),
			"type":           {Type: genai.TypeString, Enum: enum},
			"question":       str("Question text, may contain LaTeX $...$"),
			"options":        {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}, Description: "Choices for multiple-choice only; empty otherwise"},
			"correct_answer": str("Correct answer: option text, True/False, or a short reference answer"),
			"explanation":    str("Detailed explanation, may contain LaTeX $...$"),
		},
		Required: []string{"type", "question", "correct_answer", "explanation"},
	}
}

func questionListSchema(types []models.QuizType) *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: questionSchema(types)}
}

func flashcardSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"front": str(""),
				"back":  str(""),
			},
			Required: []string{"front", "back"},
		},
	}
}

func gapAnalysisSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"diagnosis":          str("Diagnosis of the knowledge gaps"),
			"remedial_questions": questionListSchema([]models.QuizType{models.QuizMultipleChoice}),
		},
		Required: []string{"diagnosis", "remedial_questions"},
	}
}

func roadmapSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"target":        str(""),
			"current_level": str(""),
			"advice":        str(""),
			"steps": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"phase":        str(""),
						"actions":      strList(),
						"focus_topics": strList(),
					},
					Required: []string{"phase", "actions", "focus_topics"},
				},
			},
		},
		Required: []string{"target", "current_level", "advice", "steps"},
	}
}

func mindmapSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"nodes": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"id":               str(""),
						"label":            str(""),
						"type":             {Type: genai.TypeString, Enum: []string{"root", "branch", "leaf"}},
						"shape":            {Type: genai.TypeString, Enum: []string{"rect", "circle", "rounded"}},
						"background_color": str(""),
						"text_color":       str(""),
						"border_color":     str(""),
					},
					Required: []string{"id", "label", "type"},
				},
			},
			"edges": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"id":     str(""),
						"source": str(""),
						"target": str(""),
						"label":  str(""),
					},
					Required: []string{"id", "source", "target"},
				},
			},
		},
		Required: []string{"nodes", "edges"},
	}
}

func careerSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"majors":          strList(),
			"universities":    strList(),
			"analysis":        str(""),
			"suitable_blocks": strList(),
		},
		Required: []string{"majors", "universities", "analysis", "suitable_blocks"},
	}
}
