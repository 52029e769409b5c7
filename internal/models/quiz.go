package models

import "time"

type QuizType string

const (
	QuizMultipleChoice QuizType = "multiple-choice"
	QuizTrueFalse      QuizType = "true-false"
	QuizShortAnswer    QuizType = "short-answer"
)

func (t QuizType) Valid() bool {
	switch t {
	case QuizMultipleChoice, QuizTrueFalse, QuizShortAnswer:
		return true
	}
	return false
}

type QuizQuestion struct {
	ID            string   `json:"id"`
	Type          QuizType `json:"type"`
	Question      string   `json:"question"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

// ExamResult is the immutable outcome of a graded session.
type ExamResult struct {
	ID              string            `json:"id"`
	Date            time.Time         `json:"date"`
	Kind            string            `json:"kind"`
	Subject         string            `json:"subject"`
	Score           int               `json:"score"`
	Total           int               `json:"total"`
	DurationMinutes int               `json:"duration_minutes,omitempty"`
	Questions       []QuizQuestion    `json:"questions"`
	UserAnswers     map[string]string `json:"user_answers"`
}

// QuizRequest is what the generation collaborator receives for a question set.
type QuizRequest struct {
	Topic    string         `json:"topic"`
	Material *Material      `json:"material,omitempty"`
	Types    []QuizType     `json:"types"`
	Subject  string         `json:"subject"`
	Profile  StudentProfile `json:"-"`
	Exam     bool           `json:"exam"`
}

// Material is an uploaded reference document or image, passed to the
// generation collaborator as an opaque blob.
type Material struct {
	MIMEType string `json:"mime_type" validate:"required"`
	Data     []byte `json:"data" validate:"required"`
	Name     string `json:"name"`
}

type StartSessionRequest struct {
	Kind             string     `json:"kind" validate:"required,oneof=quiz exam"`
	Subject          string     `json:"subject" validate:"required"`
	Topic            string     `json:"topic"`
	Material         *Material  `json:"material"`
	Types            []QuizType `json:"types"`
	TimeLimitSeconds int        `json:"time_limit_seconds" validate:"gte=0,lte=14400"`
}

type AnswerRequest struct {
	Answer string `json:"answer"`
}

type GapAnalysis struct {
	Diagnosis         string         `json:"diagnosis"`
	RemedialQuestions []QuizQuestion `json:"remedial_questions"`
}
