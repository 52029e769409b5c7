package services

import (
	"fmt"
	"strings"

	"studyhub-backend/internal/models"
	"studyhub-backend/internal/quiz"
)

const baseInstruction = `You are a study assistant for Vietnamese grade-12 students preparing for the national high-school graduation exam (THPT Quốc gia).
Always answer in Vietnamese.
Write every mathematical, chemical or physical expression in LaTeX: inline as $...$, display as $$...$$. Never put formulas inside code blocks.
`

const tutorMode = `Tone: a warm, encouraging teacher. Explain step by step, highlight what usually appears in the exam, and share quick-solving tips. A few emoji are fine.
`

const genZMode = `Tone: a Gen Z best friend. Casual pronouns, light slang and everyday examples (games, memes, daily life), but the knowledge must stay exam-accurate.
`

const socraticMode = `Socratic tutor mode: never give the final answer straight away. Offer hints, ask guiding questions and move in small steps. Explain more only when the student is clearly stuck.
`

const examinerInstruction = `You write exam questions that follow the Ministry of Education's structure. Be strict but fair.
`

// buildContext renders the learner profile that is appended to every system instruction.
func buildContext(p models.StudentProfile) string {
	if p.Empty() {
		return ""
	}
	or := func(v, fallback string) string {
		if strings.TrimSpace(v) == "" {
			return fallback
		}
		return v
	}

	var b strings.Builder
	b.WriteString("\n--- STUDENT PROFILE ---\n")
	b.WriteString(fmt.Sprintf("Name: %s\n", or(p.Name, "the student")))
	b.WriteString(fmt.Sprintf("Goal: %s, major %s\n", or(p.TargetUniversity, "a university"), or(p.TargetMajor, "undecided")))
	b.WriteString(fmt.Sprintf("Target score: %s\n", or(p.TargetScore, "high")))
	b.WriteString(fmt.Sprintf("Strengths: %s\n", or(p.Strengths, "unknown")))
	b.WriteString(fmt.Sprintf("Weaknesses to work on: %s\n", or(p.Weaknesses, "unknown")))
	b.WriteString(fmt.Sprintf("Learning style: %s\n", or(p.LearningStyle, "flexible")))
	b.WriteString("Tailor every answer to this profile: go slower on weak subjects and push harder exercises when the target score is high.\n")
	b.WriteString("-----------------------\n")
	return b.String()
}

func buildQuizPrompt(req models.QuizRequest) string {
	var b strings.Builder

	if req.Material != nil {
		b.WriteString("Write a knowledge check BASED ONLY ON THE ATTACHED MATERIAL.\n")
	} else {
		b.WriteString(fmt.Sprintf("Write a knowledge check on the topic %q for the subject %s.\n", req.Topic, req.Subject))
	}

	b.WriteString("\nRequirements:\n")
	if req.Exam {
		b.WriteString("1. Write 10 to 15 questions, like a real mock exam section.\n")
	} else {
		b.WriteString("1. Write 5 to 10 questions in total.\n")
	}

	types := req.Types
	if len(types) == 0 {
		types = []models.QuizType{models.QuizMultipleChoice}
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	b.WriteString(fmt.Sprintf("2. Only use these question types: %s.\n", strings.Join(names, ", ")))

	if req.Material != nil {
		b.WriteString("3. Use only facts present in the material. Do not invent anything.\n")
	} else {
		b.WriteString("3. Stay within the grade-12 national exam syllabus.\n")
	}

	target := req.Profile.TargetScore
	if target == "" {
		target = "8+"
	}
	b.WriteString(fmt.Sprintf("4. Difficulty suited to a target score of %s.\n", target))

	b.WriteString(`
Format rules:
- multiple-choice: exactly 4 options; correct_answer is the full text of the right option.
- true-false: options is empty; correct_answer is "True" or "False".
- short-answer: options is empty; correct_answer is a short reference answer.
`)
	return b.String()
}

// summarizeHistory describes each result with the prompts the student got
// wrong, trimmed to 50 runes each.
func summarizeHistory(history []models.ExamResult) string {
	lines := make([]string, 0, len(history))
	for _, r := range history {
		wrong := quiz.Wrong(r.Questions, r.UserAnswers)
		prompts := make([]string, 0, len(wrong))
		for _, q := range wrong {
			prompts = append(prompts, truncateRunes(q.Question, 50)+"...")
		}
		lines = append(lines, fmt.Sprintf("Subject: %s, Score: %d/%d, Wrong: %s",
			r.Subject, r.Score, r.Total, strings.Join(prompts, "; ")))
	}
	return strings.Join(lines, "\n")
}

func buildGapAnalysisPrompt(history []models.ExamResult) string {
	return fmt.Sprintf(`Act as a "knowledge doctor". Based on the student's recent results:
1. Diagnose the knowledge gaps.
2. Write 5 multiple-choice remedial questions that target those gaps.

History:
%s
`, summarizeHistory(history))
}

func buildGradeSummary(grades models.GradeRecord) string {
	parts := make([]string, 0, len(grades))
	for _, subject := range sortedSubjects(grades) {
		avg := "N/A"
		if a := grades[subject].Average; a != nil {
			avg = fmt.Sprintf("%.1f", *a)
		}
		parts = append(parts, fmt.Sprintf("%s: avg %s", subject, avg))
	}
	return strings.Join(parts, ", ")
}

func buildGradeAnalysisPrompt(grades models.GradeRecord, p models.StudentProfile) string {
	major, strengths := p.TargetMajor, p.Strengths
	if major == "" {
		major = "unknown"
	}
	if strengths == "" {
		strengths = "unknown"
	}
	return fmt.Sprintf(`Grade-12 transcript: %s
Interests and goals: %s. Strengths: %s.

Act as a career counsellor:
1. Suggest the 3 most suitable university majors.
2. Suggest 3 universities that fit these grades and teach those majors well.
3. Explain the suggestion, pointing at the strongest subjects.
4. List the suitable exam blocks (A00, A01, D01, ...).
`, buildGradeSummary(grades), major, strengths)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
