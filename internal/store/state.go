package store

import (
	"slices"
	"strings"

	"github.com/google/uuid"

	"studyhub-backend/internal/models"
)

// DefaultState returns an empty document with every collection allocated.
func DefaultState() models.AppState {
	return models.AppState{
		SavedLessons: []models.SavedLesson{},
		Flashcards:   []models.Flashcard{},
		Tasks:        []models.Task{},
		Reminders:    []models.Reminder{},
		ChatSessions: []models.ChatSession{},
		GradeRecord:  models.GradeRecord{},
	}
}

// Sanitize repairs a loaded document: missing collections are allocated,
// unknown subjects fall back to General, negative counters are zeroed and
// records without ids get one.
func Sanitize(s models.AppState) models.AppState {
	if s.SavedLessons == nil {
		s.SavedLessons = []models.SavedLesson{}
	}
	if s.Flashcards == nil {
		s.Flashcards = []models.Flashcard{}
	}
	if s.Tasks == nil {
		s.Tasks = []models.Task{}
	}
	if s.Reminders == nil {
		s.Reminders = []models.Reminder{}
	}
	if s.ChatSessions == nil {
		s.ChatSessions = []models.ChatSession{}
	}
	if s.GradeRecord == nil {
		s.GradeRecord = models.GradeRecord{}
	}

	for i := range s.Flashcards {
		c := &s.Flashcards[i]
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if !c.Subject.Valid() {
			c.Subject = models.SubjectGeneral
		}
		if c.Level < 0 {
			c.Level = 0
		}
	}
	for i := range s.SavedLessons {
		if s.SavedLessons[i].ID == "" {
			s.SavedLessons[i].ID = uuid.NewString()
		}
	}
	for i := range s.Tasks {
		if s.Tasks[i].ID == "" {
			s.Tasks[i].ID = uuid.NewString()
		}
	}
	for i := range s.Reminders {
		r := &s.Reminders[i]
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		r.Days = slices.DeleteFunc(r.Days, func(d int) bool { return d < 0 || d > 6 })
		r.Time = strings.TrimSpace(r.Time)
	}
	for i := range s.ChatSessions {
		if s.ChatSessions[i].Messages == nil {
			s.ChatSessions[i].Messages = []models.ChatMessage{}
		}
	}

	if s.StudyStats.StreakDays < 0 {
		s.StudyStats.StreakDays = 0
	}
	if s.StudyStats.TotalStudyMinutes < 0 {
		s.StudyStats.TotalStudyMinutes = 0
	}
	return s
}

// Clone deep-copies s so observers and callers never share slices with the store.
func Clone(s models.AppState) models.AppState {
	out := s
	out.SavedLessons = slices.Clone(s.SavedLessons)
	out.Tasks = slices.Clone(s.Tasks)

	out.Flashcards = slices.Clone(s.Flashcards)
	for i, c := range out.Flashcards {
		if c.NextReview != nil {
			v := *c.NextReview
			out.Flashcards[i].NextReview = &v
		}
	}

	out.Reminders = slices.Clone(s.Reminders)
	for i := range out.Reminders {
		out.Reminders[i].Days = slices.Clone(out.Reminders[i].Days)
	}

	out.ChatSessions = slices.Clone(s.ChatSessions)
	for i := range out.ChatSessions {
		out.ChatSessions[i].Messages = slices.Clone(out.ChatSessions[i].Messages)
	}

	if s.GradeRecord != nil {
		out.GradeRecord = make(models.GradeRecord, len(s.GradeRecord))
		for subject, d := range s.GradeRecord {
			out.GradeRecord[subject] = cloneGrade(d)
		}
	}
	return out
}

func cloneGrade(d models.GradeDetail) models.GradeDetail {
	cp := func(p *float64) *float64 {
		if p == nil {
			return nil
		}
		v := *p
		return &v
	}
	return models.GradeDetail{
		Regular: slices.Clone(d.Regular),
		Midterm: cp(d.Midterm),
		Final:   cp(d.Final),
		Average: cp(d.Average),
	}
}
