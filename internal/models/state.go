package models

import "time"

// AppState is the per-profile document persisted as one blob.
type AppState struct {
	SavedLessons   []SavedLesson  `json:"saved_lessons"`
	Flashcards     []Flashcard    `json:"flashcards"`
	Tasks          []Task         `json:"tasks"`
	Reminders      []Reminder     `json:"reminders"`
	ChatSessions   []ChatSession  `json:"chat_sessions"`
	StudentProfile StudentProfile `json:"student_profile"`
	GradeRecord    GradeRecord    `json:"grade_record"`
	StudyStats     StudyStats     `json:"study_stats"`
}

type SavedLesson struct {
	ID      string    `json:"id"`
	Subject Subject   `json:"subject"`
	Topic   string    `json:"topic"`
	Content string    `json:"content"`
	Date    time.Time `json:"date"`
}

type Task struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Reminder fires when its weekday (0 = Sunday) and HH:mm match the wall clock.
type Reminder struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Time   string `json:"time"`
	Days   []int  `json:"days"`
	Active bool   `json:"active"`
}

type StudentProfile struct {
	Name             string `json:"name"`
	TargetUniversity string `json:"target_university"`
	TargetMajor      string `json:"target_major"`
	TargetScore      string `json:"target_score"`
	Strengths        string `json:"strengths"`
	Weaknesses       string `json:"weaknesses"`
	LearningStyle    string `json:"learning_style"`
}

// Empty reports whether no profile field has been filled in.
func (p StudentProfile) Empty() bool {
	return p == StudentProfile{}
}

type StudyStats struct {
	StreakDays        int    `json:"streak_days"`
	LastLoginDate     string `json:"last_login_date"`
	TotalStudyMinutes int    `json:"total_study_minutes"`
}

type GradeDetail struct {
	Regular []float64 `json:"regular"`
	Midterm *float64  `json:"midterm"`
	Final   *float64  `json:"final"`
	Average *float64  `json:"average"`
}

type GradeRecord map[string]GradeDetail

type CareerSuggestion struct {
	Majors         []string `json:"majors"`
	Universities   []string `json:"universities"`
	Analysis       string   `json:"analysis"`
	SuitableBlocks []string `json:"suitable_blocks"`
}

type RoadmapStep struct {
	Phase       string   `json:"phase"`
	Actions     []string `json:"actions"`
	FocusTopics []string `json:"focus_topics"`
}

type StudyRoadmap struct {
	Target       string        `json:"target"`
	CurrentLevel string        `json:"current_level"`
	Advice       string        `json:"advice"`
	Steps        []RoadmapStep `json:"steps"`
}

type RoadmapRequest struct {
	Target       string `json:"target" validate:"required"`
	CurrentLevel string `json:"current_level" validate:"required"`
}

type TaskRequest struct {
	Text string `json:"text" validate:"required"`
}

type ReminderRequest struct {
	Title  string `json:"title" validate:"required"`
	Time   string `json:"time" validate:"required,datetime=15:04"`
	Days   []int  `json:"days" validate:"required,min=1,dive,gte=0,lte=6"`
	Active *bool  `json:"active"`
}

type LessonRequest struct {
	Subject Subject `json:"subject" validate:"required"`
	Topic   string  `json:"topic" validate:"required"`
}
