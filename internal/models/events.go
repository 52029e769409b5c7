package models

import "github.com/google/uuid"

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type ReminderEvent struct {
	ReminderID string `json:"reminder_id"`
	Title      string `json:"title"`
	Time       string `json:"time"`
}

type SessionEvent struct {
	SessionID        uuid.UUID   `json:"session_id"`
	Status           string      `json:"status"`
	RemainingSeconds int         `json:"remaining_seconds,omitempty"`
	Result           *ExamResult `json:"result,omitempty"`
	Error            string      `json:"error,omitempty"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
