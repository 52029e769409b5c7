package models

import "time"

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	ID    string `json:"id"`
	Role  string `json:"role"` // "user" or "model"
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

type ChatSession struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Messages []ChatMessage `json:"messages"`
	Date     time.Time     `json:"date"`
}

// ChatRequest is the payload sent to the chat endpoint.
type ChatRequest struct {
	SessionID   string `json:"session_id"`
	Message     string `json:"message"`
	ImageBase64 string `json:"image_base64"`
	GenZMode    bool   `json:"gen_z_mode"`
	Socratic    bool   `json:"socratic_mode"`
}

// ChatResponse is the reply from the AI tutor.
type ChatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

type ExplainRequest struct {
	Text string `json:"text" validate:"required"`
}

type MindmapNode struct {
	ID              string  `json:"id"`
	Label           string  `json:"label"`
	Type            string  `json:"type"` // "root" | "branch" | "leaf"
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
	Shape           string  `json:"shape,omitempty"`
	BackgroundColor string  `json:"background_color,omitempty"`
	TextColor       string  `json:"text_color,omitempty"`
	BorderColor     string  `json:"border_color,omitempty"`
}

type MindmapEdge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
}

type MindmapData struct {
	Nodes []MindmapNode `json:"nodes"`
	Edges []MindmapEdge `json:"edges"`
}

type MindmapRequest struct {
	Input string `json:"input" validate:"required"`
}
