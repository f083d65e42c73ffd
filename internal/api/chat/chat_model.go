package chat

import (
	"time"

	"github.com/google/uuid"
)

// Message is a single turn in a chat session. Role is "user" or "assistant".
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatSession is a persisted conversation. Messages are stored as a jsonb
// array on the row, ordered oldest first.
type ChatSession struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatRequest is the body for sending a chat message. SessionID is empty
// to start a new conversation.
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// ChatResponse carries the assistant reply and the session it belongs to.
type ChatResponse struct {
	SessionID uuid.UUID `json:"session_id"`
	Reply     string    `json:"reply"`
}

// ReportRequest is the body for structured report generation.
type ReportRequest struct {
	Topic string `json:"topic"`
}

// Report is the structured analysis document the model produces.
type Report struct {
	Title           string   `json:"title"`
	Summary         string   `json:"summary"`
	Analysis        string   `json:"analysis"`
	Recommendations []string `json:"recommendations"`
	Risks           []string `json:"risks"`
	Conclusion      string   `json:"conclusion"`
}
