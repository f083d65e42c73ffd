package course

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Course is a learning module in the education catalog.
type Course struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Level       string          `json:"level"`
	Duration    string          `json:"duration"`
	Lessons     int             `json:"lessons"`
	ImageURL    *string         `json:"image_url,omitempty"`
	Content     json.RawMessage `json:"content,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// CreateCourseRequest is the body for adding a course to the catalog.
type CreateCourseRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Level       string          `json:"level"`
	Duration    string          `json:"duration"`
	Lessons     int             `json:"lessons"`
	ImageURL    *string         `json:"image_url,omitempty"`
	Content     json.RawMessage `json:"content,omitempty"`
}

func validLevel(level string) bool {
	switch level {
	case "beginner", "intermediate", "advanced":
		return true
	}
	return false
}
