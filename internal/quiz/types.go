package quiz

import (
	"time"

	"github.com/gokatarajesh/quiz-rooms/internal/room"
)

// Quiz is a quiz with its ordered question bank.
type Quiz struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Questions   []room.Question `json:"questions"`
}

// QuizSummary is the catalog listing shape.
type QuizSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
