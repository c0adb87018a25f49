package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/gokatarajesh/quiz-rooms/internal/errs"
	"github.com/gokatarajesh/quiz-rooms/internal/quiz"
	"github.com/gokatarajesh/quiz-rooms/internal/room"
)

const (
	getQuizSQL = `SELECT id::text, title, description, created_at, updated_at
FROM quizzes
WHERE id = $1`

	listQuestionsSQL = `SELECT id::text, question_text, answers, correct_answer, position
FROM questions
WHERE quiz_id = $1
ORDER BY position ASC`

	listQuizzesSQL = `SELECT id::text, title, description, updated_at
FROM quizzes
ORDER BY updated_at DESC`
)

// QuizRepository reads quizzes and their questions from Postgres.
type QuizRepository struct {
	db DBTX
}

var _ quiz.Store = (*QuizRepository)(nil)

func NewQuizRepository(db DBTX) *QuizRepository {
	return &QuizRepository{db: db}
}

// GetQuiz loads a quiz with its questions ordered by position.
func (r *QuizRepository) GetQuiz(ctx context.Context, id string) (*quiz.Quiz, error) {
	quizID, err := uuid.Parse(id)
	if err != nil {
		return nil, errs.NotFound("Quiz not found")
	}

	var (
		q                    quiz.Quiz
		createdAt, updatedAt pgtype.Timestamptz
	)
	err = r.db.QueryRow(ctx, getQuizSQL, quizID).Scan(&q.ID, &q.Title, &q.Description, &createdAt, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("Quiz not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	q.CreatedAt = createdAt.Time
	q.UpdatedAt = updatedAt.Time

	rows, err := r.db.Query(ctx, listQuestionsSQL, quizID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	q.Questions = []room.Question{}
	for rows.Next() {
		var (
			question       room.Question
			correct, order int32
		)
		if err := rows.Scan(&question.ID, &question.Text, &question.Answers, &correct, &order); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		question.CorrectAnswer = int(correct)
		question.Position = int(order)
		q.Questions = append(q.Questions, question)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return &q, nil
}

// ListQuizzes returns the catalog, most recently updated first.
func (r *QuizRepository) ListQuizzes(ctx context.Context) ([]quiz.QuizSummary, error) {
	rows, err := r.db.Query(ctx, listQuizzesSQL)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	items := []quiz.QuizSummary{}
	for rows.Next() {
		var (
			s         quiz.QuizSummary
			updatedAt pgtype.Timestamptz
		)
		if err := rows.Scan(&s.ID, &s.Title, &s.Description, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		s.UpdatedAt = updatedAt.Time
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	return items, nil
}
