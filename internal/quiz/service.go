package quiz

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-rooms/internal/errs"
)

// Store is the durable quiz content store.
type Store interface {
	GetQuiz(ctx context.Context, id string) (*Quiz, error)
	ListQuizzes(ctx context.Context) ([]QuizSummary, error)
}

// Catalog serves quizzes from the durable store, with a per-room cache in front of it.
type Catalog struct {
	store  Store
	cache  *RoomCache
	logger zerolog.Logger
}

func NewCatalog(store Store, cache *RoomCache, logger zerolog.Logger) *Catalog {
	return &Catalog{
		store:  store,
		cache:  cache,
		logger: logger.With().Str("component", "quiz_catalog").Logger(),
	}
}

// Get loads a quiz by id. Unknown ids are NotFound.
func (c *Catalog) Get(ctx context.Context, id string) (*Quiz, error) {
	if id == "" {
		return nil, errs.Validation("quizId is required")
	}
	q, err := c.store.GetQuiz(ctx, id)
	if err != nil {
		if errs.HasCode(err, errs.CodeNotFound) {
			return nil, err
		}
		return nil, errs.Unavailable(err, "quiz store unavailable")
	}
	if q == nil {
		return nil, errs.NotFound("Quiz not found")
	}
	return q, nil
}

func (c *Catalog) List(ctx context.Context) ([]QuizSummary, error) {
	items, err := c.store.ListQuizzes(ctx)
	if err != nil {
		return nil, errs.Unavailable(err, "quiz store unavailable")
	}
	if items == nil {
		items = []QuizSummary{}
	}
	return items, nil
}

// Remember caches q for the room code it was opened under.
func (c *Catalog) Remember(ctx context.Context, roomCode string, q Quiz) error {
	return c.cache.Set(ctx, roomCode, q)
}

// Forget drops the room's cached quiz.
func (c *Catalog) Forget(ctx context.Context, roomCode string) {
	if err := c.cache.Delete(ctx, roomCode); err != nil {
		c.logger.Warn().Err(err).Str("room_code", roomCode).Msg("failed to drop room quiz cache")
	}
}

// Questions resolves the question list for a room: the room cache first, then the store by quizID.
func (c *Catalog) Questions(ctx context.Context, roomCode, quizID string) (*Quiz, error) {
	if roomCode != "" {
		cached, err := c.cache.Get(ctx, roomCode)
		if err != nil {
			c.logger.Warn().Err(err).Str("room_code", roomCode).Msg("room quiz cache read failed")
		}
		if cached != nil && (quizID == "" || cached.ID == quizID) {
			return cached, nil
		}
	}
	if quizID == "" {
		return nil, errs.Validation("quizId or questions are required")
	}
	return c.Get(ctx, quizID)
}

