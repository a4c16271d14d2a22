package services

import (
	"context"
	"errors"

	"livequiz/models"
)

// ErrDuplicate is returned by repositories when a unique constraint rejects a write.
var ErrDuplicate = errors.New("duplicate record")

// Repository is the persistence boundary consumed by the game orchestrator.
// Lookups return (nil, nil) when the row does not exist.
type Repository interface {
	GetQuizWithQuestions(ctx context.Context, quizID uint) (*models.Quiz, error)
	CreateSession(ctx context.Context, quizID, hostID uint, code string) (*models.Session, error)
	GetSessionByCode(ctx context.Context, code string) (*models.Session, error)
	UpdateSessionStatus(ctx context.Context, code, status string, ts models.SessionTimestamps) error
	UpdateSessionProgress(ctx context.Context, code string, questionIndex int) error
	InsertParticipant(ctx context.Context, sessionID uint, nickname string, userID *uint) (*models.Participant, error)
	FindParticipant(ctx context.Context, sessionID uint, nickname string) (*models.Participant, error)
	ListParticipants(ctx context.Context, sessionID uint) ([]models.Participant, error)
	InsertAnswer(ctx context.Context, answer *models.Answer) error
	FindAnswer(ctx context.Context, participantID, questionID uint) (*models.Answer, error)
	IncrementScore(ctx context.Context, participantID uint, points int) error

	// Transact runs fn against a repository bound to a single transaction.
	Transact(ctx context.Context, fn func(tx Repository) error) error
}

// QuizRepository backs the quiz glue endpoints.
type QuizRepository interface {
	CreateQuiz(ctx context.Context, quiz *models.Quiz) error
	GetQuizWithQuestions(ctx context.Context, quizID uint) (*models.Quiz, error)
	ListQuizzesByOwner(ctx context.Context, userID uint) ([]models.Quiz, error)
}
