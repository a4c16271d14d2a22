package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"livequiz/models"
	"livequiz/services"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// uniqueViolation is the Postgres SQLSTATE for a unique index conflict.
const uniqueViolation = "23505"

// Store is the gorm implementation of the game and quiz repositories.
type Store struct {
	db *gorm.DB
}

var (
	_ services.Repository     = (*Store)(nil)
	_ services.QuizRepository = (*Store)(nil)
)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(
		&models.Quiz{},
		&models.Question{},
		&models.Option{},
		&models.Session{},
		&models.Participant{},
		&models.Answer{},
	)
}

// Ping checks the underlying connection pool.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Transact(ctx context.Context, fn func(tx services.Repository) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// byPosition orders questions and options as the author arranged them.
func byPosition(db *gorm.DB) *gorm.DB {
	return db.Order(clause.OrderByColumn{Column: clause.Column{Name: "order"}}).Order("id")
}

func (s *Store) GetQuizWithQuestions(ctx context.Context, quizID uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := s.db.WithContext(ctx).
		Preload("Questions", byPosition).
		Preload("Questions.Options", byPosition).
		First(&quiz, quizID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (s *Store) CreateQuiz(ctx context.Context, quiz *models.Quiz) error {
	return s.db.WithContext(ctx).Create(quiz).Error
}

func (s *Store) ListQuizzesByOwner(ctx context.Context, userID uint) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Questions", byPosition).
		Preload("Questions.Options", byPosition).
		Order("created_at DESC").
		Find(&quizzes).Error
	return quizzes, err
}

func (s *Store) CreateSession(ctx context.Context, quizID, hostID uint, code string) (*models.Session, error) {
	session := models.Session{
		QuizID: quizID,
		HostID: hostID,
		Code:   code,
		Status: models.SessionStatusWaiting,
	}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		if isDuplicate(err) {
			return nil, services.ErrDuplicate
		}
		return nil, err
	}
	return &session, nil
}

// GetSessionByCode prefers the live session holding code and falls back to
// the most recent completed one.
func (s *Store) GetSessionByCode(ctx context.Context, code string) (*models.Session, error) {
	session, err := s.firstSession(ctx, "code = ? AND status <> ?", code, models.SessionStatusCompleted)
	if session != nil || err != nil {
		return session, err
	}
	return s.firstSession(ctx, "code = ?", code)
}

func (s *Store) firstSession(ctx context.Context, query string, args ...interface{}) (*models.Session, error) {
	var session models.Session
	err := s.db.WithContext(ctx).Where(query, args...).Order("id DESC").First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Store) UpdateSessionStatus(ctx context.Context, code, status string, ts models.SessionTimestamps) error {
	updates := map[string]interface{}{"status": status}
	if ts.StartedAt != nil {
		updates["started_at"] = *ts.StartedAt
	}
	if ts.EndedAt != nil {
		updates["ended_at"] = *ts.EndedAt
	}
	return s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("code = ? AND status <> ?", code, models.SessionStatusCompleted).
		Updates(updates).Error
}

func (s *Store) UpdateSessionProgress(ctx context.Context, code string, questionIndex int) error {
	return s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("code = ? AND status = ?", code, models.SessionStatusActive).
		Update("current_question", questionIndex).Error
}

func (s *Store) InsertParticipant(ctx context.Context, sessionID uint, nickname string, userID *uint) (*models.Participant, error) {
	participant := models.Participant{
		SessionID: sessionID,
		Nickname:  nickname,
		UserID:    userID,
		JoinedAt:  time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&participant).Error; err != nil {
		if isDuplicate(err) {
			return nil, services.ErrDuplicate
		}
		return nil, err
	}
	return &participant, nil
}

func (s *Store) FindParticipant(ctx context.Context, sessionID uint, nickname string) (*models.Participant, error) {
	var participant models.Participant
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND nickname = ?", sessionID, nickname).
		First(&participant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

func (s *Store) ListParticipants(ctx context.Context, sessionID uint) ([]models.Participant, error) {
	var participants []models.Participant
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id").
		Find(&participants).Error
	return participants, err
}

func (s *Store) InsertAnswer(ctx context.Context, answer *models.Answer) error {
	if err := s.db.WithContext(ctx).Create(answer).Error; err != nil {
		if isDuplicate(err) {
			return services.ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *Store) FindAnswer(ctx context.Context, participantID, questionID uint) (*models.Answer, error) {
	var answer models.Answer
	err := s.db.WithContext(ctx).
		Where("participant_id = ? AND question_id = ?", participantID, questionID).
		First(&answer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &answer, nil
}

func (s *Store) IncrementScore(ctx context.Context, participantID uint, points int) error {
	return s.db.WithContext(ctx).
		Model(&models.Participant{}).
		Where("id = ?", participantID).
		UpdateColumn("score", gorm.Expr("score + ?", points)).Error
}

// isDuplicate recognizes unique index violations from every driver we run on.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
