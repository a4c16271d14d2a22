package services

import (
	"context"
	"fmt"
	"strings"

	"livequiz/models"
)

type QuizService struct {
	repo QuizRepository
}

func NewQuizService(repo QuizRepository) *QuizService {
	return &QuizService{repo: repo}
}

type CreateQuizRequest struct {
	Title       string                  `json:"title" binding:"required"`
	Description string                  `json:"description"`
	Questions   []CreateQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}

type CreateQuestionRequest struct {
	Text      string                `json:"text" binding:"required"`
	TimeLimit int                   `json:"time_limit" binding:"required,min=5,max=300"`
	Points    int                   `json:"points" binding:"omitempty,min=1"`
	Order     int                   `json:"order"`
	Options   []CreateOptionRequest `json:"options" binding:"required,min=2,max=4,dive"`
}

type CreateOptionRequest struct {
	Text      string `json:"text" binding:"required"`
	IsCorrect bool   `json:"is_correct"`
	Order     int    `json:"order"`
}

// CreateQuiz validates and stores a quiz owned by userID.
func (s *QuizService) CreateQuiz(ctx context.Context, userID uint, req *CreateQuizRequest) (*models.Quiz, error) {
	if err := validateQuiz(req); err != nil {
		return nil, err
	}

	quiz := &models.Quiz{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		UserID:      userID,
		Questions:   make([]models.Question, len(req.Questions)),
	}
	for i, qReq := range req.Questions {
		order := qReq.Order
		if order == 0 {
			order = i + 1
		}
		points := qReq.Points
		if points == 0 {
			points = DefaultMaxPoints
		}
		question := models.Question{
			Text:      qReq.Text,
			TimeLimit: qReq.TimeLimit,
			Points:    points,
			Order:     order,
			Options:   make([]models.Option, len(qReq.Options)),
		}
		for j, optReq := range qReq.Options {
			optOrder := optReq.Order
			if optOrder == 0 {
				optOrder = j + 1
			}
			question.Options[j] = models.Option{Text: optReq.Text, IsCorrect: optReq.IsCorrect, Order: optOrder}
		}
		quiz.Questions[i] = question
	}

	if err := s.repo.CreateQuiz(ctx, quiz); err != nil {
		return nil, storageError("create quiz", err)
	}
	return quiz, nil
}

func (s *QuizService) GetUserQuizzes(ctx context.Context, userID uint) ([]models.Quiz, error) {
	quizzes, err := s.repo.ListQuizzesByOwner(ctx, userID)
	if err != nil {
		return nil, storageError("list quizzes", err)
	}
	return quizzes, nil
}

// GetQuizByID returns the quiz only to its owner.
func (s *QuizService) GetQuizByID(ctx context.Context, quizID, userID uint) (*models.Quiz, error) {
	quiz, err := s.repo.GetQuizWithQuestions(ctx, quizID)
	if err != nil {
		return nil, storageError("load quiz", err)
	}
	if quiz == nil || quiz.UserID != userID {
		return nil, ErrQuizNotFound
	}
	return quiz, nil
}

func validateQuiz(req *CreateQuizRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return invalidArgument("INVALID_QUIZ", "quiz title is required")
	}
	if len(req.Questions) == 0 {
		return invalidArgument("INVALID_QUIZ", "quiz needs at least one question")
	}
	for i, q := range req.Questions {
		if q.TimeLimit < 5 || q.TimeLimit > 300 {
			return invalidArgument("INVALID_QUIZ", fmt.Sprintf("question %d: time limit must be between 5 and 300 seconds", i+1))
		}
		if len(q.Options) < 2 || len(q.Options) > 4 {
			return invalidArgument("INVALID_QUIZ", fmt.Sprintf("question %d: needs between 2 and 4 options", i+1))
		}
		correct := 0
		for _, o := range q.Options {
			if o.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			return invalidArgument("INVALID_QUIZ", fmt.Sprintf("question %d: must have exactly one correct answer", i+1))
		}
	}
	return nil
}
