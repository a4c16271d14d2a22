package models

import (
	"time"

	"gorm.io/gorm"
)

type Question struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	QuizID    uint           `json:"quiz_id" gorm:"not null;index"`
	Text      string         `json:"text" gorm:"not null"`
	TimeLimit int            `json:"time_limit" gorm:"not null;default:30"` // seconds
	Points    int            `json:"points" gorm:"not null;default:1000"`
	Order     int            `json:"order" gorm:"not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Options []Option `json:"options,omitempty" gorm:"foreignKey:QuestionID"`
}

// CorrectOption returns the option flagged correct, or nil for malformed content.
func (q *Question) CorrectOption() *Option {
	for i := range q.Options {
		if q.Options[i].IsCorrect {
			return &q.Options[i]
		}
	}
	return nil
}

// Option looks up one of the question's options by id.
func (q *Question) Option(id uint) *Option {
	for i := range q.Options {
		if q.Options[i].ID == id {
			return &q.Options[i]
		}
	}
	return nil
}
