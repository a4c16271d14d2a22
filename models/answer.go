package models

import "time"

type Answer struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	ParticipantID  uint      `json:"participant_id" gorm:"not null;uniqueIndex:idx_answers_participant_question"`
	QuestionID     uint      `json:"question_id" gorm:"not null;uniqueIndex:idx_answers_participant_question"`
	OptionID       uint      `json:"option_id" gorm:"not null"`
	IsCorrect      bool      `json:"is_correct" gorm:"not null"`
	ElapsedSeconds float64   `json:"elapsed_seconds" gorm:"not null"`
	Points         int       `json:"points" gorm:"not null"`
	CreatedAt      time.Time `json:"created_at"`
}
