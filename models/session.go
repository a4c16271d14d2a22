package models

import "time"

const (
	SessionStatusWaiting   = "waiting"
	SessionStatusActive    = "active"
	SessionStatusCompleted = "completed"
)

// Session is one hosted run of a quiz. The code is unique among sessions
// that are not completed, so codes are recycled once a game ends.
type Session struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	QuizID          uint       `json:"quiz_id" gorm:"not null;index"`
	HostID          uint       `json:"host_id" gorm:"not null;index"`
	Code            string     `json:"code" gorm:"size:6;not null;uniqueIndex:idx_sessions_live_code,where:status <> 'completed'"`
	Status          string     `json:"status" gorm:"not null;default:'waiting'"` // waiting, active, completed
	CurrentQuestion int        `json:"current_question" gorm:"not null;default:0"`
	StartedAt       *time.Time `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// SessionTimestamps carries the lifecycle times written alongside a status change.
type SessionTimestamps struct {
	StartedAt *time.Time
	EndedAt   *time.Time
}
