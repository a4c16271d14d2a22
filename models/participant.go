package models

import "time"

type Participant struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	SessionID uint      `json:"session_id" gorm:"not null;uniqueIndex:idx_participants_session_nickname"`
	UserID    *uint     `json:"user_id,omitempty"` // nil for anonymous players
	Nickname  string    `json:"nickname" gorm:"size:64;not null;uniqueIndex:idx_participants_session_nickname"`
	Score     int       `json:"score" gorm:"not null;default:0"`
	JoinedAt  time.Time `json:"joined_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
