package services

import "livequiz/models"

// EventType names a message delivered on a game's channel.
type EventType string

const (
	EventRosterUpdated   EventType = "roster-updated"
	EventGameStarted     EventType = "game-started"
	EventNextQuestion    EventType = "next-question"
	EventScoreUpdated    EventType = "score-updated"
	EventAnswerResult    EventType = "answer-private-result"
	EventQuestionEnded   EventType = "question-ended"
	EventGameEnded       EventType = "game-ended"
	EventParticipantLeft EventType = "participant-left"
	EventGameState       EventType = "game-state"
)

// Event is one message for the channel named by a game code. A non-zero To
// restricts delivery to that participant's sockets.
type Event struct {
	Type    EventType `json:"type"`
	To      uint      `json:"to,omitempty"`
	Payload any       `json:"payload"`
}

// Publisher is the messaging fan-out boundary. Publish must not block the
// caller on delivery.
type Publisher interface {
	Publish(code string, ev Event)
}

// SanitizedQuestion is what players see: the options without correctness.
type SanitizedQuestion struct {
	ID        uint              `json:"id"`
	Text      string            `json:"text"`
	TimeLimit int               `json:"time_limit"`
	Points    int               `json:"points"`
	Options   []SanitizedOption `json:"options"`
}

type SanitizedOption struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

func sanitizeQuestion(q *models.Question) *SanitizedQuestion {
	sq := &SanitizedQuestion{
		ID:        q.ID,
		Text:      q.Text,
		TimeLimit: q.TimeLimit,
		Points:    q.Points,
		Options:   make([]SanitizedOption, len(q.Options)),
	}
	for i, option := range q.Options {
		sq.Options[i] = SanitizedOption{ID: option.ID, Text: option.Text}
	}
	return sq
}

// RosterEntry is one line of a roster or scoreboard.
type RosterEntry struct {
	ParticipantID uint   `json:"participant_id"`
	Nickname      string `json:"nickname"`
	Score         int    `json:"score"`
	Rank          int    `json:"rank"`
}

type RosterPayload struct {
	Roster []RosterEntry `json:"roster"`
}

type QuestionPayload struct {
	Question       *SanitizedQuestion `json:"question"`
	QuestionNumber int                `json:"question_number"`
	TotalQuestions int                `json:"total_questions"`
}

type AnswerResultPayload struct {
	QuestionID uint `json:"question_id"`
	Correct    bool `json:"correct"`
	Points     int  `json:"points"`
	TotalScore int  `json:"total_score"`
}

// AnswerReveal is one player's answer as shown once the question closes.
type AnswerReveal struct {
	ParticipantID uint   `json:"participant_id"`
	Nickname      string `json:"nickname"`
	OptionID      uint   `json:"option_id"`
	Correct       bool   `json:"correct"`
	Points        int    `json:"points"`
}

type QuestionEndedPayload struct {
	QuestionID      uint           `json:"question_id"`
	CorrectOptionID uint           `json:"correct_option_id"`
	Answers         []AnswerReveal `json:"answers"`
}

type GameEndedPayload struct {
	FinalScores []RosterEntry `json:"final_scores"`
	Reason      string        `json:"reason"`
}

type ParticipantLeftPayload struct {
	ParticipantID uint   `json:"participant_id"`
	Nickname      string `json:"nickname"`
}

const (
	EndReasonCompleted        = "completed"
	EndReasonHostEnded        = "host_ended"
	EndReasonHostDisconnected = "host_disconnected"
)
