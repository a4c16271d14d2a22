package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"livequiz/models"
)

type memRepo struct {
	mu           sync.Mutex
	nextID       uint
	quizzes      map[uint]*models.Quiz
	sessions     []*models.Session
	participants []*models.Participant
	answers      []*models.Answer

	failInsertAnswer error
	failStatus       error
	createCalls      int
}

func newMemRepo() *memRepo {
	return &memRepo{nextID: 1000, quizzes: make(map[uint]*models.Quiz)}
}

func (r *memRepo) id() uint {
	r.nextID++
	return r.nextID
}

func (r *memRepo) addQuiz(q *models.Quiz) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quizzes[q.ID] = q
}

func (r *memRepo) GetQuizWithQuestions(_ context.Context, quizID uint) (*models.Quiz, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quizzes[quizID]
	if !ok {
		return nil, nil
	}
	cp := *q
	cp.Questions = append([]models.Question(nil), q.Questions...)
	return &cp, nil
}

func (r *memRepo) CreateSession(_ context.Context, quizID, hostID uint, code string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	for _, s := range r.sessions {
		if s.Code == code && s.Status != models.SessionStatusCompleted {
			return nil, ErrDuplicate
		}
	}
	s := &models.Session{ID: r.id(), QuizID: quizID, HostID: hostID, Code: code, Status: models.SessionStatusWaiting}
	r.sessions = append(r.sessions, s)
	cp := *s
	return &cp, nil
}

func (r *memRepo) liveSession(code string) *models.Session {
	var found *models.Session
	for _, s := range r.sessions {
		if s.Code != code {
			continue
		}
		if s.Status != models.SessionStatusCompleted {
			return s
		}
		found = s
	}
	return found
}

func (r *memRepo) GetSessionByCode(_ context.Context, code string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.liveSession(code)
	if s == nil {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *memRepo) UpdateSessionStatus(_ context.Context, code, status string, ts models.SessionTimestamps) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failStatus != nil {
		return r.failStatus
	}
	s := r.liveSession(code)
	if s == nil {
		return nil
	}
	s.Status = status
	if ts.StartedAt != nil {
		s.StartedAt = ts.StartedAt
	}
	if ts.EndedAt != nil {
		s.EndedAt = ts.EndedAt
	}
	return nil
}

func (r *memRepo) UpdateSessionProgress(_ context.Context, code string, questionIndex int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s := r.liveSession(code); s != nil {
		s.CurrentQuestion = questionIndex
	}
	return nil
}

func (r *memRepo) InsertParticipant(_ context.Context, sessionID uint, nickname string, userID *uint) (*models.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.participants {
		if p.SessionID == sessionID && p.Nickname == nickname {
			return nil, ErrDuplicate
		}
	}
	p := &models.Participant{ID: r.id(), SessionID: sessionID, Nickname: nickname, UserID: userID, JoinedAt: time.Now()}
	r.participants = append(r.participants, p)
	cp := *p
	return &cp, nil
}

func (r *memRepo) FindParticipant(_ context.Context, sessionID uint, nickname string) (*models.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.participants {
		if p.SessionID == sessionID && p.Nickname == nickname {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memRepo) ListParticipants(_ context.Context, sessionID uint) ([]models.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Participant
	for _, p := range r.participants {
		if p.SessionID == sessionID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *memRepo) InsertAnswer(_ context.Context, answer *models.Answer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failInsertAnswer != nil {
		return r.failInsertAnswer
	}
	for _, a := range r.answers {
		if a.ParticipantID == answer.ParticipantID && a.QuestionID == answer.QuestionID {
			return ErrDuplicate
		}
	}
	answer.ID = r.id()
	cp := *answer
	r.answers = append(r.answers, &cp)
	return nil
}

func (r *memRepo) FindAnswer(_ context.Context, participantID, questionID uint) (*models.Answer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.answers {
		if a.ParticipantID == participantID && a.QuestionID == questionID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memRepo) IncrementScore(_ context.Context, participantID uint, points int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.participants {
		if p.ID == participantID {
			p.Score += points
			return nil
		}
	}
	return nil
}

func (r *memRepo) Transact(_ context.Context, fn func(tx Repository) error) error {
	return fn(r)
}

func (r *memRepo) sessionStatus(code string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s := r.liveSession(code); s != nil {
		return s.Status
	}
	return ""
}

func (r *memRepo) score(participantID uint) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.participants {
		if p.ID == participantID {
			return p.Score
		}
	}
	return -1
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	codes  []string
}

func (p *recordingPublisher) Publish(code string, ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	p.codes = append(p.codes, code)
}

func (p *recordingPublisher) ofType(t EventType) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Event
	for _, ev := range p.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// waitFor polls until at least n events of type t were published.
func (p *recordingPublisher) waitFor(t *testing.T, evType EventType, n int, timeout time.Duration) []Event {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		events := p.ofType(evType)
		if len(events) >= n {
			return events
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d %s events, got %d", n, evType, len(events))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type memThrottle struct {
	mu   sync.Mutex
	keys map[string]bool
	err  error
}

func (m *memThrottle) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.keys == nil {
		m.keys = make(map[string]bool)
	}
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memThrottle) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

const (
	testHostID  = 7
	testQuizID  = 1
	question1ID = 11
	question2ID = 12
	correct1ID  = 101
	wrong1ID    = 102
	correct2ID  = 201
	wrong2ID    = 202
)

func testQuiz(timeLimit int) *models.Quiz {
	return &models.Quiz{
		ID:     testQuizID,
		Title:  "Capitals",
		UserID: testHostID,
		Questions: []models.Question{
			{ID: question1ID, QuizID: testQuizID, Text: "Capital of Peru?", TimeLimit: timeLimit, Points: 1000, Order: 1,
				Options: []models.Option{
					{ID: correct1ID, QuestionID: question1ID, Text: "Lima", IsCorrect: true, Order: 1},
					{ID: wrong1ID, QuestionID: question1ID, Text: "Cusco", Order: 2},
				}},
			{ID: question2ID, QuizID: testQuizID, Text: "Capital of Chile?", TimeLimit: timeLimit, Points: 1000, Order: 2,
				Options: []models.Option{
					{ID: correct2ID, QuestionID: question2ID, Text: "Santiago", IsCorrect: true, Order: 1},
					{ID: wrong2ID, QuestionID: question2ID, Text: "Valparaiso", Order: 2},
				}},
		},
	}
}

func (r *memRepo) CreateQuiz(_ context.Context, quiz *models.Quiz) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	quiz.ID = r.id()
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		q.ID = r.id()
		q.QuizID = quiz.ID
		for j := range q.Options {
			q.Options[j].ID = r.id()
			q.Options[j].QuestionID = q.ID
		}
	}
	r.quizzes[quiz.ID] = quiz
	return nil
}

func (r *memRepo) ListQuizzesByOwner(_ context.Context, userID uint) ([]models.Quiz, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Quiz
	for _, q := range r.quizzes {
		if q.UserID == userID {
			out = append(out, *q)
		}
	}
	return out, nil
}
