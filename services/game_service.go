package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math"
	"math/big"
	"sort"
	"sync"
	"time"

	"livequiz/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// The expiry buffer is added to a question's own limit. The early delay
// replaces it once everyone has answered.
const (
	DefaultQuestionExpiryBuffer = 5 * time.Second
	DefaultEarlyProgressDelay   = 2 * time.Second
	DefaultJoinDedupWindow      = time.Second
	DefaultCodeAttempts         = 10

	// timerStorageTimeout bounds repository calls made from timer callbacks.
	timerStorageTimeout = 10 * time.Second
	// minRetryDelay spaces out retries of a timer-driven transition that hit a storage error.
	minRetryDelay = time.Second
	// clientClockGrace is how far a client-reported elapsed time may undercut the server's measurement.
	clientClockGrace = time.Second
)

type GameSettings struct {
	QuestionExpiryBuffer time.Duration
	EarlyProgressDelay   time.Duration
	JoinDedupWindow      time.Duration
	ScoreDecayWindow     time.Duration
	CodeAttempts         int
}

func DefaultGameSettings() GameSettings {
	return GameSettings{
		QuestionExpiryBuffer: DefaultQuestionExpiryBuffer,
		EarlyProgressDelay:   DefaultEarlyProgressDelay,
		JoinDedupWindow:      DefaultJoinDedupWindow,
		ScoreDecayWindow:     DefaultScoreDecayWindow,
		CodeAttempts:         DefaultCodeAttempts,
	}
}

type CreateSessionRequest struct {
	QuizID uint `json:"quiz_id" binding:"required"`
}

type JoinGameRequest struct {
	Nickname string `json:"nickname" binding:"required,max=64"`
}

type SubmitAnswerRequest struct {
	QuestionID     uint     `json:"question_id" binding:"required"`
	OptionID       uint     `json:"option_id" binding:"required"`
	ElapsedSeconds *float64 `json:"elapsed_seconds"`
}

type AdvanceRequest struct {
	QuestionID uint `json:"question_id" binding:"required"`
}

// AnswerSubmission is one player's answer to the active question. A negative
// ElapsedSeconds lets the server measure the time since the question began.
type AnswerSubmission struct {
	Code           string
	ParticipantID  uint
	QuestionID     uint
	OptionID       uint
	ElapsedSeconds float64
}

type AnswerResult struct {
	Accepted   bool `json:"accepted"`
	Stale      bool `json:"stale,omitempty"`
	Correct    bool `json:"correct"`
	Points     int  `json:"points"`
	TotalScore int  `json:"total_score"`
}

// GameState is a point-in-time view of a game for (re)connecting clients.
type GameState struct {
	Code           string             `json:"code"`
	Status         string             `json:"status"`
	QuestionNumber int                `json:"question_number"`
	TotalQuestions int                `json:"total_questions"`
	Question       *SanitizedQuestion `json:"question,omitempty"`
	SecondsLeft    int                `json:"seconds_left"`
	QuestionClosed bool               `json:"question_closed"`
	Roster         []RosterEntry      `json:"roster"`
}

// liveGame is the in-memory working set of an active game. It is only touched
// while holding the game's code lock.
type liveGame struct {
	code            string
	sessionID       uint
	hostID          uint
	questions       []models.Question
	index           int
	roster          map[uint]*RosterEntry
	answered        map[uint]bool
	answers         []AnswerReveal
	questionStarted time.Time
	deadline        time.Time
	closed          bool
	timer           *ProgressionTimer
}

func (g *liveGame) current() *models.Question {
	return &g.questions[g.index]
}

func (g *liveGame) allAnswered() bool {
	for id := range g.roster {
		if !g.answered[id] {
			return false
		}
	}
	return true
}

func (g *liveGame) rosterEntries() []RosterEntry {
	entries := make([]RosterEntry, 0, len(g.roster))
	for _, e := range g.roster {
		entries = append(entries, *e)
	}
	return rankEntries(entries)
}

// liveGames owns every active game in this process, keyed by code.
type liveGames struct {
	mu     sync.RWMutex
	byCode map[string]*liveGame
}

func (l *liveGames) get(code string) *liveGame {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.byCode[code]
}

func (l *liveGames) put(g *liveGame) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byCode[g.code] = g
}

func (l *liveGames) drop(code string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.byCode, code)
}

func (l *liveGames) drain() []*liveGame {
	l.mu.Lock()
	defer l.mu.Unlock()
	games := make([]*liveGame, 0, len(l.byCode))
	for code, g := range l.byCode {
		games = append(games, g)
		delete(l.byCode, code)
	}
	return games
}

// GameService orchestrates live games: admission, question progression,
// scoring and fan-out. All mutations of one game are serialized on its code.
type GameService struct {
	repo      Repository
	registry  *ParticipantRegistry
	scorer    Scorer
	publisher Publisher
	settings  GameSettings
	locks     *keyedMutex
	games     *liveGames
	tracer    trace.Tracer

	newCode func() (string, error)
	now     func() time.Time
}

func NewGameService(repo Repository, throttle JoinThrottle, publisher Publisher, settings GameSettings) *GameService {
	if settings.CodeAttempts <= 0 {
		settings.CodeAttempts = DefaultCodeAttempts
	}
	if publisher == nil {
		publisher = discardPublisher{}
	}
	return &GameService{
		repo:      repo,
		registry:  NewParticipantRegistry(repo, throttle, settings.JoinDedupWindow),
		scorer:    NewScorer(settings.ScoreDecayWindow),
		publisher: publisher,
		settings:  settings,
		locks:     newKeyedMutex(),
		games:     &liveGames{byCode: make(map[string]*liveGame)},
		tracer:    otel.Tracer("livequiz/services"),
		newCode:   generateCode,
		now:       time.Now,
	}
}

// SetPublisher swaps the fan-out boundary. Only call before serving traffic.
func (s *GameService) SetPublisher(p Publisher) {
	s.publisher = p
}

// CreateSession allocates a game code and persists a waiting session.
func (s *GameService) CreateSession(ctx context.Context, quizID, hostID uint) (_ *models.Session, err error) {
	ctx, span := s.tracer.Start(ctx, "game.create", trace.WithAttributes(attribute.Int64("quiz.id", int64(quizID))))
	defer func() { endSpan(span, err) }()

	quiz, err := s.repo.GetQuizWithQuestions(ctx, quizID)
	if err != nil {
		return nil, storageError("load quiz", err)
	}
	if quiz == nil {
		return nil, ErrQuizNotFound
	}
	if quiz.UserID != hostID {
		return nil, ErrNotHost
	}
	if len(quiz.Questions) == 0 {
		return nil, ErrNoQuestions
	}

	for attempt := 1; attempt <= s.settings.CodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, &Error{Code: CodeCodeGenerationFailed, Reason: ErrCodeGenerationFailed.Reason, Message: "generate game code", Cause: err}
		}

		session, err := s.repo.CreateSession(ctx, quizID, hostID, code)
		if errors.Is(err, ErrDuplicate) {
			log.Printf("game: code %s already live, retrying (attempt %d/%d)", code, attempt, s.settings.CodeAttempts)
			continue
		}
		if err != nil {
			return nil, storageError("create session", err)
		}

		log.Printf("game: created session %d with code %s for quiz %d", session.ID, session.Code, quizID)
		return session, nil
	}

	return nil, ErrCodeGenerationFailed
}

// Join admits nickname into the waiting game and broadcasts the new roster.
func (s *GameService) Join(ctx context.Context, code, nickname string, userID *uint) (_ *models.Participant, err error) {
	ctx, span := s.tracer.Start(ctx, "game.join", trace.WithAttributes(attribute.String("game.code", code)))
	defer func() { endSpan(span, err) }()

	participant, err := s.registry.Admit(ctx, code, nickname, userID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(code)
	defer unlock()

	// A join that raced a concurrent start is folded into the live roster.
	if g := s.games.get(code); g != nil {
		if _, ok := g.roster[participant.ID]; !ok {
			g.roster[participant.ID] = &RosterEntry{ParticipantID: participant.ID, Nickname: participant.Nickname}
		}
	}

	s.publishRoster(ctx, code, participant.SessionID)
	log.Printf("game: %s joined %s as participant %d", participant.Nickname, code, participant.ID)
	return participant, nil
}

// Start moves a waiting game to active and opens the first question.
func (s *GameService) Start(ctx context.Context, code string, hostID uint) (err error) {
	ctx, span := s.tracer.Start(ctx, "game.start", trace.WithAttributes(attribute.String("game.code", code)))
	defer func() { endSpan(span, err) }()

	unlock := s.locks.Lock(code)
	defer unlock()

	session, err := s.repo.GetSessionByCode(ctx, code)
	if err != nil {
		return storageError("load session", err)
	}
	if session == nil {
		return ErrSessionNotFound
	}
	if session.HostID != hostID {
		return ErrNotHost
	}
	switch session.Status {
	case models.SessionStatusCompleted:
		return ErrGameCompleted
	case models.SessionStatusActive:
		return ErrAlreadyStarted
	}

	quiz, err := s.repo.GetQuizWithQuestions(ctx, session.QuizID)
	if err != nil {
		return storageError("load quiz", err)
	}
	if quiz == nil {
		return ErrQuizNotFound
	}
	if len(quiz.Questions) == 0 {
		return ErrNoQuestions
	}

	participants, err := s.repo.ListParticipants(ctx, session.ID)
	if err != nil {
		return storageError("list participants", err)
	}
	if len(participants) == 0 {
		return ErrNoParticipants
	}

	startedAt := s.now()
	if err := s.repo.UpdateSessionStatus(ctx, code, models.SessionStatusActive, models.SessionTimestamps{StartedAt: &startedAt}); err != nil {
		return storageError("activate session", err)
	}

	g := &liveGame{
		code:      code,
		sessionID: session.ID,
		hostID:    session.HostID,
		questions: quiz.Questions,
		roster:    make(map[uint]*RosterEntry, len(participants)),
	}
	for _, p := range participants {
		g.roster[p.ID] = &RosterEntry{ParticipantID: p.ID, Nickname: p.Nickname, Score: p.Score}
	}
	g.timer = NewProgressionTimer(func(questionID uint) {
		s.onTimerExpired(code, questionID)
	})
	s.games.put(g)

	log.Printf("game: %s started with %d players and %d questions", code, len(participants), len(quiz.Questions))
	s.beginQuestion(g, 0, EventGameStarted)
	return nil
}

// SubmitAnswer scores a player's answer to the active question. Answers for a
// question that already advanced are acknowledged as stale and ignored.
func (s *GameService) SubmitAnswer(ctx context.Context, sub AnswerSubmission) (_ *AnswerResult, err error) {
	ctx, span := s.tracer.Start(ctx, "game.answer", trace.WithAttributes(
		attribute.String("game.code", sub.Code),
		attribute.Int64("participant.id", int64(sub.ParticipantID)),
		attribute.Int64("question.id", int64(sub.QuestionID)),
	))
	defer func() { endSpan(span, err) }()

	unlock := s.locks.Lock(sub.Code)
	defer unlock()

	g := s.games.get(sub.Code)
	if g == nil {
		return nil, ErrGameNotActive
	}
	member, ok := g.roster[sub.ParticipantID]
	if !ok {
		return nil, ErrParticipantNotFound
	}

	question := g.current()
	if question.ID != sub.QuestionID {
		log.Printf("game: stale answer from participant %d in %s for question %d (current %d)",
			sub.ParticipantID, sub.Code, sub.QuestionID, question.ID)
		return &AnswerResult{Stale: true, TotalScore: member.Score}, nil
	}
	if g.answered[sub.ParticipantID] {
		return nil, ErrAlreadyAnswered
	}
	now := s.now()
	if g.closed || now.After(g.deadline) {
		return nil, ErrQuestionClosed
	}

	option := question.Option(sub.OptionID)
	if option == nil {
		return nil, ErrOptionNotFound
	}

	existing, err := s.repo.FindAnswer(ctx, sub.ParticipantID, question.ID)
	if err != nil {
		return nil, storageError("find answer", err)
	}
	if existing != nil {
		return nil, ErrAlreadyAnswered
	}

	// The client may report its own elapsed time but never much less than the server saw.
	measured := now.Sub(g.questionStarted)
	elapsed := sub.ElapsedSeconds
	if elapsed < 0 || math.IsNaN(elapsed) {
		elapsed = measured.Seconds()
	} else if floor := (measured - clientClockGrace).Seconds(); elapsed < floor {
		elapsed = floor
	}
	points := s.scorer.Score(option.IsCorrect, elapsed, float64(question.TimeLimit), question.Points)

	answer := &models.Answer{
		ParticipantID:  sub.ParticipantID,
		QuestionID:     question.ID,
		OptionID:       option.ID,
		IsCorrect:      option.IsCorrect,
		ElapsedSeconds: elapsed,
		Points:         points,
	}
	err = s.repo.Transact(ctx, func(tx Repository) error {
		if err := tx.InsertAnswer(ctx, answer); err != nil {
			return err
		}
		return tx.IncrementScore(ctx, sub.ParticipantID, points)
	})
	if errors.Is(err, ErrDuplicate) {
		return nil, ErrAlreadyAnswered
	}
	if err != nil {
		return nil, storageError("record answer", err)
	}

	// Persisted; now the live state may move.
	g.answered[sub.ParticipantID] = true
	g.answers = append(g.answers, AnswerReveal{
		ParticipantID: sub.ParticipantID,
		Nickname:      member.Nickname,
		OptionID:      option.ID,
		Correct:       option.IsCorrect,
		Points:        points,
	})
	member.Score += points

	s.publisher.Publish(g.code, Event{Type: EventScoreUpdated, Payload: RosterPayload{Roster: g.rosterEntries()}})
	s.publisher.Publish(g.code, Event{
		Type: EventAnswerResult,
		To:   sub.ParticipantID,
		Payload: AnswerResultPayload{
			QuestionID: question.ID,
			Correct:    option.IsCorrect,
			Points:     points,
			TotalScore: member.Score,
		},
	})

	if g.allAnswered() {
		s.closeQuestion(g)
		g.timer.Arm(question.ID, s.settings.EarlyProgressDelay)
		log.Printf("game: all %d players answered question %d in %s, advancing after %v",
			len(g.roster), question.ID, g.code, s.settings.EarlyProgressDelay)
	}

	return &AnswerResult{
		Accepted:   true,
		Correct:    option.IsCorrect,
		Points:     points,
		TotalScore: member.Score,
	}, nil
}

// AdvanceQuestion is the host override for progression. fromQuestionID is the
// question the host is looking at: if the game already moved past it the call
// is a no-op, so a host click racing the timer advances once.
func (s *GameService) AdvanceQuestion(ctx context.Context, code string, hostID, fromQuestionID uint) (err error) {
	ctx, span := s.tracer.Start(ctx, "game.advance", trace.WithAttributes(attribute.String("game.code", code)))
	defer func() { endSpan(span, err) }()

	if fromQuestionID == 0 {
		return invalidArgument("QUESTION_REQUIRED", "question_id is required")
	}

	unlock := s.locks.Lock(code)
	defer unlock()

	g := s.games.get(code)
	if g == nil {
		return ErrGameNotActive
	}
	if g.hostID != hostID {
		return ErrNotHost
	}
	if g.current().ID != fromQuestionID {
		log.Printf("game: ignoring advance of %s from question %d, already at %d", code, fromQuestionID, g.current().ID)
		return nil
	}
	return s.advanceLocked(ctx, g)
}

// End force-completes the game on the host's request.
func (s *GameService) End(ctx context.Context, code string, hostID uint) (err error) {
	ctx, span := s.tracer.Start(ctx, "game.end", trace.WithAttributes(attribute.String("game.code", code)))
	defer func() { endSpan(span, err) }()

	unlock := s.locks.Lock(code)
	defer unlock()

	session, err := s.repo.GetSessionByCode(ctx, code)
	if err != nil {
		return storageError("load session", err)
	}
	if session == nil {
		return ErrSessionNotFound
	}
	if session.HostID != hostID {
		return ErrNotHost
	}
	if session.Status == models.SessionStatusCompleted {
		return ErrGameCompleted
	}

	if g := s.games.get(code); g != nil {
		return s.finishLocked(ctx, g, EndReasonHostEnded)
	}

	// Ending a game that never started.
	endedAt := s.now()
	if err := s.repo.UpdateSessionStatus(ctx, code, models.SessionStatusCompleted, models.SessionTimestamps{EndedAt: &endedAt}); err != nil {
		return storageError("complete session", err)
	}
	s.publisher.Publish(code, Event{Type: EventGameEnded, Payload: GameEndedPayload{
		FinalScores: s.persistedRoster(ctx, session.ID, nil),
		Reason:      EndReasonHostEnded,
	}})
	log.Printf("game: %s ended by host before starting", code)
	return nil
}

// HostDisconnect tears down the live game whose host channel went away.
// Scores already recorded stay persisted.
func (s *GameService) HostDisconnect(code string) {
	ctx, cancel := context.WithTimeout(context.Background(), timerStorageTimeout)
	defer cancel()

	unlock := s.locks.Lock(code)
	defer unlock()

	g := s.games.get(code)
	if g == nil {
		return
	}
	g.timer.Disarm()
	s.games.drop(code)

	endedAt := s.now()
	if err := s.repo.UpdateSessionStatus(ctx, code, models.SessionStatusCompleted, models.SessionTimestamps{EndedAt: &endedAt}); err != nil {
		log.Printf("game: failed to close %s after host disconnect: %v", code, err)
	}
	s.publisher.Publish(code, Event{Type: EventGameEnded, Payload: GameEndedPayload{
		FinalScores: s.persistedRoster(ctx, g.sessionID, g),
		Reason:      EndReasonHostDisconnected,
	}})
	log.Printf("game: host left %s, live state discarded", code)
}

// ParticipantDisconnect announces that a player's socket closed. It never
// changes the roster or progression.
func (s *GameService) ParticipantDisconnect(code string, participantID uint) {
	ctx, cancel := context.WithTimeout(context.Background(), timerStorageTimeout)
	defer cancel()

	unlock := s.locks.Lock(code)
	defer unlock()

	nickname := ""
	if g := s.games.get(code); g != nil {
		if member, ok := g.roster[participantID]; ok {
			nickname = member.Nickname
		}
	} else if session, err := s.repo.GetSessionByCode(ctx, code); err == nil && session != nil {
		participants, err := s.repo.ListParticipants(ctx, session.ID)
		if err != nil {
			log.Printf("game: failed to resolve participant %d in %s: %v", participantID, code, err)
		}
		for _, p := range participants {
			if p.ID == participantID {
				nickname = p.Nickname
				break
			}
		}
	}
	if nickname == "" {
		return
	}

	s.publisher.Publish(code, Event{Type: EventParticipantLeft, Payload: ParticipantLeftPayload{
		ParticipantID: participantID,
		Nickname:      nickname,
	}})
}

// Session looks up the session currently holding code.
func (s *GameService) Session(ctx context.Context, code string) (*models.Session, error) {
	session, err := s.repo.GetSessionByCode(ctx, code)
	if err != nil {
		return nil, storageError("load session", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Snapshot reports the game as a reconnecting client should render it.
func (s *GameService) Snapshot(ctx context.Context, code string) (*GameState, error) {
	unlock := s.locks.Lock(code)
	defer unlock()

	if g := s.games.get(code); g != nil {
		question := g.current()
		left := g.deadline.Sub(s.now())
		return &GameState{
			Code:           code,
			Status:         models.SessionStatusActive,
			QuestionNumber: g.index + 1,
			TotalQuestions: len(g.questions),
			Question:       sanitizeQuestion(question),
			SecondsLeft:    int(math.Max(0, math.Ceil(left.Seconds()))),
			QuestionClosed: g.closed,
			Roster:         g.rosterEntries(),
		}, nil
	}

	session, err := s.repo.GetSessionByCode(ctx, code)
	if err != nil {
		return nil, storageError("load session", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	participants, err := s.repo.ListParticipants(ctx, session.ID)
	if err != nil {
		return nil, storageError("list participants", err)
	}
	return &GameState{
		Code:   code,
		Status: session.Status,
		Roster: rosterFromParticipants(participants),
	}, nil
}

// Close disarms every countdown and forgets all live games.
func (s *GameService) Close() {
	for _, g := range s.games.drain() {
		g.timer.Disarm()
	}
}

func (s *GameService) onTimerExpired(code string, questionID uint) {
	ctx, cancel := context.WithTimeout(context.Background(), timerStorageTimeout)
	defer cancel()

	unlock := s.locks.Lock(code)
	defer unlock()

	g := s.games.get(code)
	if g == nil || g.current().ID != questionID {
		return
	}
	if !g.closed {
		// Time is up: reveal the answer and hold it on screen for the buffer.
		s.closeQuestion(g)
		g.timer.Arm(questionID, s.settings.QuestionExpiryBuffer)
		return
	}
	if err := s.advanceLocked(ctx, g); err != nil {
		retry := s.settings.QuestionExpiryBuffer
		if retry < minRetryDelay {
			retry = minRetryDelay
		}
		log.Printf("game: failed to advance %s past question %d, retrying in %v: %v", code, questionID, retry, err)
		g.timer.Arm(questionID, retry)
	}
}

func (s *GameService) advanceLocked(ctx context.Context, g *liveGame) error {
	next := g.index + 1
	if next >= len(g.questions) {
		return s.finishLocked(ctx, g, EndReasonCompleted)
	}

	s.closeQuestion(g)
	s.beginQuestion(g, next, EventNextQuestion)
	if err := s.repo.UpdateSessionProgress(ctx, g.code, next); err != nil {
		log.Printf("game: failed to persist progress of %s: %v", g.code, err)
	}
	return nil
}

func (s *GameService) beginQuestion(g *liveGame, index int, evType EventType) {
	g.index = index
	g.answered = make(map[uint]bool, len(g.roster))
	g.answers = nil
	g.closed = false
	g.questionStarted = s.now()

	question := g.current()
	limit := time.Duration(question.TimeLimit) * time.Second
	g.deadline = g.questionStarted.Add(limit)
	g.timer.Arm(question.ID, limit)

	s.publisher.Publish(g.code, Event{Type: evType, Payload: QuestionPayload{
		Question:       sanitizeQuestion(question),
		QuestionNumber: index + 1,
		TotalQuestions: len(g.questions),
	}})
	log.Printf("game: %s on question %d/%d", g.code, index+1, len(g.questions))
}

func (s *GameService) finishLocked(ctx context.Context, g *liveGame, reason string) error {
	endedAt := s.now()
	if err := s.repo.UpdateSessionStatus(ctx, g.code, models.SessionStatusCompleted, models.SessionTimestamps{EndedAt: &endedAt}); err != nil {
		return storageError("complete session", err)
	}

	g.timer.Disarm()
	s.games.drop(g.code)

	s.closeQuestion(g)
	s.publisher.Publish(g.code, Event{Type: EventGameEnded, Payload: GameEndedPayload{
		FinalScores: s.persistedRoster(ctx, g.sessionID, g),
		Reason:      reason,
	}})
	log.Printf("game: %s completed (%s)", g.code, reason)
	return nil
}

// closeQuestion stops accepting answers for the current question and reveals
// the correct option with everyone's answers. It runs once per question.
func (s *GameService) closeQuestion(g *liveGame) {
	if g.closed {
		return
	}
	g.closed = true

	question := g.current()
	payload := QuestionEndedPayload{
		QuestionID: question.ID,
		Answers:    append([]AnswerReveal{}, g.answers...),
	}
	if correct := question.CorrectOption(); correct != nil {
		payload.CorrectOptionID = correct.ID
	}
	s.publisher.Publish(g.code, Event{Type: EventQuestionEnded, Payload: payload})
	log.Printf("game: %s closed question %d with %d/%d answers", g.code, question.ID, len(g.answers), len(g.roster))
}

// persistedRoster prefers the stored scores and falls back to the live roster.
func (s *GameService) persistedRoster(ctx context.Context, sessionID uint, g *liveGame) []RosterEntry {
	participants, err := s.repo.ListParticipants(ctx, sessionID)
	if err != nil {
		log.Printf("game: failed to load final scores for session %d: %v", sessionID, err)
		if g != nil {
			return g.rosterEntries()
		}
		return []RosterEntry{}
	}
	return rosterFromParticipants(participants)
}

func (s *GameService) publishRoster(ctx context.Context, code string, sessionID uint) {
	participants, err := s.repo.ListParticipants(ctx, sessionID)
	if err != nil {
		log.Printf("game: failed to load roster for %s: %v", code, err)
		return
	}
	s.publisher.Publish(code, Event{Type: EventRosterUpdated, Payload: RosterPayload{Roster: rosterFromParticipants(participants)}})
}

func rosterFromParticipants(participants []models.Participant) []RosterEntry {
	entries := make([]RosterEntry, len(participants))
	for i, p := range participants {
		entries[i] = RosterEntry{ParticipantID: p.ID, Nickname: p.Nickname, Score: p.Score}
	}
	return rankEntries(entries)
}

// rankEntries orders by score, ties by join order, and assigns shared ranks to ties.
func rankEntries(entries []RosterEntry) []RosterEntry {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].ParticipantID < entries[j].ParticipantID
	})
	for i := range entries {
		if i > 0 && entries[i].Score == entries[i-1].Score {
			entries[i].Rank = entries[i-1].Rank
		} else {
			entries[i].Rank = i + 1
		}
	}
	return entries
}

// generateCode returns a random six digit code without a leading zero.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
	}
	span.End()
}

type discardPublisher struct{}

func (discardPublisher) Publish(string, Event) {}
