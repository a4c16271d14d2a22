package services

import (
	"context"
	"errors"
	"log"
	"time"

	"livequiz/models"
)

// JoinThrottle is the short-lived request fingerprint cache used to absorb
// double-submitted join requests.
type JoinThrottle interface {
	// Acquire records key for window and reports false if it was already present.
	Acquire(ctx context.Context, key string, window time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// participantStore is the slice of the repository the registry needs.
type participantStore interface {
	GetSessionByCode(ctx context.Context, code string) (*models.Session, error)
	FindParticipant(ctx context.Context, sessionID uint, nickname string) (*models.Participant, error)
	InsertParticipant(ctx context.Context, sessionID uint, nickname string, userID *uint) (*models.Participant, error)
}

// ParticipantRegistry admits players into waiting sessions.
//
// Admission is serialized per (code, nickname) so concurrent requests for the
// same nickname produce exactly one participant. The unique index on
// (session_id, nickname) backs this up across processes.
type ParticipantRegistry struct {
	store    participantStore
	throttle JoinThrottle
	window   time.Duration
	locks    *keyedMutex
}

// NewParticipantRegistry builds a registry. A nil throttle or zero window
// disables fingerprinting.
func NewParticipantRegistry(store participantStore, throttle JoinThrottle, window time.Duration) *ParticipantRegistry {
	return &ParticipantRegistry{
		store:    store,
		throttle: throttle,
		window:   window,
		locks:    newKeyedMutex(),
	}
}

func admissionKey(code, nickname string) string {
	return code + ":" + nickname
}

// Admit registers nickname in the session identified by code. Rejections are
// ErrSessionNotFound, ErrSessionNotJoinable, ErrNicknameTaken or ErrTooFrequent.
func (r *ParticipantRegistry) Admit(ctx context.Context, code, nickname string, userID *uint) (*models.Participant, error) {
	key := admissionKey(code, nickname)

	fingerprinted := false
	if r.throttle != nil && r.window > 0 {
		ok, err := r.throttle.Acquire(ctx, key, r.window)
		switch {
		case err != nil:
			// The unique index still guards correctness.
			log.Printf("join: fingerprint cache unavailable for %s: %v", code, err)
		case !ok:
			return nil, ErrTooFrequent
		default:
			fingerprinted = true
		}
	}

	unlock := r.locks.Lock(key)
	defer unlock()

	participant, err := r.admit(ctx, code, nickname, userID)
	if fingerprinted && (err == nil || isStorageError(err)) {
		// Success clears the fingerprint so a legitimate retry is never held
		// back; a storage failure is retryable and must not be throttled either.
		if rerr := r.throttle.Release(ctx, key); rerr != nil {
			log.Printf("join: failed to clear fingerprint for %s: %v", code, rerr)
		}
	}
	return participant, err
}

func (r *ParticipantRegistry) admit(ctx context.Context, code, nickname string, userID *uint) (*models.Participant, error) {
	session, err := r.store.GetSessionByCode(ctx, code)
	if err != nil {
		return nil, storageError("load session", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.Status != models.SessionStatusWaiting {
		return nil, ErrSessionNotJoinable
	}

	existing, err := r.store.FindParticipant(ctx, session.ID, nickname)
	if err != nil {
		return nil, storageError("find participant", err)
	}
	if existing != nil {
		return nil, ErrNicknameTaken
	}

	participant, err := r.store.InsertParticipant(ctx, session.ID, nickname, userID)
	if errors.Is(err, ErrDuplicate) {
		return nil, ErrNicknameTaken
	}
	if err != nil {
		return nil, storageError("insert participant", err)
	}
	return participant, nil
}

func isStorageError(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code == CodeStorageUnavailable
}
