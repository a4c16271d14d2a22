package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"livequiz/models"
)

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

func newWaitingSession(t *testing.T, repo *memRepo) *models.Session {
	t.Helper()
	session, err := repo.CreateSession(context.Background(), testQuizID, testHostID, "424242")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	return session
}

func TestAdmitRejectsInFlightDuplicate(t *testing.T) {
	repo := newMemRepo()
	newWaitingSession(t, repo)
	throttle := &memThrottle{}
	registry := NewParticipantRegistry(repo, throttle, time.Second)
	ctx := context.Background()

	// Simulate a first request still holding the fingerprint.
	if ok, _ := throttle.Acquire(ctx, admissionKey("424242", "Ana"), time.Second); !ok {
		t.Fatal("could not seed fingerprint")
	}
	if _, err := registry.Admit(ctx, "424242", "Ana", nil); !errors.Is(err, ErrTooFrequent) {
		t.Fatalf("error = %v, want ErrTooFrequent", err)
	}

	throttle.Release(ctx, admissionKey("424242", "Ana"))
	if _, err := registry.Admit(ctx, "424242", "Ana", nil); err != nil {
		t.Fatalf("Admit() error = %v", err)
	}
	// Success clears the fingerprint, so the next attempt sees the real conflict.
	if _, err := registry.Admit(ctx, "424242", "Ana", nil); !errors.Is(err, ErrNicknameTaken) {
		t.Fatalf("error = %v, want ErrNicknameTaken", err)
	}
}

func TestAdmitFailsOpenWithoutThrottle(t *testing.T) {
	repo := newMemRepo()
	newWaitingSession(t, repo)
	registry := NewParticipantRegistry(repo, &memThrottle{err: errors.New("redis: connection refused")}, time.Second)

	if _, err := registry.Admit(context.Background(), "424242", "Ana", nil); err != nil {
		t.Fatalf("Admit() error = %v, want admission despite cache outage", err)
	}
}

func TestAdmitNicknamesAreCaseSensitive(t *testing.T) {
	repo := newMemRepo()
	newWaitingSession(t, repo)
	registry := NewParticipantRegistry(repo, nil, 0)
	ctx := context.Background()

	for _, name := range []string{"ana", "Ana", "ANA"} {
		if _, err := registry.Admit(ctx, "424242", name, nil); err != nil {
			t.Fatalf("Admit(%q) error = %v", name, err)
		}
	}
}

func TestAdmitUnknownOrClosedSession(t *testing.T) {
	repo := newMemRepo()
	newWaitingSession(t, repo)
	registry := NewParticipantRegistry(repo, nil, 0)
	ctx := context.Background()

	if _, err := registry.Admit(ctx, "000000", "Ana", nil); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("unknown code error = %v", err)
	}

	repo.UpdateSessionStatus(ctx, "424242", models.SessionStatusActive, models.SessionTimestamps{})
	if _, err := registry.Admit(ctx, "424242", "Ana", nil); !errors.Is(err, ErrSessionNotJoinable) {
		t.Fatalf("active session error = %v", err)
	}
}

func TestKeyedMutexSerializesAndForgets(t *testing.T) {
	km := newKeyedMutex()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("123456")
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("%d goroutines held the same key at once", maxSeen)
	}
	if n := km.size(); n != 0 {
		t.Fatalf("%d keys retained after release", n)
	}
}
