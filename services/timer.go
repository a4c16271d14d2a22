package services

import (
	"sync"
	"time"
)

// ProgressionTimer is the per-game countdown that forces the next question.
//
// Only one countdown is armed at a time; arming replaces the previous one.
// Each arm gets a generation number and a firing callback only runs if its
// generation is still current, so a disarm that loses the race against an
// already-scheduled fire still suppresses it. onExpire runs at most once per arm.
type ProgressionTimer struct {
	mu       sync.Mutex
	timer    *time.Timer
	gen      uint64
	onExpire func(questionID uint)
}

func NewProgressionTimer(onExpire func(questionID uint)) *ProgressionTimer {
	return &ProgressionTimer{onExpire: onExpire}
}

// Arm schedules onExpire(questionID) after d, replacing any armed countdown.
func (t *ProgressionTimer) Arm(questionID uint, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.gen++
	gen := t.gen
	t.timer = time.AfterFunc(d, func() { t.fire(gen, questionID) })
}

// Disarm cancels the armed countdown, if any.
func (t *ProgressionTimer) Disarm() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.gen++
}

func (t *ProgressionTimer) stopLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *ProgressionTimer) fire(gen uint64, questionID uint) {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.gen++
	t.timer = nil
	t.mu.Unlock()

	// Called without the lock: the handler usually re-arms.
	t.onExpire(questionID)
}
