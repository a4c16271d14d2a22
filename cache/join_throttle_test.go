package cache

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"livequiz/models"
	"livequiz/repository"
	"livequiz/services"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newJoinStore(t *testing.T) *repository.Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "joins.db") + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	store := repository.New(db)
	if err := store.AutoMigrate(); err != nil {
		t.Fatalf("AutoMigrate() error = %v", err)
	}
	return store
}

func TestConcurrentJoinsWithMemoryThrottle(t *testing.T) {
	store := newJoinStore(t)
	ctx := context.Background()

	quiz := &models.Quiz{
		Title:  "Capitals",
		UserID: 7,
		Questions: []models.Question{{
			Text: "Capital of Peru?", TimeLimit: 30, Points: 1000, Order: 1,
			Options: []models.Option{{Text: "Lima", IsCorrect: true, Order: 1}, {Text: "Cusco", Order: 2}},
		}},
	}
	if err := store.CreateQuiz(ctx, quiz); err != nil {
		t.Fatalf("CreateQuiz() error = %v", err)
	}

	settings := services.DefaultGameSettings()
	settings.JoinDedupWindow = time.Minute
	svc := services.NewGameService(store, NewMemoryJoinThrottle(), nil, settings)
	t.Cleanup(svc.Close)

	session, err := svc.CreateSession(ctx, quiz.ID, 7)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	const attempts = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
		rejected int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Join(ctx, session.Code, "Carlos", nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case errors.Is(err, services.ErrNicknameTaken), errors.Is(err, services.ErrTooFrequent):
				rejected++
			default:
				t.Errorf("unexpected join error: %v", err)
			}
		}()
	}
	wg.Wait()

	if admitted != 1 || rejected != attempts-1 {
		t.Fatalf("admitted=%d rejected=%d, want 1 and %d", admitted, rejected, attempts-1)
	}
	participants, err := store.ListParticipants(ctx, session.ID)
	if err != nil {
		t.Fatalf("ListParticipants() error = %v", err)
	}
	if len(participants) != 1 || participants[0].Nickname != "Carlos" {
		t.Fatalf("participants = %+v, want one Carlos", participants)
	}
}
