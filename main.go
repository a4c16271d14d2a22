package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"livequiz/cache"
	"livequiz/config"
	"livequiz/handlers"
	"livequiz/middleware"
	"livequiz/repository"
	"livequiz/routes"
	"livequiz/services"
	"livequiz/telemetry"

	"github.com/gin-gonic/gin"
)

const serviceName = "livequiz"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		log.Printf("Tracing disabled: %v", err)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	store := repository.New(db)
	if err := store.AutoMigrate(); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	redisClient := config.InitRedis(cfg)
	var throttle services.JoinThrottle = cache.NewRedisJoinThrottle(redisClient)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		if cfg.FanoutMode == config.FanoutRedis {
			log.Fatal("Redis is required for FANOUT_MODE=redis:", err)
		}
		log.Printf("Redis unavailable, join fingerprints stay in process: %v", err)
		throttle = cache.NewMemoryJoinThrottle()
	}

	gameService := services.NewGameService(store, throttle, nil, cfg.GameSettings())
	hub := services.NewHub(gameService)
	go hub.Run(ctx)

	var publisher services.Publisher = hub
	if cfg.FanoutMode == config.FanoutRedis {
		bus := cache.NewRedisBus(redisClient, hub)
		go bus.Run(ctx)
		publisher = bus
	}
	gameService.SetPublisher(publisher)

	tokens := services.NewTokenService(cfg.JWTSecret, cfg.PlayerTokenTTL)
	quizHandler := handlers.NewQuizHandler(services.NewQuizService(store))
	gameHandler := handlers.NewGameHandler(gameService, tokens)

	router := gin.Default()
	router.Use(middleware.CORS(), middleware.Tracing(serviceName))
	routes.SetupRoutes(router, quizHandler, gameHandler, hub, gameService, tokens, store)

	srv := &http.Server{
		Addr:    net.JoinHostPort(cfg.BindAddress, cfg.Port),
		Handler: router,
	}
	go func() {
		log.Printf("Server starting on %s (fan-out: %s)", srv.Addr, cfg.FanoutMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	gameService.Close()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Printf("Tracing shutdown: %v", err)
	}
	if err := redisClient.Close(); err != nil {
		log.Printf("Redis close: %v", err)
	}
}
