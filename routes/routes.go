package routes

import (
	"context"
	"errors"
	"log"
	"net/http"

	"livequiz/handlers"
	"livequiz/middleware"
	"livequiz/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // tokens gate access, not origins
	},
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

func SetupRoutes(
	router *gin.Engine,
	quizHandler *handlers.QuizHandler,
	gameHandler *handlers.GameHandler,
	hub *services.Hub,
	gameService *services.GameService,
	tokens *services.TokenService,
	store Pinger,
) {
	requireHost := middleware.RequireHost(tokens)

	api := router.Group("/api")
	{
		quizzes := api.Group("/quizzes", requireHost)
		{
			quizzes.GET("", quizHandler.GetUserQuizzes)
			quizzes.POST("", quizHandler.CreateQuiz)
			quizzes.GET("/:id", quizHandler.GetQuizByID)
		}

		games := api.Group("/games")
		{
			games.POST("", requireHost, gameHandler.CreateGame)
			games.GET("/:code", gameHandler.GetGame)
			games.POST("/:code/join", middleware.OptionalAccount(tokens), gameHandler.JoinGame)
			games.POST("/:code/start", requireHost, gameHandler.StartGame)
			games.POST("/:code/next", requireHost, gameHandler.NextQuestion)
			games.POST("/:code/end", requireHost, gameHandler.EndGame)
			games.POST("/:code/answer", middleware.RequirePlayer(tokens), gameHandler.SubmitAnswer)
		}
	}

	// Real-time channel. The token travels in the query string because
	// browsers cannot set headers on websocket upgrades.
	router.GET("/ws/:code", func(c *gin.Context) {
		code := c.Param("code")

		participantID, host, err := authorizeSocket(c.Request.Context(), gameService, tokens, code, c.Query("token"))
		if err != nil {
			log.Printf("hub: rejected socket for %s: %v", code, err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("hub: upgrade failed for %s: %v", code, err)
			return
		}

		hub.RegisterClient(conn, code, participantID, host)
	})

	router.GET("/health", func(c *gin.Context) {
		if err := store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// authorizeSocket resolves who is opening a socket on code: the session's
// host, or a participant holding a player token for this game.
func authorizeSocket(ctx context.Context, gameService *services.GameService, tokens *services.TokenService, code, token string) (uint, bool, error) {
	if token == "" {
		return 0, false, errors.New("token required")
	}
	claims, err := tokens.Validate(token)
	if err != nil {
		return 0, false, err
	}
	subject, err := claims.SubjectID()
	if err != nil {
		return 0, false, err
	}

	if claims.Role == services.RolePlayer {
		if claims.Code != code {
			return 0, false, errors.New("token is not valid for this game")
		}
		return subject, false, nil
	}

	session, err := gameService.Session(ctx, code)
	if err != nil {
		return 0, false, err
	}
	if session.HostID != subject {
		return 0, false, services.ErrNotHost
	}
	return 0, true, nil
}
