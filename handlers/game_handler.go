package handlers

import (
	"log"
	"net/http"
	"strings"

	"livequiz/middleware"
	"livequiz/services"

	"github.com/gin-gonic/gin"
)

type GameHandler struct {
	gameService *services.GameService
	tokens      *services.TokenService
}

func NewGameHandler(gameService *services.GameService, tokens *services.TokenService) *GameHandler {
	return &GameHandler{
		gameService: gameService,
		tokens:      tokens,
	}
}

type JoinGameResponse struct {
	ParticipantID uint   `json:"participant_id"`
	Nickname      string `json:"nickname"`
	Code          string `json:"code"`
	Token         string `json:"token"`
}

func (h *GameHandler) CreateGame(c *gin.Context) {
	hostID := c.GetUint(middleware.HostIDKey)

	var req services.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.gameService.CreateSession(c.Request.Context(), req.QuizID, hostID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

func (h *GameHandler) JoinGame(c *gin.Context) {
	code := c.Param("code")

	var req services.JoinGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	nickname := strings.TrimSpace(req.Nickname)
	if nickname == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nickname is required"})
		return
	}

	var userID *uint
	if id, ok := c.Get(middleware.AccountIDKey); ok {
		uid := id.(uint)
		userID = &uid
	}

	participant, err := h.gameService.Join(c.Request.Context(), code, nickname, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := h.tokens.IssuePlayerToken(participant.ID, code)
	if err != nil {
		log.Printf("join: failed to sign token for participant %d: %v", participant.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue player token"})
		return
	}

	c.JSON(http.StatusOK, JoinGameResponse{
		ParticipantID: participant.ID,
		Nickname:      participant.Nickname,
		Code:          code,
		Token:         token,
	})
}

func (h *GameHandler) GetGame(c *gin.Context) {
	state, err := h.gameService.Snapshot(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *GameHandler) StartGame(c *gin.Context) {
	code := c.Param("code")
	if err := h.gameService.Start(c.Request.Context(), code, c.GetUint(middleware.HostIDKey)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "game started", "code": code})
}

func (h *GameHandler) SubmitAnswer(c *gin.Context) {
	var req services.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	elapsed := -1.0
	if req.ElapsedSeconds != nil {
		elapsed = *req.ElapsedSeconds
	}

	result, err := h.gameService.SubmitAnswer(c.Request.Context(), services.AnswerSubmission{
		Code:           c.Param("code"),
		ParticipantID:  c.GetUint(middleware.ParticipantIDKey),
		QuestionID:     req.QuestionID,
		OptionID:       req.OptionID,
		ElapsedSeconds: elapsed,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *GameHandler) NextQuestion(c *gin.Context) {
	var req services.AdvanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.gameService.AdvanceQuestion(c.Request.Context(), c.Param("code"), c.GetUint(middleware.HostIDKey), req.QuestionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "advanced"})
}

func (h *GameHandler) EndGame(c *gin.Context) {
	if err := h.gameService.End(c.Request.Context(), c.Param("code"), c.GetUint(middleware.HostIDKey)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "game ended"})
}

// respondError writes a game error with the status its code maps to.
func respondError(c *gin.Context, err error) {
	e, ok := services.AsError(err)
	if !ok {
		log.Printf("handler: unexpected error on %s: %v", c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	message := e.Message
	if e.Retryable() {
		log.Printf("handler: storage unavailable on %s: %v", c.FullPath(), err)
		c.Header("Retry-After", "1")
		message = "storage temporarily unavailable, retry shortly"
	}
	c.JSON(e.HTTPStatus(), gin.H{
		"error":  message,
		"code":   e.Code,
		"reason": e.Reason,
	})
}
