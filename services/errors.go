package services

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a game error for callers and transports.
type Code string

const (
	CodeNotFound             Code = "NOT_FOUND"
	CodeInvalidState         Code = "INVALID_STATE"
	CodeConflict             Code = "CONFLICT"
	CodeRateLimited          Code = "RATE_LIMITED"
	CodeUnauthorized         Code = "UNAUTHORIZED"
	CodeStorageUnavailable   Code = "STORAGE_UNAVAILABLE"
	CodeStale                Code = "STALE"
	CodeCodeGenerationFailed Code = "CODE_GENERATION_FAILED"
	CodeInvalidArgument      Code = "INVALID_ARGUMENT"
)

// Error is the error type returned by the game services.
type Error struct {
	Code    Code   // taxonomy bucket
	Reason  string // specific rejection, e.g. NICKNAME_TAKEN
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on code, and on reason when the target carries one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Code != t.Code {
		return false
	}
	return t.Reason == "" || e.Reason == t.Reason
}

// Retryable reports whether the caller may retry the same request unchanged.
func (e *Error) Retryable() bool {
	return e.Code == CodeStorageUnavailable
}

// HTTPStatus maps the error code onto a response status.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidState, CodeConflict:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodeStorageUnavailable, CodeCodeGenerationFailed:
		return http.StatusServiceUnavailable
	case CodeStale:
		return http.StatusOK
	case CodeInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func newError(code Code, reason, message string) *Error {
	return &Error{Code: code, Reason: reason, Message: message}
}

var (
	ErrSessionNotFound      = newError(CodeNotFound, "SESSION_NOT_FOUND", "game session not found")
	ErrQuizNotFound         = newError(CodeNotFound, "QUIZ_NOT_FOUND", "quiz not found")
	ErrParticipantNotFound  = newError(CodeNotFound, "PARTICIPANT_NOT_FOUND", "participant not found in game")
	ErrOptionNotFound       = newError(CodeNotFound, "OPTION_NOT_FOUND", "option does not belong to the current question")
	ErrSessionNotJoinable   = newError(CodeInvalidState, "SESSION_NOT_JOINABLE", "game is not accepting players")
	ErrGameNotActive        = newError(CodeInvalidState, "GAME_NOT_ACTIVE", "game is not active")
	ErrGameCompleted        = newError(CodeInvalidState, "GAME_COMPLETED", "game has already ended")
	ErrAlreadyStarted       = newError(CodeInvalidState, "ALREADY_STARTED", "game has already started")
	ErrNoParticipants       = newError(CodeInvalidState, "NO_PARTICIPANTS", "at least one player must join before starting")
	ErrNoQuestions          = newError(CodeInvalidState, "NO_QUESTIONS", "quiz has no questions")
	ErrQuestionClosed       = newError(CodeInvalidState, "QUESTION_CLOSED", "time is up for this question")
	ErrNicknameTaken        = newError(CodeConflict, "NICKNAME_TAKEN", "nickname already taken in this game")
	ErrAlreadyAnswered      = newError(CodeConflict, "ALREADY_ANSWERED", "question already answered")
	ErrTooFrequent          = newError(CodeRateLimited, "TOO_FREQUENT", "duplicate join request, try again shortly")
	ErrNotHost              = newError(CodeUnauthorized, "NOT_HOST", "only the host can control this game")
	ErrCodeGenerationFailed = newError(CodeCodeGenerationFailed, "CODE_GENERATION_FAILED", "could not allocate a unique game code")
)

// invalidArgument reports a malformed request that retrying cannot fix.
func invalidArgument(reason, message string) *Error {
	return newError(CodeInvalidArgument, reason, message)
}

// storageError wraps a repository failure as a retryable error.
func storageError(op string, err error) *Error {
	return &Error{
		Code:    CodeStorageUnavailable,
		Reason:  "STORAGE_UNAVAILABLE",
		Message: op,
		Cause:   err,
	}
}

// AsError extracts a *Error from err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
