package services

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleHost   = "host"
	RolePlayer = "player"

	hostTokenTTL = 24 * time.Hour
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims identify either a quiz owner (host) or a participant scoped to one
// game code.
type Claims struct {
	Role string `json:"role"`
	Code string `json:"code,omitempty"`
	jwt.RegisteredClaims
}

// SubjectID parses the numeric subject back into a user or participant id.
func (c *Claims) SubjectID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return uint(id), nil
}

type TokenService struct {
	secret    []byte
	playerTTL time.Duration
}

func NewTokenService(secret string, playerTTL time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), playerTTL: playerTTL}
}

func (s *TokenService) IssueHostToken(userID uint) (string, error) {
	return s.sign(Claims{
		Role:             RoleHost,
		RegisteredClaims: s.registered(userID, hostTokenTTL),
	})
}

// IssuePlayerToken returns a token that only authorizes participantID inside code.
func (s *TokenService) IssuePlayerToken(participantID uint, code string) (string, error) {
	return s.sign(Claims{
		Role:             RolePlayer,
		Code:             code,
		RegisteredClaims: s.registered(participantID, s.playerTTL),
	})
}

func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || (claims.Role != RoleHost && claims.Role != RolePlayer) {
		return nil, ErrInvalidToken
	}
	if claims.Role == RolePlayer && claims.Code == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *TokenService) registered(subject uint, ttl time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	rc := jwt.RegisteredClaims{
		Subject:  strconv.FormatUint(uint64(subject), 10),
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl != 0 {
		rc.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return rc
}

func (s *TokenService) sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
