package services

import (
	"errors"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokenService("test-secret", time.Hour)

	hostToken, err := tokens.IssueHostToken(7)
	if err != nil {
		t.Fatalf("IssueHostToken() error = %v", err)
	}
	claims, err := tokens.Validate(hostToken)
	if err != nil {
		t.Fatalf("Validate(host) error = %v", err)
	}
	if id, _ := claims.SubjectID(); claims.Role != RoleHost || id != 7 {
		t.Fatalf("host claims = %+v", claims)
	}

	playerToken, err := tokens.IssuePlayerToken(42, "123456")
	if err != nil {
		t.Fatalf("IssuePlayerToken() error = %v", err)
	}
	claims, err = tokens.Validate(playerToken)
	if err != nil {
		t.Fatalf("Validate(player) error = %v", err)
	}
	if id, _ := claims.SubjectID(); claims.Role != RolePlayer || claims.Code != "123456" || id != 42 {
		t.Fatalf("player claims = %+v", claims)
	}
}

func TestTokenRejections(t *testing.T) {
	tokens := NewTokenService("test-secret", time.Hour)
	other := NewTokenService("other-secret", time.Hour)
	expired := NewTokenService("test-secret", -time.Minute)

	foreign, _ := other.IssueHostToken(1)
	stale, _ := expired.IssuePlayerToken(1, "123456")

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", foreign},
		{"expired", stale},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tokens.Validate(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("error = %v, want ErrInvalidToken", err)
			}
		})
	}
}
