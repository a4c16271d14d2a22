package middleware

import (
	"net/http"
	"strings"

	"livequiz/services"

	"github.com/gin-gonic/gin"
)

// Context keys set by the auth middleware.
const (
	HostIDKey        = "host_id"
	ParticipantIDKey = "participant_id"
	GameCodeKey      = "game_code"
	AccountIDKey     = "account_id"
)

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// RequireHost admits requests carrying a valid host token.
func RequireHost(tokens *services.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}

		claims, err := tokens.Validate(token)
		if err != nil || claims.Role != services.RoleHost {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		hostID, err := claims.SubjectID()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(HostIDKey, hostID)
		c.Next()
	}
}

// RequirePlayer admits requests carrying a player token issued for the :code
// in the path.
func RequirePlayer(tokens *services.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}

		claims, err := tokens.Validate(token)
		if err != nil || claims.Role != services.RolePlayer {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		if claims.Code != c.Param("code") {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "token is not valid for this game"})
			return
		}
		participantID, err := claims.SubjectID()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(ParticipantIDKey, participantID)
		c.Set(GameCodeKey, claims.Code)
		c.Next()
	}
}

// OptionalAccount records the account behind a host token when one is sent,
// so signed-in players can be linked to their participant rows.
func OptionalAccount(tokens *services.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if claims, err := tokens.Validate(token); err == nil && claims.Role == services.RoleHost {
				if id, err := claims.SubjectID(); err == nil {
					c.Set(AccountIDKey, id)
				}
			}
		}
		c.Next()
	}
}
