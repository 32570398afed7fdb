package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"trafficportal/internal/config"
	"trafficportal/internal/models"
	"trafficportal/internal/security"
	"trafficportal/internal/session"
)

const (
	currentSessionKey = "current_session"
	accessClaimsKey   = "access_claims"
)

// Auth accepts a bearer token only while the session it was issued for still
// occupies the session slot. A newer login anywhere invalidates it.
func Auth(cfg *config.AppConfig, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := security.ParseAccessToken(tokenStr, cfg.Security.JWTAccessSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			return
		}

		current, err := sessions.GetSession(c.Request.Context())
		if err != nil {
			if errors.Is(err, session.ErrNoSession) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session_not_found"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session_unavailable"})
			return
		}

		if current.ID != claims.SessionID {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session_replaced"})
			return
		}

		if !current.IsAuthenticated {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session_inactive"})
			return
		}

		c.Set(accessClaimsKey, *claims)
		c.Set(currentSessionKey, current)

		c.Next()
	}
}

// CurrentSession returns the session stored by Auth.
func CurrentSession(c *gin.Context) (models.Session, bool) {
	val, exists := c.Get(currentSessionKey)
	if !exists {
		return models.Session{}, false
	}
	sess, ok := val.(models.Session)
	return sess, ok
}
