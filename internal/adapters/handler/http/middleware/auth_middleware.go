package middleware

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/services"
)

const (
	ContextUserIDKey = "userID"

	// EventSource clients cannot set headers, so stream endpoints also
	// accept the token as a query parameter.
	accessTokenParam = "access_token"
)

var (
	errMissingCredentials = errors.New("authorization header required")
	errMalformedHeader    = errors.New("invalid authorization header format")
)

// bearerToken pulls the token from the Authorization header, falling back to
// ?access_token= on event streams only.
func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if strings.HasSuffix(c.Request.URL.Path, "/events") {
			if token := c.Query(accessTokenParam); token != "" {
				return token, nil
			}
		}
		return "", errMissingCredentials
	}

	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	token = strings.TrimSpace(token)
	if !ok || scheme != "Bearer" || token == "" || strings.Contains(token, " ") {
		return "", errMalformedHeader
	}
	return token, nil
}

func AuthMiddleware(tokenService *services.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		userID, err := tokenService.ValidateToken(token)
		if err != nil {
			log.Printf("[AUTH] Rejected token on %s: %v", c.FullPath(), err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

func GetUserID(c *gin.Context) (string, bool) {
	id, exists := c.Get(ContextUserIDKey)
	if !exists {
		return "", false
	}
	idStr, ok := id.(string)
	return idStr, ok
}
