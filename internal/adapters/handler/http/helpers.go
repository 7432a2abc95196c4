package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/adapters/handler/http/middleware"
)

type errorResponse struct {
	Error string `json:"error"`
}

func requireUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok || userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	return userID, true
}

// queryInt reads an optional positive integer query parameter.
func queryInt(c *gin.Context, name string, fallback, max int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 || v > max {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name + ", expected 1-" + strconv.Itoa(max)})
		return 0, false
	}
	return v, true
}
