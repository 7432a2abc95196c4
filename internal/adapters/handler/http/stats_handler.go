package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/services"
)

type StatsHandler struct {
	svc *services.StatsService
}

func NewStatsHandler(svc *services.StatsService) *StatsHandler {
	return &StatsHandler{svc: svc}
}

func (h *StatsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/stats/summary", h.GetSummary)
	r.GET("/stats/engagement", h.GetEngagement)
}

// GetSummary godoc
// @Summary  Streaks, favorite activity, totals and counters
// @Tags     stats
// @Produce  json
// @Success  200 {object} domain.StatsSummary
// @Security BearerAuth
// @Router   /stats/summary [get]
func (h *StatsHandler) GetSummary(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	summary, err := h.svc.Summary(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve statistics"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetEngagement godoc
// @Summary  Days since the last activity and a nudge message
// @Tags     stats
// @Produce  json
// @Success  200 {object} domain.Engagement
// @Security BearerAuth
// @Router   /stats/engagement [get]
func (h *StatsHandler) GetEngagement(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	eng, err := h.svc.Engagement(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve engagement"})
		return
	}

	c.JSON(http.StatusOK, eng)
}
