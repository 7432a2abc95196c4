package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/services"
)

type SessionHandler struct {
	svc *services.StatsService
}

func NewSessionHandler(svc *services.StatsService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

type recordSessionRequest struct {
	Activity        string `json:"activity" binding:"required"`
	DurationSeconds int    `json:"duration_seconds"`
	BreakKind       string `json:"break_kind"`
}

type recordSessionResponse struct {
	Activity        domain.ActivityType `json:"activity"`
	DurationSeconds int                 `json:"duration_seconds"`
	Completed       bool                `json:"completed"`
}

func (h *SessionHandler) RegisterRoutes(r *gin.RouterGroup) {
	sessions := r.Group("/sessions")
	{
		sessions.POST("", h.Record)
		sessions.GET("", h.List)
	}
}

// Record godoc
// @Summary  Record a finished session
// @Description Time counters always move. Sessions of at least 30 seconds also count as completed and enter the history.
// @Tags     sessions
// @Accept   json
// @Produce  json
// @Param    body body recordSessionRequest true "session"
// @Success  201 {object} recordSessionResponse
// @Failure  400 {object} errorResponse
// @Security BearerAuth
// @Router   /sessions [post]
func (h *SessionHandler) Record(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req recordSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	activity, err := domain.ParseActivityType(req.Activity)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in := domain.ActivityInput{
		UserID:   userID,
		Activity: activity,
		Duration: time.Duration(req.DurationSeconds) * time.Second,
		Break:    domain.BreakKind(req.BreakKind),
	}

	if err := h.svc.RecordActivity(c.Request.Context(), in); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidActivity), errors.Is(err, domain.ErrInvalidDuration):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record session"})
		}
		return
	}

	c.JSON(http.StatusCreated, recordSessionResponse{
		Activity:        activity,
		DurationSeconds: in.Seconds(),
		Completed:       in.Seconds() >= domain.MinCompletedSessionSeconds,
	})
}

// List godoc
// @Summary  Session history, oldest first
// @Tags     sessions
// @Produce  json
// @Param    days query int false "window in days (default 30, max 365)"
// @Success  200 {array} domain.SessionRecord
// @Security BearerAuth
// @Router   /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	days, ok := queryInt(c, "days", 30, domain.HistoryRetentionDays)
	if !ok {
		return
	}

	records, err := h.svc.History(c.Request.Context(), userID, days)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve sessions"})
		return
	}

	if records == nil {
		records = []*domain.SessionRecord{}
	}
	c.JSON(http.StatusOK, records)
}
