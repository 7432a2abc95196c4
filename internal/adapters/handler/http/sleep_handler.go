package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/services"
)

type ConsentStore interface {
	SetConsent(ctx context.Context, userID string, granted bool) error
}

type SleepHandler struct {
	svc     *services.SleepService
	consent ConsentStore
}

func NewSleepHandler(svc *services.SleepService, consent ConsentStore) *SleepHandler {
	return &SleepHandler{svc: svc, consent: consent}
}

type authorizeSleepRequest struct {
	Granted *bool `json:"granted" binding:"required"`
}

type sleepSampleRequest struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
	StageCode int       `json:"stage_code"`
}

type uploadSleepRequest struct {
	Samples []sleepSampleRequest `json:"samples" binding:"required,dive"`
}

func (h *SleepHandler) RegisterRoutes(r *gin.RouterGroup) {
	sleep := r.Group("/sleep")
	{
		sleep.POST("/authorize", h.Authorize)
		sleep.POST("/samples", h.Upload)
		sleep.GET("/summaries", h.Summaries)
		sleep.GET("/events", h.Events)
	}
}

// Authorize godoc
// @Summary  Grant or revoke access to sleep data
// @Tags     sleep
// @Accept   json
// @Produce  json
// @Param    body body authorizeSleepRequest true "consent"
// @Success  200 {object} map[string]bool
// @Failure  400,403,502 {object} errorResponse
// @Security BearerAuth
// @Router   /sleep/authorize [post]
func (h *SleepHandler) Authorize(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req authorizeSleepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if err := h.consent.SetConsent(ctx, userID, *req.Granted); err != nil {
		respondSleepError(c, err)
		return
	}
	if !*req.Granted {
		c.JSON(http.StatusOK, gin.H{"authorized": false})
		return
	}

	if err := h.svc.Authorize(ctx, userID); err != nil {
		respondSleepError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"authorized": true})
}

// Upload godoc
// @Summary  Upload stage intervals recorded by a device
// @Tags     sleep
// @Accept   json
// @Produce  json
// @Param    body body uploadSleepRequest true "samples"
// @Success  201 {object} map[string]int
// @Failure  400,403,502 {object} errorResponse
// @Security BearerAuth
// @Router   /sleep/samples [post]
func (h *SleepHandler) Upload(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req uploadSleepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	samples := make([]domain.SleepSample, 0, len(req.Samples))
	for _, s := range req.Samples {
		samples = append(samples, domain.SleepSample{
			ID:        s.ID,
			StartTime: s.StartTime,
			EndTime:   s.EndTime,
			StageCode: s.StageCode,
		})
	}

	n, err := h.svc.Upload(c.Request.Context(), userID, samples)
	if err != nil {
		respondSleepError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"stored": n})
}

// Summaries godoc
// @Summary  Per-night sleep summaries for the last days
// @Tags     sleep
// @Produce  json
// @Param    days query int false "window in days (default 7, max 90)"
// @Success  200 {array} domain.SleepDaySummary
// @Failure  400,403,502 {object} errorResponse
// @Security BearerAuth
// @Router   /sleep/summaries [get]
func (h *SleepHandler) Summaries(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	days, ok := queryInt(c, "days", services.DefaultSleepWindowDays, services.MaxSleepWindowDays)
	if !ok {
		return
	}

	summaries, err := h.svc.Refresh(c.Request.Context(), userID, days)
	if err != nil {
		respondSleepError(c, err)
		return
	}

	if summaries == nil {
		summaries = []domain.SleepDaySummary{}
	}
	c.JSON(http.StatusOK, summaries)
}

// Events godoc
// @Summary  Server-sent stream of refreshed summaries after each upload
// @Tags     sleep
// @Produce  text/event-stream
// @Success  200
// @Security BearerAuth
// @Router   /sleep/events [get]
func (h *SleepHandler) Events(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := h.svc.Authorize(ctx, userID); err != nil {
		respondSleepError(c, err)
		return
	}

	updates := make(chan []domain.SleepDaySummary, 1)
	go func() {
		err := h.svc.Watch(ctx, userID, func(s []domain.SleepDaySummary) {
			select {
			case updates <- s:
			case <-ctx.Done():
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			_ = c.Error(err)
		}
	}()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		select {
		case s := <-updates:
			c.SSEvent("summaries", s)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		case <-ctx.Done():
			return false
		}
	})
}

func respondSleepError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrSleepAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "sleep data access not authorized"})
	case errors.Is(err, domain.ErrInvalidSleepSample), errors.Is(err, domain.ErrInvalidSleepWindow):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "sleep data source unavailable"})
	}
}
