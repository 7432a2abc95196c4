package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/services"
	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/timer"
)

const streamHeartbeat = 15 * time.Second

type TimerHandler struct {
	svc *services.TimerService
}

func NewTimerHandler(svc *services.TimerService) *TimerHandler {
	return &TimerHandler{svc: svc}
}

type selectModeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

type autoCycleRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (h *TimerHandler) RegisterRoutes(r *gin.RouterGroup) {
	timers := r.Group("/timer")
	{
		timers.GET("", h.Snapshot)
		timers.GET("/events", h.Events)

		focus := timers.Group("/focus")
		focus.POST("/start", h.StartFocus)
		focus.POST("/pause", h.focusAction((*services.TimerService).PauseFocus))
		focus.POST("/resume", h.focusAction((*services.TimerService).ResumeFocus))
		focus.POST("/reset", h.focusAction((*services.TimerService).ResetFocus))
		focus.POST("/mode", h.SelectMode)
		focus.POST("/auto-cycle", h.SetAutoCycle)

		breathing := timers.Group("/breathing")
		breathing.POST("/start", h.StartBreathing)
		breathing.POST("/pause", h.breathingAction((*services.TimerService).PauseBreathing))
		breathing.POST("/resume", h.breathingAction((*services.TimerService).ResumeBreathing))
		breathing.POST("/stop", h.breathingAction((*services.TimerService).StopBreathing))
	}
}

// Snapshot godoc
// @Summary  Current state of both timers
// @Tags     timer
// @Produce  json
// @Success  200 {object} services.TimerSnapshot
// @Security BearerAuth
// @Router   /timer [get]
func (h *TimerHandler) Snapshot(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.svc.Snapshot(userID))
}

// StartFocus godoc
// @Summary  Start the focus timer in its current mode
// @Tags     timer
// @Produce  json
// @Success  200 {object} timer.FocusState
// @Failure  409 {object} errorResponse
// @Security BearerAuth
// @Router   /timer/focus/start [post]
func (h *TimerHandler) StartFocus(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	state, err := h.svc.StartFocus(userID)
	if err != nil {
		respondTimerError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *TimerHandler) focusAction(action func(*services.TimerService, string) timer.FocusState) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, action(h.svc, userID))
	}
}

// SelectMode godoc
// @Summary  Switch the focus timer to another mode
// @Tags     timer
// @Accept   json
// @Produce  json
// @Param    body body selectModeRequest true "work, short_break or long_break"
// @Success  200 {object} timer.FocusState
// @Failure  400,409 {object} errorResponse
// @Security BearerAuth
// @Router   /timer/focus/mode [post]
func (h *TimerHandler) SelectMode(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req selectModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mode, err := timer.ParseMode(req.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := h.svc.SelectFocusMode(userID, mode)
	if err != nil {
		respondTimerError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// SetAutoCycle godoc
// @Summary  Toggle automatic progression through the Pomodoro cycle
// @Tags     timer
// @Accept   json
// @Produce  json
// @Param    body body autoCycleRequest true "flag"
// @Success  200 {object} timer.FocusState
// @Failure  400,409 {object} errorResponse
// @Security BearerAuth
// @Router   /timer/focus/auto-cycle [post]
func (h *TimerHandler) SetAutoCycle(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req autoCycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := h.svc.SetAutoCycle(userID, *req.Enabled)
	if err != nil {
		respondTimerError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// StartBreathing godoc
// @Summary  Start the breathing timer at the inhale phase
// @Tags     timer
// @Produce  json
// @Success  200 {object} timer.BreathingState
// @Failure  409 {object} errorResponse
// @Security BearerAuth
// @Router   /timer/breathing/start [post]
func (h *TimerHandler) StartBreathing(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	state, err := h.svc.StartBreathing(userID)
	if err != nil {
		respondTimerError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *TimerHandler) breathingAction(action func(*services.TimerService, string) timer.BreathingState) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, action(h.svc, userID))
	}
}

// Events godoc
// @Summary  Server-sent stream of timer events and sound cues
// @Tags     timer
// @Produce  text/event-stream
// @Success  200
// @Security BearerAuth
// @Router   /timer/events [get]
func (h *TimerHandler) Events(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	msgs, cancel := h.svc.Subscribe(userID)
	defer cancel()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("snapshot", h.svc.Snapshot(userID))
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return false
			}
			c.SSEvent(msg.Event, msg.Payload)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func respondTimerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTimerBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "another timer is already active"})
	case errors.Is(err, timer.ErrTimerRunning):
		c.JSON(http.StatusConflict, gin.H{"error": "stop the timer before changing its settings"})
	case errors.Is(err, timer.ErrInvalidMode):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
