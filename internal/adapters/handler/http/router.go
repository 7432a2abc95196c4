package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/comitanigiacomo/kanso-wellness-engine/docs"
	"github.com/comitanigiacomo/kanso-wellness-engine/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/services"
)

type RouterDependencies struct {
	AuthHandler    *AuthHandler
	SessionHandler *SessionHandler
	StatsHandler   *StatsHandler
	TimerHandler   *TimerHandler
	AudioHandler   *AudioHandler
	SleepHandler   *SleepHandler
	TokenService   *services.TokenService
	DB             *sqlx.DB
	Redis          *redis.Client
	StartTime      time.Time
}

func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		dbStatus := "connected"
		if deps.DB == nil || deps.DB.PingContext(c.Request.Context()) != nil {
			dbStatus = "unreachable"
		}

		redisStatus := "connected"
		if deps.Redis == nil || deps.Redis.Ping(c.Request.Context()).Err() != nil {
			redisStatus = "unreachable"
		}

		statusCode := 200
		if dbStatus == "unreachable" || redisStatus == "unreachable" {
			statusCode = 503
		}

		c.JSON(statusCode, gin.H{
			"status":   "ok",
			"database": dbStatus,
			"redis":    redisStatus,
			"uptime":   time.Since(deps.StartTime).String(),
		})
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	apiV1 := router.Group("/api/v1")
	limit := func(g *gin.RouterGroup, rule middleware.RateLimit) *gin.RouterGroup {
		if deps.Redis != nil {
			g.Use(middleware.RateLimiterMiddleware(deps.Redis, rule))
		}
		return g
	}

	deps.AuthHandler.RegisterRoutes(limit(apiV1.Group(""), middleware.AuthRateLimit))
	if deps.AudioHandler != nil {
		deps.AudioHandler.RegisterRoutes(limit(apiV1.Group(""), middleware.AudioRateLimit))
	}

	protected := apiV1.Group("")
	protected.Use(middleware.AuthMiddleware(deps.TokenService))
	limit(protected, middleware.APIRateLimit)
	{
		deps.SessionHandler.RegisterRoutes(protected)
		deps.StatsHandler.RegisterRoutes(protected)
		deps.TimerHandler.RegisterRoutes(protected)
		if deps.SleepHandler != nil {
			deps.SleepHandler.RegisterRoutes(protected)
		}
	}

	return router
}
