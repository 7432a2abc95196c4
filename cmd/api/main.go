package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/adapters/cache"
	adapterHTTP "github.com/comitanigiacomo/kanso-wellness-engine/internal/adapters/handler/http"
	"github.com/comitanigiacomo/kanso-wellness-engine/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-wellness-engine/internal/config"
	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/services"
	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/timer"
	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/workers"
)

type app struct {
	router *gin.Engine
	timers *services.TimerService
}

// newApp wires repositories, services and handlers. rdb may be nil, in which
// case counters live in memory and sleep sync is disabled.
func newApp(ctx context.Context, cfg *config.Config, db *sqlx.DB, rdb *redis.Client, startTime time.Time) *app {
	loc := cfg.Location()

	userRepo := repository.NewPostgresUserRepository(db)

	var sessions domain.SessionRepository = repository.NewPostgresSessionRepository(db)
	var counters domain.CounterStore
	if rdb != nil {
		sessions = repository.NewCachedSessionRepository(sessions, rdb)
		counters = repository.NewKVCounterStore(cache.NewRedisKV(rdb))
	} else {
		log.Println("Warning: Redis unavailable, counters will not survive a restart.")
		counters = repository.NewInMemoryCounterStore()
	}

	streakWorker := workers.NewStreakWorker(sessions, counters, userRepo, loc)
	streakWorker.Start(ctx)

	statsService := services.NewStatsService(sessions, counters, userRepo, streakWorker, loc)
	timerService := services.NewTimerService(statsService, cfg.FocusSettings(), timer.DefaultPattern(), timer.Deps{})
	authService := services.NewAuthService(userRepo, cfg.Timezone)
	tokenService := services.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL, userRepo)

	tones := cache.NewToneCache(rdb, cfg.SampleRate)
	go tones.Warm(ctx)

	var sleepHandler *adapterHTTP.SleepHandler
	if rdb != nil {
		source := cache.NewRedisSleepSource(rdb, repository.NewPostgresSleepRepository(db))
		sleepService := services.NewSleepService(source, source, userRepo, loc)
		sleepHandler = adapterHTTP.NewSleepHandler(sleepService, source)
	}

	router := adapterHTTP.NewRouter(adapterHTTP.RouterDependencies{
		AuthHandler:    adapterHTTP.NewAuthHandler(authService, tokenService),
		SessionHandler: adapterHTTP.NewSessionHandler(statsService),
		StatsHandler:   adapterHTTP.NewStatsHandler(statsService),
		TimerHandler:   adapterHTTP.NewTimerHandler(timerService),
		AudioHandler:   adapterHTTP.NewAudioHandler(tones, cfg.SampleRate),
		SleepHandler:   sleepHandler,
		TokenService:   tokenService,
		DB:             db,
		Redis:          rdb,
		StartTime:      startTime,
	})

	return &app{router: router, timers: timerService}
}

// @title          Kanso Wellness Engine API
// @version        1.0
// @description    Breathing and focus timers, session statistics, sleep summaries and synthesized audio.
// @BasePath       /api/v1
// @securityDefinitions.apikey BearerAuth
// @in             header
// @name           Authorization
func main() {
	startTime := time.Now()

	cfg, err := config.Load(".env", ".")
	if err != nil {
		log.Fatalf("Critical: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("Critical: JWT_SECRET is required")
	}

	log.Println("Connecting to database...")

	db, err := sqlx.Connect("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("Critical: Failed to connect to database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if err := repository.MigratePostgres(ctx, db); err != nil {
		log.Fatalf("Critical: %v", err)
	}

	log.Println("Database connected successfully.")

	rdb, err := cache.NewRedisClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Printf("Warning: %v", err)
		rdb = nil
	} else {
		defer rdb.Close()
		log.Println("Redis connected successfully.")
	}

	a := newApp(ctx, cfg, db, rdb, startTime)

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     a.router,
		ReadTimeout: 10 * time.Second,
		// Event streams and long noise downloads stay open, so writes have no deadline.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Kanso Wellness Engine running on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Critical server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Stop signal received. Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Forced shutdown error: %v", err)
	}

	a.timers.Shutdown()
	stop()

	log.Println("Server stopped gracefully.")
}
