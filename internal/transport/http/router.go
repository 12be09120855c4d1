package http

import (
	"net/http"
	"time"

	"flashcard-challenge-service/internal/app"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterConfig carries the collaborators of the HTTP surface.
type RouterConfig struct {
	Service     *app.ChallengeService
	Streaks     *app.StreakService
	Limiter     *RateLimiter
	Logger      *zap.Logger
	JWTSecret   string
	CORSOrigins []string
}

// NewRouter wires the REST routes, the timer websocket and the health check.
func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = NewRateLimiter(DefaultRateLimit, DefaultRateWindow, nil)
	}
	handler := NewHandler(cfg.Service, cfg.Streaks, log)
	wsHandler := NewWSHandler(cfg.Service, log)

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	router.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	api := router.Group("/api")
	if cfg.JWTSecret != "" {
		api.Use(Auth(cfg.JWTSecret))
	}
	{
		generate := api.Group("/generate", limiter.Middleware())
		generate.POST("/challenge", handler.GenerateQuestions)
		generate.POST("/suggestion", handler.Suggest)

		challenge := api.Group("/challenge")
		challenge.POST("", handler.CreateChallenge)
		challenge.POST("/:id/generate", limiter.Middleware(), handler.GenerateAndStore)
		challenge.POST("/:id/start", handler.StartAttempt)
		challenge.POST("/:id/complete", handler.CompleteAttempt)
		challenge.POST("/questions/batch", handler.StoreQuestions)
		challenge.GET("/questions", handler.Questions)
		challenge.POST("/questions/update", handler.RecordAnswer)
		challenge.POST("/history", handler.FinalizeAttempt)
		challenge.GET("/history", handler.History)

		api.GET("/user/:id", handler.TouchUser)
	}

	ws := router.Group("/ws")
	if cfg.JWTSecret != "" {
		ws.Use(Auth(cfg.JWTSecret))
	}
	ws.GET("/challenge/:id/timer", wsHandler.ServeTimer)
	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", "Authorization", ChallengeTypeHeader},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
