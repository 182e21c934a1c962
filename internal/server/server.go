package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"two-truths/internal/config"
	"two-truths/internal/game"
	"two-truths/internal/identity"
)

// Server is the JSON API the mini-app shell talks to. It keeps no game
// state between requests: every call re-enters the flow from the store.
type Server struct {
	engine   *game.Engine
	cfg      config.Config
	log      *logrus.Logger
	tokens   tokenIssuer
	verifier *identity.Verifier
	redis    *redis.Client
	limiter  limiter
	metrics  *metrics
	ready    func(context.Context) error
}

type Option func(*Server)

// WithRedis shares rate-limit counters across replicas through Redis.
func WithRedis(client *redis.Client) Option {
	return func(s *Server) { s.redis = client }
}

// WithReadiness adds a dependency check to /healthz.
func WithReadiness(check func(context.Context) error) Option {
	return func(s *Server) { s.ready = check }
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.tokens.now = now }
}

func New(engine *game.Engine, cfg config.Config, logger *logrus.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Server{
		engine:  engine,
		cfg:     cfg,
		log:     logger,
		tokens:  tokenIssuer{secret: []byte(cfg.JWTSecret), ttl: cfg.JWTTTL, now: time.Now},
		metrics: newMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}

	verifierOpts := []identity.Option{identity.WithMaxAge(cfg.InitDataMaxAge), identity.WithClock(s.tokens.now)}
	if cfg.AuthInsecureInitData {
		verifierOpts = append(verifierOpts, identity.WithInsecure())
	}
	s.verifier = identity.NewVerifier(cfg.TelegramBotToken, verifierOpts...)

	switch {
	case cfg.RateLimitPerMinute <= 0:
	case s.redis != nil:
		s.limiter = &redisLimiter{client: s.redis, max: cfg.RateLimitPerMinute, window: rateWindow}
	default:
		s.limiter = newLocalLimiter(cfg.RateLimitPerMinute)
	}
	registerValidators()
	return s
}

func (s *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(s.requestLogger(), s.recovery(), s.metrics.middleware(), cors())

	router.GET("/healthz", s.handleHealth)
	router.GET("/metrics", s.metrics.handler())

	api := router.Group("/api")
	api.Use(requestTimeout(s.cfg.RequestTimeout))
	api.POST("/auth/telegram", s.rateLimit(), s.handleTelegramAuth)

	authed := api.Group("")
	authed.Use(s.requireAuth(), s.rateLimit())
	{
		authed.GET("/me", s.handleMe)
		authed.POST("/register", s.handleRegister)
		authed.PUT("/profile", s.handleUpdateProfile)

		authed.GET("/rooms", s.handleListRooms)
		authed.POST("/rooms", s.handleCreateRoom)
		authed.GET("/rooms/:id", s.handleGetRoom)
		authed.POST("/rooms/:id/join", s.handleJoinRoom)
		authed.POST("/rooms/:id/leave", s.handleLeaveRoom)
		authed.POST("/rooms/:id/close", s.handleCloseRoom)
		authed.GET("/rooms/:id/qr", s.handleRoomQR)
		authed.POST("/rooms/:id/facts", s.handleSubmitFacts)
		authed.GET("/rooms/:id/targets", s.handleTargets)
		authed.POST("/rooms/:id/guesses", s.handleGuess)
		authed.GET("/rooms/:id/results", s.handleResults)
		authed.GET("/rooms/:id/events", s.handleEvents)
	}
	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			s.log.WithError(err).Warn("readiness check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			s.log.WithError(err).Warn("redis ping failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// cors lets the mini-app call the API from its own origin. Auth is a
// bearer token, so no credentials are shared.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
