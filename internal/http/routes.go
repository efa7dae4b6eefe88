package http

import (
	"log/slog"
	"time"

	"todo_api/internal/http/handlers"
	"todo_api/internal/http/middleware"
	"todo_api/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	Handler *handlers.Handler
	Health  *handlers.HealthHandler
	Tokens  middleware.TokenParser
	Logger  *slog.Logger

	AllowedOrigin string

	// nil disables rate limiting entirely
	Limiter         middleware.Counter
	APIRateLimit    int
	APIRateWindow   time.Duration
	TaskWriteLimit  int
	TaskWriteWindow time.Duration
}

// NewRouter builds the engine with the global middleware chain and all
// routes registered.
func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestLogger(log),
		middleware.Metrics(),
		middleware.CORS(cfg.AllowedOrigin),
	)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	RegisterRoutes(r, cfg)
	return r
}

func RegisterRoutes(r *gin.Engine, cfg RouterConfig) {
	// Health checks (no rate limiting)
	r.GET("/", cfg.Health.Index)
	r.GET("/health", cfg.Health.Health)
	r.GET("/healthz", cfg.Health.Liveness)
	r.GET("/readyz", cfg.Health.Readiness)

	apiRL := middleware.RateLimit(cfg.Limiter, "api", cfg.APIRateLimit, cfg.APIRateWindow, middleware.ByClientIP)

	root := r.Group("")
	root.Use(apiRL)
	registerAPIRoutes(root, cfg)

	// the web client defaults to an /api base URL
	api := r.Group("/api")
	api.Use(apiRL)
	api.GET("/", cfg.Health.Index)
	registerAPIRoutes(api, cfg)
}

func registerAPIRoutes(g *gin.RouterGroup, cfg RouterConfig) {
	h := cfg.Handler
	session := middleware.Session(cfg.Tokens)
	writeRL := middleware.RateLimit(cfg.Limiter, "task_write", cfg.TaskWriteLimit, cfg.TaskWriteWindow, middleware.ByUser)

	// Auth
	g.POST("/auth/sign-up", h.SignUp)
	g.POST("/auth/sign-in", h.SignIn)
	g.POST("/auth/logout", h.Logout)
	g.GET("/check-auth", h.CheckAuth)

	// Tasks
	g.GET("/tasks", session, h.ListTasks)
	g.POST("/tasks", session, writeRL, h.CreateTask)
	g.PUT("/tasks/:id", session, writeRL, h.UpdateTask)
	g.DELETE("/deleteTask", session, writeRL, h.DeleteTask)
}
