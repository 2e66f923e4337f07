package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

// RouterConfig holds the middleware settings of NewRouter.
type RouterConfig struct {
	Logger      *slog.Logger
	Observer    HTTPObserver
	BodyLimitMB int
	ReleaseMode bool
}

// NewRouter builds the gin engine with the standard middleware chain and
// mounts h's routes on it.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	if cfg.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()

	router.Use(RecoveryMiddleware(logger))
	router.Use(CORSMiddleware())
	router.Use(LoggingMiddleware(logger))
	if cfg.Observer != nil {
		router.Use(MetricsMiddleware(cfg.Observer))
	}
	router.Use(BodyLimitMiddleware(int64(cfg.BodyLimitMB) << 20))

	h.Register(router)

	return router
}
