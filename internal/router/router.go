package router

import (
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/monocle-dev/fleetwatch/internal/handlers"
	"github.com/monocle-dev/fleetwatch/internal/middleware"
)

type Config struct {
	AllowedOrigins []string
	StaticDir      string
	ServiceName    string
}

func NewRouter(h *handlers.Handler, hub *handlers.Hub, cfg Config, log zerolog.Logger) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Metrics())

	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}

	// Add CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/health", h.HealthCheck)
		api.GET("/ws", hub.WebSocket)

		api.POST("/heartbeat", h.Heartbeat)
		api.GET("/servers", h.ListServers)

		incidents := api.Group("/incidents")
		{
			incidents.GET("/active", h.GetActiveIncidents)
			incidents.GET("/history", h.GetIncidentHistory)
			incidents.GET("/:hostname", h.GetHostIncidents)
		}

		api.GET("/sweeps", h.GetSweeps)
		api.POST("/sweeps", h.TriggerSweep)
	}

	if cfg.StaticDir != "" {
		r.StaticFile("/", filepath.Join(cfg.StaticDir, "index.html"))
		r.Static("/static", cfg.StaticDir)
	}

	return r
}
