// Package api serves the analysis pipeline over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/AI-Template-SDK/aeo-insights/internal/analysis"
	"github.com/AI-Template-SDK/aeo-insights/services"
)

const ServiceName = "aeo-insights"

type Config struct {
	KPIService    services.KPIService
	BatchAnalyzer services.BatchAnalyzer
	// Inngest serves /api/inngest when set
	Inngest   http.Handler
	Gatherer  prometheus.Gatherer
	Aggregate analysis.AggregateOptions
	// MaxBatch caps the responses accepted by one batch request
	MaxBatch int
	Logger   zerolog.Logger
}

type Server struct {
	engine    *gin.Engine
	kpi       services.KPIService
	batch     services.BatchAnalyzer
	aggregate analysis.AggregateOptions
	maxBatch  int
	logger    zerolog.Logger
}

func New(cfg Config) *Server {
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = 100
	}
	srv := &Server{
		engine:    gin.New(),
		kpi:       cfg.KPIService,
		batch:     cfg.BatchAnalyzer,
		aggregate: cfg.Aggregate,
		maxBatch:  cfg.MaxBatch,
		logger:    cfg.Logger,
	}
	srv.engine.Use(gin.Recovery(), requestLogger(cfg.Logger))

	srv.engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": ServiceName, "status": "running"})
	})
	srv.engine.GET("/health", srv.healthCheck)
	if cfg.Gatherer != nil {
		srv.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}
	if cfg.Inngest != nil {
		srv.engine.Any("/api/inngest", gin.WrapH(cfg.Inngest))
	}

	v1 := srv.engine.Group("/api/v1")
	v1.POST("/analyze", srv.analyze)
	v1.POST("/analyze/batch", srv.analyzeBatch)
	v1.POST("/aggregate", srv.aggregateRecords)
	v1.GET("/snapshots/:prompt_id", srv.getSnapshot)
	v1.POST("/snapshots/recompute", srv.recomputeSnapshots)

	return srv
}

// Handler exposes the router for http.Server and tests.
func (srv *Server) Handler() http.Handler {
	return srv.engine
}

func (srv *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": ServiceName,
	})
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("[HTTP] request")
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
