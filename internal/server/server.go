// Package server exposes the pipeline, ledgers and reconciliation over a
// JSON HTTP API.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipts-reconciler/internal/categorize"
	"github.com/joseph-ayodele/receipts-reconciler/internal/entity"
	"github.com/joseph-ayodele/receipts-reconciler/internal/export"
	"github.com/joseph-ayodele/receipts-reconciler/internal/ledger"
	"github.com/joseph-ayodele/receipts-reconciler/internal/reconcile"
	"github.com/joseph-ayodele/receipts-reconciler/internal/store"
)

// Retrier re-runs extraction for a stored document.
type Retrier interface {
	Retry(ctx context.Context, id string) (entity.Document, error)
}

// JobQueue accepts uploads for background extraction.
type JobQueue interface {
	Enqueue(ctx context.Context, path string) (entity.Job, error)
	Job(id uuid.UUID) (entity.Job, bool)
}

type Config struct {
	UploadDir      string
	MaxUploadBytes int64
	CORSOrigins    []string
	Tolerance      []reconcile.Option
}

// Deps are the components the handlers drive. Health is optional.
type Deps struct {
	Documents   *store.Store
	Retrier     Retrier
	Queue       JobQueue
	Book        *ledger.Book
	Categorizer *categorize.Categorizer
	Exporter    *export.Service
	Health      func(ctx context.Context) error
}

type Server struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger
}

func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20 << 20
	}
	return &Server{cfg: cfg, deps: deps, logger: logger}
}

// Router builds the gin engine with every route under /api.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = s.cfg.MaxUploadBytes
	r.Use(gin.Recovery(), s.requestID(), s.accessLog())

	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  s.cfg.CORSOrigins,
			AllowMethods:  []string{"GET", "POST", "DELETE"},
			AllowHeaders:  []string{"Origin", "Content-Type", headerRequestID},
			ExposeHeaders: []string{"Content-Length", "Content-Disposition", headerRequestID},
			MaxAge:        12 * time.Hour,
		}))
	}

	api := r.Group("/api")
	api.GET("/healthz", s.healthz)

	docs := api.Group("/documents")
	docs.POST("", s.uploadDocuments)
	docs.GET("", s.listDocuments)
	docs.DELETE("/:id", s.deleteDocument)
	docs.POST("/:id/retry", s.retryDocument)
	docs.POST("/:id/promote", s.promoteDocument)

	api.GET("/jobs/:id", s.getJob)

	tx := api.Group("/transactions")
	tx.GET("/:side", s.listTransactions)
	tx.POST("/:side", s.addTransaction)
	tx.POST("/:side/categorize", s.categorizeAll)
	tx.POST("/:side/:id/categorize", s.categorizeOne)

	api.POST("/reconcile", s.reconcile)
	api.GET("/reports/summary", s.summary)
	api.GET("/export.xlsx", s.exportXLSX)

	return r
}

func (s *Server) healthz(c *gin.Context) {
	if s.deps.Health != nil {
		if err := s.deps.Health(c.Request.Context()); err != nil {
			s.logger.Warn("http.healthz.failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
