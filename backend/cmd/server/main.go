package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/adapter"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/classify"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/graph"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/stats"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/taxonomy"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/config"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/logger"

	apperrors "github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/errors"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	// Initialize logger
	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting HTTP API server...")

	tax, err := taxonomy.Load(cfg.TaxonomyFile)
	if err != nil {
		log.Fatal("Failed to load taxonomy", zap.Error(err))
	}

	ctx := context.Background()
	store, err := graph.Open(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to open graph store", zap.Error(err))
	}
	defer store.Close(context.Background())

	scorer, err := adapter.NewScorer(cfg)
	if err != nil {
		log.Fatal("Failed to create scorer", zap.Error(err))
	}
	classifier := classify.NewClassifier(store, scorer, tax, classify.Options{
		TopK:    cfg.ClassifyTopK,
		Timeout: cfg.ClassifyTimeout,
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(log, store, tax, classifier)

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.String("port", cfg.Port))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

type classifyRequest struct {
	Text string `json:"text" binding:"required"`
	TopK int    `json:"top_k"`
}

// newRouter serves read-only graph statistics and ad-hoc classification.
// Nothing here writes to the store.
func newRouter(log *zap.Logger, store graph.Store, tax *taxonomy.Taxonomy, classifier *classify.Classifier) *gin.Engine {
	reporter := stats.NewReporter(store)

	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.GET("/stats", func(c *gin.Context) {
			report, err := reporter.Collect(c.Request.Context())
			if err != nil {
				log.Error("Failed to collect statistics", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to collect statistics"})
				return
			}
			c.JSON(http.StatusOK, report)
		})

		api.GET("/topics", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"topics":    tax.Topics,
				"relations": tax.Relations,
			})
		})

		api.GET("/topics/:name/related", func(c *gin.Context) {
			name := c.Param("name")
			if !tax.Contains(name) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Topic not found"})
				return
			}

			related, err := store.RelatedTopics(c.Request.Context(), name)
			if err != nil {
				log.Error("Failed to fetch related topics", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch related topics"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"topic": name, "related": related})
		})

		// Score an arbitrary text against the taxonomy
		api.POST("/classify", func(c *gin.Context) {
			var req classifyRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			var (
				scores []classify.LabelScore
				err    error
			)
			if req.TopK > 0 {
				scores, err = classifier.Rank(c.Request.Context(), req.Text, req.TopK)
			} else {
				scores, err = classifier.Score(c.Request.Context(), req.Text)
			}
			if err != nil {
				log.Error("Failed to classify text", zap.Error(err))
				if apperrors.IsErrorType(err, apperrors.ErrorTypeContext) {
					c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Classification timed out"})
					return
				}
				c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to classify text"})
				return
			}

			c.JSON(http.StatusOK, gin.H{
				"topics": classify.Names(scores),
				"scores": scores,
			})
		})
	}

	return router
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
