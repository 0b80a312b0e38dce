package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/report-explainer/internal/logging"
	"github.com/example/report-explainer/internal/metrics"
	"github.com/example/report-explainer/internal/pipeline"
	"github.com/example/report-explainer/internal/storage"
)

const (
	// UploadField is the multipart field carrying the report image.
	UploadField = "reportImage"
	// RequestIDHeader carries the request id in both directions.
	RequestIDHeader = "X-Request-ID"
	// DefaultMaxUploadSize applies when Options.MaxUploadBytes is unset.
	DefaultMaxUploadSize = 10 << 20

	// multipartOverhead leaves room for boundaries and part headers on top of
	// the file itself.
	multipartOverhead = 64 << 10
)

// Options configures the HTTP surface.
type Options struct {
	MaxUploadBytes int64
	StaticDir      string
	MetricsPath    string
	Metrics        *metrics.Metrics
	Logger         *zap.Logger
}

// RegisterRoutes wires the HTTP handlers to the Gin router.
func RegisterRoutes(router *gin.Engine, orchestrator *pipeline.Orchestrator, store *storage.TransientStore, opts Options) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("handlers")
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadSize
	}

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Hello, World!")
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if opts.Metrics != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(opts.Metrics.Handler()))
	}

	router.POST("/process-report", func(c *gin.Context) {
		requestID := requestIDFrom(c)
		c.Header(RequestIDHeader, requestID)
		opLogger := logging.WithOperation(logger, "handlers.process_report", requestID)

		if c.Request.ContentLength > maxUpload+multipartOverhead {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "report image is too large"})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUpload+multipartOverhead)

		file, err := c.FormFile(UploadField)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "report image is too large"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": UploadField + " file is required"})
			return
		}
		if file.Size > maxUpload {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "report image is too large"})
			return
		}

		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unable to open report image"})
			return
		}
		defer src.Close()

		desc, err := store.Acquire(requestID, file.Filename, src)
		if err != nil {
			opLogger.Error("failed to store upload", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		outcome := orchestrator.Process(c.Request.Context(), desc)
		if outcome.Failure != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": outcome.Failure.Message})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"text":     outcome.Text,
			"analysis": outcome.Explanation,
		})
	})

	router.GET("/process-report/:id/status", func(c *gin.Context) {
		requestID := c.Param("id")
		status, err := orchestrator.Status(c.Request.Context(), requestID)
		switch {
		case errors.Is(err, pipeline.ErrStatusNotFound), errors.Is(err, pipeline.ErrTrackingDisabled):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		case err != nil:
			logging.WithOperation(logger, "handlers.report_status", requestID).Error("failed to read status", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read status"})
			return
		}
		c.JSON(http.StatusOK, status)
	})

	if opts.StaticDir != "" {
		files := http.FileServer(http.Dir(opts.StaticDir))
		router.NoRoute(func(c *gin.Context) {
			if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			files.ServeHTTP(c.Writer, c.Request)
		})
	}
}

// requestIDFrom reuses a well-formed client-supplied id so the caller can poll
// the status endpoint while the request is still running.
func requestIDFrom(c *gin.Context) string {
	if supplied := c.GetHeader(RequestIDHeader); supplied != "" {
		if id, err := uuid.Parse(supplied); err == nil {
			return id.String()
		}
	}
	return uuid.NewString()
}
