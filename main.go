package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/example/report-explainer/internal/analysis"
	"github.com/example/report-explainer/internal/config"
	"github.com/example/report-explainer/internal/handlers"
	"github.com/example/report-explainer/internal/logging"
	"github.com/example/report-explainer/internal/metrics"
	"github.com/example/report-explainer/internal/pipeline"
	"github.com/example/report-explainer/internal/recognition"
	"github.com/example/report-explainer/internal/recognition/tesseract"
	"github.com/example/report-explainer/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger(cfg.Logging.Level)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	store, err := storage.NewTransientStore(cfg.Storage.Dir, logger)
	if err != nil {
		logger.Fatal("failed to prepare upload directory", zap.Error(err), zap.String("dir", cfg.Storage.Dir))
	}

	recognizer := recognition.NewAdapter(tesseract.New(), recognition.Options{
		Language:  cfg.Recognition.Language,
		Timeout:   cfg.Recognition.Timeout,
		Grayscale: cfg.Recognition.Grayscale,
	}, logger)
	analyzer := analysis.NewAdapter(cfg.Analysis, logger)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.New(reg)
	}

	opts := []pipeline.Option{pipeline.WithMetrics(m)}
	if cfg.Redis.Addr != "" {
		redisCtx, redisCancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisClient := initRedis(redisCtx, cfg.Redis, logger)
		redisCancel()
		defer redisClient.Close()
		opts = append(opts, pipeline.WithStatusStore(pipeline.NewRedisStatusStore(redisClient), cfg.Redis.StatusTTL))
	}
	orchestrator := pipeline.NewOrchestrator(recognizer, analyzer, store, logger, opts...)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newRouter(cfg, orchestrator, store, m, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("report explainer listening",
		zap.String("addr", cfg.Server.Addr),
		zap.String("model", cfg.Analysis.Model),
		zap.Bool("status_tracking", cfg.Redis.Addr != ""),
	)
	if err := serveHTTPServer(server, cfg.Server.ShutdownTimeout, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func newRouter(cfg *config.Config, orchestrator *pipeline.Orchestrator, store *storage.TransientStore, m *metrics.Metrics, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), handlers.RequestLogger(logger), handlers.CORS(cfg.Server.AllowedOrigins))
	if m != nil {
		r.Use(handlers.Metrics(m))
	}

	handlers.RegisterRoutes(r, orchestrator, store, handlers.Options{
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		StaticDir:      cfg.Server.StaticDir,
		MetricsPath:    cfg.Metrics.Path,
		Metrics:        m,
		Logger:         logger,
	})
	return r
}

func initRedis(ctx context.Context, cfg config.RedisConfig, zapLogger *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(logging.NewOperationError("startup.redis_ping", "", err)), zap.String("addr", cfg.Addr))
	}
	return client
}

func serveHTTPServer(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	return serveHTTPServerWithOptions(server, shutdownTimeout, logger, nil, nil)
}

// serveHTTPServerWithOptions serves until the server fails or a shutdown
// signal arrives, then drains in-flight requests. In-flight pipelines finish
// and release their uploads before Shutdown returns.
func serveHTTPServerWithOptions(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener, signalCh <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	var (
		sigCh       <-chan os.Signal
		stopSignals func()
	)

	if signalCh != nil {
		sigCh = signalCh
		stopSignals = func() {}
	} else {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		sigCh = ch
		stopSignals = func() {
			signal.Stop(ch)
		}
	}
	defer stopSignals()

	select {
	case err := <-errCh:
		return err
	case sig, ok := <-sigCh:
		if !ok {
			return <-errCh
		}
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}
