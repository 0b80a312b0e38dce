package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/example/report-explainer/internal/config"
	"github.com/example/report-explainer/internal/metrics"
	"github.com/example/report-explainer/internal/pipeline"
	"github.com/example/report-explainer/internal/report"
	"github.com/example/report-explainer/internal/storage"
)

type echoRecognizer struct{}

func (echoRecognizer) Recognize(ctx context.Context, storagePath, language string) (report.RecognitionResult, error) {
	return report.RecognitionResult{Text: "text"}, nil
}

type echoAnalyzer struct{}

func (echoAnalyzer) Analyze(ctx context.Context, text string) (report.AnalysisResult, error) {
	return report.AnalysisResult{Explanation: "explained " + text}, nil
}

func TestNewRouterWiresMiddlewareAndRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Server.AllowedOrigins = []string{"https://frontend.test"}
	store, err := storage.NewTransientStore(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	m := metrics.New(prometheus.NewRegistry())
	orchestrator := pipeline.NewOrchestrator(echoRecognizer{}, echoAnalyzer{}, store, zap.NewNop(), pipeline.WithMetrics(m))

	router := newRouter(cfg, orchestrator, store, m, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://frontend.test")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.Code)
	}
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "https://frontend.test" {
		t.Fatalf("expected CORS header, got %q", got)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, cfg.Metrics.Path, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected metrics endpoint, got %d", resp.Code)
	}
}
