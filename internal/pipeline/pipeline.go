package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/example/report-explainer/internal/logging"
	"github.com/example/report-explainer/internal/metrics"
	"github.com/example/report-explainer/internal/report"
)

// Recognizer extracts text from a stored image. An empty language selects the
// recognizer's configured default.
type Recognizer interface {
	Recognize(ctx context.Context, storagePath, language string) (report.RecognitionResult, error)
}

// Analyzer explains recognized text.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (report.AnalysisResult, error)
}

// Releaser deletes a descriptor's transient file.
type Releaser interface {
	Release(desc report.Descriptor) error
}

// Orchestrator runs one report through recognition and analysis and always
// releases its upload before returning. It holds no per-request state and is
// safe for concurrent use.
type Orchestrator struct {
	recognizer Recognizer
	analyzer   Analyzer
	releaser   Releaser
	status     StatusStore
	statusTTL  time.Duration
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures optional collaborators.
type Option func(*Orchestrator)

// WithStatusStore publishes every state transition to store for ttl.
func WithStatusStore(store StatusStore, ttl time.Duration) Option {
	return func(o *Orchestrator) {
		o.status = store
		o.statusTTL = ttl
	}
}

// WithMetrics records stage latency and outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// NewOrchestrator constructs a new pipeline instance.
func NewOrchestrator(recognizer Recognizer, analyzer Analyzer, releaser Releaser, logger *zap.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		recognizer: recognizer,
		analyzer:   analyzer,
		releaser:   releaser,
		logger:     logger.Named("pipeline"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Process runs recognition then analysis on desc. The descriptor's file is
// released exactly once on every path, including when a stage fails or
// panics. Caller cancellation is ignored so a dropped connection cannot leave
// the upload behind; each adapter bounds its own wait.
func (o *Orchestrator) Process(ctx context.Context, desc report.Descriptor) (outcome report.Outcome) {
	ctx = context.WithoutCancel(ctx)
	opLogger := logging.WithOperation(o.logger, "pipeline.process", desc.RequestID)
	opLogger.Info("processing report",
		zap.String("original_name", desc.OriginalName),
		zap.Int64("size_bytes", desc.SizeBytes),
	)
	o.track(ctx, desc.RequestID, report.StateReceived, nil)

	defer func() {
		panicked := recover()
		o.track(ctx, desc.RequestID, report.StateCleaningUp, nil)
		err := o.releaser.Release(desc)
		o.metrics.ObserveRelease(err)
		if panicked != nil {
			opLogger.Error("report processing panicked", zap.Any("panic", panicked), zap.NamedError("release_error", err))
			panic(panicked)
		}
		if err != nil {
			if outcome.Succeeded() {
				outcome = report.Failed(report.StageStorage, err)
			} else {
				opLogger.Error("release failed after stage failure", zap.Error(err))
			}
		}

		if f := outcome.Failure; f != nil {
			opLogger.Warn("report processing failed", zap.String("stage", string(f.Stage)), zap.String("message", f.Message))
			o.metrics.ObserveOutcome(string(f.Stage))
		} else {
			opLogger.Info("report processed")
			o.metrics.ObserveOutcome("")
		}
		o.track(ctx, desc.RequestID, report.StateDone, outcome.Failure)
	}()

	o.track(ctx, desc.RequestID, report.StateRecognizing, nil)
	start := time.Now()
	recognized, err := o.recognizer.Recognize(ctx, desc.StoragePath, "")
	o.metrics.ObserveStage(string(report.StageRecognition), time.Since(start))
	if err != nil {
		return report.Failed(report.StageRecognition, err)
	}

	o.track(ctx, desc.RequestID, report.StateAnalyzing, nil)
	start = time.Now()
	analyzed, err := o.analyzer.Analyze(ctx, recognized.Text)
	o.metrics.ObserveStage(string(report.StageAnalysis), time.Since(start))
	if err != nil {
		// TODO: decide whether callers should receive the recognized text when
		// only analysis fails; it is dropped here.
		return report.Failed(report.StageAnalysis, err)
	}

	return report.Succeeded(recognized.Text, analyzed.Explanation)
}

// Status returns the last tracked state of a request.
func (o *Orchestrator) Status(ctx context.Context, requestID string) (*report.Status, error) {
	if o.status == nil {
		return nil, ErrTrackingDisabled
	}
	raw, err := o.status.Get(ctx, statusKey(requestID))
	if errors.Is(err, redis.Nil) {
		return nil, ErrStatusNotFound
	}
	if err != nil {
		return nil, logging.NewOperationError("status.get", requestID, err)
	}

	var st report.Status
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, logging.NewOperationError("status.decode", requestID, err)
	}
	return &st, nil
}

// track records a state transition. Tracking is best effort and never
// affects the outcome.
func (o *Orchestrator) track(ctx context.Context, requestID string, state report.State, failure *report.Failure) {
	if o.status == nil || requestID == "" {
		return
	}
	st := report.Status{
		RequestID: requestID,
		State:     state,
		UpdatedAt: o.now().UTC(),
	}
	if failure != nil {
		st.Stage = failure.Stage
		st.Message = failure.Message
	}

	opLogger := logging.WithOperation(o.logger, "pipeline.track", requestID)
	serialized, err := json.Marshal(st)
	if err != nil {
		opLogger.Warn("failed to serialize pipeline state", zap.Error(err))
		return
	}
	if err := o.status.Set(ctx, statusKey(requestID), string(serialized), o.statusTTL); err != nil {
		opLogger.Warn("failed to record pipeline state",
			zap.Error(logging.NewOperationError("status.set", requestID, err)),
			zap.String("state", string(state)),
		)
	}
}

func statusKey(requestID string) string {
	return fmt.Sprintf("report-status:%s", requestID)
}
