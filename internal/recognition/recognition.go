// Package recognition turns a stored report image into plain text.
package recognition

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/example/report-explainer/internal/report"
	"github.com/example/report-explainer/internal/resilience"
)

// DefaultLanguage is used when neither the caller nor the configuration names one.
const DefaultLanguage = "eng"

// Engine is the OCR capability.
type Engine interface {
	Recognize(ctx context.Context, image []byte, language string) (string, error)
}

// Options tune the adapter.
type Options struct {
	Language  string
	Timeout   time.Duration
	Grayscale bool
}

// Adapter reads an image from transient storage and runs it through an Engine.
// It never deletes the file.
type Adapter struct {
	engine    Engine
	language  string
	timeout   time.Duration
	grayscale bool
	logger    *zap.Logger
}

// NewAdapter constructs an adapter around engine.
func NewAdapter(engine Engine, opts Options, logger *zap.Logger) *Adapter {
	lang := opts.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	return &Adapter{
		engine:    engine,
		language:  lang,
		timeout:   opts.Timeout,
		grayscale: opts.Grayscale,
		logger:    logger.Named("recognition"),
	}
}

// Recognize extracts the text of the image at storagePath. An empty language
// selects the adapter default. Every failure is a recognition error carrying
// the underlying message.
func (a *Adapter) Recognize(ctx context.Context, storagePath, language string) (report.RecognitionResult, error) {
	if language == "" {
		language = a.language
	}

	image, err := os.ReadFile(storagePath)
	if err != nil {
		return report.RecognitionResult{}, report.NewRecognitionError(fmt.Errorf("read image: %w", err))
	}
	if a.grayscale {
		image, err = Preprocess(image)
		if err != nil {
			return report.RecognitionResult{}, report.NewRecognitionError(err)
		}
	}

	var text string
	err = resilience.WithTimeout(ctx, a.timeout, "recognition", func(ctx context.Context) error {
		var recErr error
		text, recErr = a.engine.Recognize(ctx, image, language)
		return recErr
	})
	if err != nil {
		a.logger.Warn("recognition failed", zap.Error(err), zap.String("path", storagePath), zap.String("language", language))
		return report.RecognitionResult{}, report.NewRecognitionError(err)
	}

	a.logger.Debug("recognition finished", zap.Int("chars", len(text)), zap.String("language", language))
	return report.RecognitionResult{Text: text}, nil
}
