// Package tesseract provides the production OCR engine backed by gosseract.
// It requires the tesseract and leptonica shared libraries at build time.
package tesseract

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// Engine runs each recognition on its own gosseract client, so concurrent
// requests never share engine state.
type Engine struct {
	clientFactory func() *gosseract.Client
}

// New constructs a Tesseract-backed engine.
func New() *Engine {
	return &Engine{clientFactory: gosseract.NewClient}
}

// Recognize performs OCR on an encoded image.
func (e *Engine) Recognize(ctx context.Context, image []byte, language string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c := e.clientFactory()
	defer c.Close()

	if language != "" {
		if err := c.SetLanguage(language); err != nil {
			return "", fmt.Errorf("set language: %w", err)
		}
	}
	if err := c.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", err
	}
	return text, nil
}
