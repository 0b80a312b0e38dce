// Package analysis asks a language model to explain recognized report text in
// plain language.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/example/report-explainer/internal/config"
	"github.com/example/report-explainer/internal/report"
	"github.com/example/report-explainer/internal/resilience"
)

// Fixed inference parameters. They are not tunable per call.
const (
	Temperature float32 = 0.7
	MaxTokens           = 1000
	TopP        float32 = 1.0
)

const (
	systemPrompt = "You are a medical expert assistant. Your task is to read medical reports and provide detailed insights in simple terms."
	userPrompt   = "Explain the problem from the report data in 5 lines:\n\n"
)

var errEmptyResponse = errors.New("response contained no choices")

// ChatClient is the subset of the go-openai client the adapter needs.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Adapter sends recognized text to the configured model. Identical inputs are
// never cached.
type Adapter struct {
	client  ChatClient
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewAdapter builds an adapter talking to cfg.Endpoint with cfg.Token.
func NewAdapter(cfg config.AnalysisConfig, logger *zap.Logger) *Adapter {
	clientCfg := openai.DefaultConfig(cfg.Token)
	if cfg.Endpoint != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.Endpoint, "/")
	}
	return NewAdapterWithClient(openai.NewClientWithConfig(clientCfg), cfg, logger)
}

// NewAdapterWithClient builds an adapter around an existing client.
func NewAdapterWithClient(client ChatClient, cfg config.AnalysisConfig, logger *zap.Logger) *Adapter {
	return &Adapter{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger.Named("analysis"),
	}
}

// Analyze returns the model's explanation of text. Transport, auth, timeout
// and malformed-response failures are analysis errors.
func (a *Adapter) Analyze(ctx context.Context, text string) (report.AnalysisResult, error) {
	req := BuildRequest(a.model, text)

	var resp openai.ChatCompletionResponse
	err := resilience.WithTimeout(ctx, a.timeout, "analysis", func(ctx context.Context) error {
		var callErr error
		resp, callErr = a.client.CreateChatCompletion(ctx, req)
		return callErr
	})
	if err != nil {
		a.logger.Warn("chat completion failed", zap.Error(err), zap.String("model", a.model))
		return report.AnalysisResult{}, report.NewAnalysisError(fmt.Errorf("language model error: %w", err))
	}
	if len(resp.Choices) == 0 {
		return report.AnalysisResult{}, report.NewAnalysisError(fmt.Errorf("language model error: %w", errEmptyResponse))
	}

	explanation := resp.Choices[0].Message.Content
	a.logger.Debug("chat completion finished",
		zap.String("model", a.model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	return report.AnalysisResult{Explanation: explanation}, nil
}

// BuildRequest assembles the fixed explainer prompt around text.
func BuildRequest(model, text string) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt + text},
		},
		Temperature: Temperature,
		MaxTokens:   MaxTokens,
		TopP:        TopP,
	}
}
