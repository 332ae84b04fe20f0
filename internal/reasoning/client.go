package reasoning

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/userpulse/backend/pkg/circuitbreaker"
	"github.com/userpulse/backend/pkg/logger"
	"github.com/userpulse/backend/pkg/retry"
)

// TaskKind selects the system prompt for a reasoning call.
type TaskKind string

const (
	TaskAnalysis       TaskKind = "analysis"
	TaskPrediction     TaskKind = "prediction"
	TaskRecommendation TaskKind = "recommendation"
)

// CallPriority hints how much budget a call gets. High-priority calls are
// allowed the full token budget; low-priority ones are trimmed.
type CallPriority string

const (
	PriorityLow    CallPriority = "low"
	PriorityNormal CallPriority = "normal"
	PriorityHigh   CallPriority = "high"
)

var systemPrompts = map[TaskKind]string{
	TaskAnalysis: `You are a behavioral analytics expert. Analyze user interaction events
and respond with a single JSON object. Be precise and base conclusions only on
the data provided.`,
	TaskPrediction: `You are a predictive analytics expert. Given user behavior summaries,
predict future behavior and respond with a single JSON object containing your
prediction, a confidence between 0 and 1, and contributing factors.`,
	TaskRecommendation: `You are a personalization expert. Given user behavior summaries,
produce recommendations and respond with a single JSON array of recommendation
objects. Do not include commentary outside the JSON.`,
}

// ResponseCache stores reasoning responses keyed by prompt hash. Implemented
// by the redis cache client; a nil cache disables caching.
type ResponseCache interface {
	GetResponse(ctx context.Context, promptHash string) (string, bool, error)
	SetResponse(ctx context.Context, promptHash string, content string, ttl time.Duration) error
}

type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	cache       ResponseCache
	cacheTTL    time.Duration
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

func NewClient(apiKey, model string, temperature float32, maxTokens, timeoutSec int, cache ResponseCache, cacheTTL time.Duration) *Client {
	client := openai.NewClient(apiKey)

	cb := circuitbreaker.NewCircuitBreaker("reasoning", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		Name:           "reasoning",
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	if timeoutSec <= 0 {
		timeoutSec = 30
	}

	logger.Info("Reasoning client initialized",
		zap.String("model", model),
		zap.Bool("cache_enabled", cache != nil),
	)

	return &Client{
		client:      client,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		timeout:     time.Duration(timeoutSec) * time.Second,
		cache:       cache,
		cacheTTL:    cacheTTL,
		cb:          cb,
		retryConfig: retryConfig,
	}
}

// Execute sends prompt to the reasoning service and returns the raw response
// content. Callers decode the content with the parse helpers and substitute
// their named fallback on any error.
func (c *Client) Execute(ctx context.Context, prompt string, kind TaskKind, priority CallPriority) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	hash := promptHash(string(kind) + ":" + prompt)

	if c.cache != nil {
		if content, ok, err := c.cache.GetResponse(ctx, hash); err != nil {
			logger.Warn("Reasoning cache read failed", zap.Error(err))
		} else if ok {
			return content, nil
		}
	}

	maxTokens := c.maxTokens
	if priority == PriorityLow && maxTokens > 512 {
		maxTokens = 512
	}

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompts[kind],
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		},
	}

	var content string

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.client.CreateChatCompletion(
				ctx,
				openai.ChatCompletionRequest{
					Model:       c.model,
					Messages:    messages,
					Temperature: c.temperature,
					MaxTokens:   maxTokens,
				},
			)

			if err != nil {
				return fmt.Errorf("failed to create completion: %w", err)
			}

			if len(resp.Choices) == 0 {
				return fmt.Errorf("completion returned no choices")
			}

			logger.Debug("Reasoning completion generated",
				zap.String("task", string(kind)),
				zap.Int("prompt_tokens", resp.Usage.PromptTokens),
				zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			)

			content = resp.Choices[0].Message.Content
			return nil
		})
	})

	if err != nil {
		return "", err
	}

	if c.cache != nil {
		if err := c.cache.SetResponse(ctx, hash, content, c.cacheTTL); err != nil {
			logger.Warn("Reasoning cache write failed", zap.Error(err))
		}
	}

	return content, nil
}

func promptHash(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}
