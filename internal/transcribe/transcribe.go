// Package transcribe sends finished recordings to OpenAI speech-to-text and
// asks follow-up questions through chat completion.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"github.com/petems/voicegpt/internal/config"
)

const (
	defaultBaseDelay = 1 * time.Second
	defaultMaxDelay  = 30 * time.Second

	// MaxParallel bounds concurrent requests in TranscribeAll.
	MaxParallel = 4
)

// RetryConfig holds the exponential backoff parameters.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func (c *RetryConfig) normalize() {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = c.BaseDelay
	}
}

// RetryWithBackoff calls fn until it succeeds, shouldRetry rejects the
// error, the retries run out or ctx is done.
func RetryWithBackoff[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error), shouldRetry func(error) bool) (T, error) {
	cfg.normalize()

	var zero T
	var lastErr error
	delay := cfg.BaseDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
			delay = min(delay*2, cfg.MaxDelay)
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !shouldRetry(err) {
			return zero, err
		}
	}

	return zero, fmt.Errorf("max retries (%d) exceeded: %w", cfg.MaxRetries, lastErr)
}

// audioTranscriber and chatCompleter are the parts of *openai.Client we use.
type audioTranscriber interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

var (
	_ audioTranscriber = (*openai.Client)(nil)
	_ chatCompleter    = (*openai.Client)(nil)
)

// Client talks to the OpenAI API.
type Client struct {
	audio audioTranscriber
	chat  chatCompleter
	cfg   config.OpenAIConfig
	retry RetryConfig
}

// Option configures a Client.
type Option func(*Client)

// WithRetryDelays sets the base and max delays between retries.
func WithRetryDelays(base, max time.Duration) Option {
	return func(c *Client) {
		if base > 0 {
			c.retry.BaseDelay = base
		}
		if max > 0 {
			c.retry.MaxDelay = max
		}
	}
}

// New creates a Client from cfg. It fails with ErrNoAPIKey when cfg has no
// API key.
func New(cfg config.OpenAIConfig, opts ...Option) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	api := openai.NewClient(cfg.APIKey)
	return newClient(api, api, cfg, opts...), nil
}

func newClient(a audioTranscriber, ch chatCompleter, cfg config.OpenAIConfig, opts ...Option) *Client {
	if cfg.TranscriptionModel == "" {
		cfg.TranscriptionModel = openai.Whisper1
	}
	if cfg.CompletionModel == "" {
		cfg.CompletionModel = openai.GPT4oMini
	}
	c := &Client{
		audio: a,
		chat:  ch,
		cfg:   cfg,
		retry: RetryConfig{
			MaxRetries: cfg.MaxRetries,
			BaseDelay:  defaultBaseDelay,
			MaxDelay:   defaultMaxDelay,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transcribe returns the text spoken in the audio file at path.
func (c *Client) Transcribe(ctx context.Context, path string) (string, error) {
	req := openai.AudioRequest{
		Model:    c.cfg.TranscriptionModel,
		FilePath: path,
		Format:   openai.AudioResponseFormatJSON,
		Language: c.cfg.Language,
	}

	text, err := RetryWithBackoff(ctx, c.retry, func() (string, error) {
		resp, err := c.audio.CreateTranscription(ctx, req)
		if err != nil {
			return "", classifyError(err)
		}
		return resp.Text, nil
	}, isRetryableError)
	if err != nil {
		return "", fmt.Errorf("transcribe %s: %w", filepath.Base(path), err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("transcribe %s: %w", filepath.Base(path), ErrEmptyResponse)
	}
	return text, nil
}

// Complete sends prompt as a single user message and returns the answer.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.cfg.CompletionModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}

	resp, err := RetryWithBackoff(ctx, c.retry, func() (openai.ChatCompletionResponse, error) {
		resp, err := c.chat.CreateChatCompletion(ctx, req)
		if err != nil {
			return openai.ChatCompletionResponse{}, classifyError(err)
		}
		return resp, nil
	}, isRetryableError)
	if err != nil {
		return "", fmt.Errorf("completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion: %w", ErrEmptyResponse)
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", fmt.Errorf("completion: %w", ErrEmptyResponse)
	}
	return answer, nil
}

// TranscribeAll transcribes paths concurrently, at most MaxParallel at a
// time. Results keep the input order; the first failure cancels the rest.
func (c *Client) TranscribeAll(ctx context.Context, paths []string) ([]string, error) {
	results := make([]string, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxParallel)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			text, err := c.Transcribe(ctx, path)
			if err != nil {
				return err
			}
			results[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			if strings.Contains(apiErr.Message, "quota") || strings.Contains(apiErr.Message, "billing") {
				return fmt.Errorf("%s: %w", apiErr.Message, ErrQuotaExceeded)
			}
			return fmt.Errorf("%s: %w", apiErr.Message, ErrRateLimit)
		case http.StatusUnauthorized:
			return fmt.Errorf("%s: %w", apiErr.Message, ErrAuthFailed)
		case http.StatusRequestTimeout, http.StatusGatewayTimeout,
			http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
			return fmt.Errorf("%s: %w", apiErr.Message, ErrTimeout)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", ErrTimeout)
	}
	return err
}

func isRetryableError(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrTimeout)
}
