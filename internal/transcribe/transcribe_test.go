package transcribe_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/petems/voicegpt/internal/config"
	"github.com/petems/voicegpt/internal/transcribe"
)

type mockAudio struct {
	mu     sync.Mutex
	calls  []openai.AudioRequest
	errors []error
	text   func(path string) string
}

func (m *mockAudio) CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := len(m.calls)
	m.calls = append(m.calls, req)
	if idx < len(m.errors) && m.errors[idx] != nil {
		return openai.AudioResponse{}, m.errors[idx]
	}
	if m.text == nil {
		return openai.AudioResponse{Text: " hello world "}, nil
	}
	return openai.AudioResponse{Text: m.text(req.FilePath)}, nil
}

func (m *mockAudio) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type mockChat struct {
	calls  []openai.ChatCompletionRequest
	errors []error
	resp   openai.ChatCompletionResponse
}

func (m *mockChat) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	idx := len(m.calls)
	m.calls = append(m.calls, req)
	if idx < len(m.errors) && m.errors[idx] != nil {
		return openai.ChatCompletionResponse{}, m.errors[idx]
	}
	return m.resp, nil
}

func answer(text string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: text}},
		},
	}
}

func apiError(status int, msg string) error {
	return &openai.APIError{HTTPStatusCode: status, Message: msg}
}

func testConfig() config.OpenAIConfig {
	return config.Default().OpenAI
}

func fast() transcribe.Option {
	return transcribe.WithRetryDelays(time.Millisecond, time.Millisecond)
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := transcribe.New(testConfig()); !errors.Is(err, transcribe.ErrNoAPIKey) {
		t.Errorf("New() error = %v, want ErrNoAPIKey", err)
	}

	cfg := testConfig()
	cfg.APIKey = "sk-test"
	if _, err := transcribe.New(cfg); err != nil {
		t.Errorf("New() error = %v", err)
	}
}

func TestTranscribe(t *testing.T) {
	audio := &mockAudio{}
	cfg := testConfig()
	cfg.Language = "en"
	c := transcribe.NewTestClient(audio, &mockChat{}, cfg, fast())

	text, err := c.Transcribe(context.Background(), "/tmp/recorded.wav")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "hello world" {
		t.Errorf("Transcribe() = %q, want %q", text, "hello world")
	}

	req := audio.calls[0]
	if req.Model != openai.Whisper1 || req.FilePath != "/tmp/recorded.wav" || req.Language != "en" {
		t.Errorf("request = %+v", req)
	}
}

func TestTranscribeRetries(t *testing.T) {
	tests := []struct {
		name      string
		errors    []error
		wantErr   error
		wantCalls int
	}{
		{
			name:      "rate limit then success",
			errors:    []error{apiError(http.StatusTooManyRequests, "slow down")},
			wantCalls: 2,
		},
		{
			name:      "server error then success",
			errors:    []error{apiError(http.StatusBadGateway, "bad gateway"), apiError(http.StatusServiceUnavailable, "unavailable")},
			wantCalls: 3,
		},
		{
			name:      "auth failure is not retried",
			errors:    []error{apiError(http.StatusUnauthorized, "bad key")},
			wantErr:   transcribe.ErrAuthFailed,
			wantCalls: 1,
		},
		{
			name:      "quota is not retried",
			errors:    []error{apiError(http.StatusTooManyRequests, "You exceeded your current quota")},
			wantErr:   transcribe.ErrQuotaExceeded,
			wantCalls: 1,
		},
		{
			name: "retries exhausted",
			errors: []error{
				apiError(http.StatusTooManyRequests, "slow down"),
				apiError(http.StatusTooManyRequests, "slow down"),
				apiError(http.StatusTooManyRequests, "slow down"),
				apiError(http.StatusTooManyRequests, "slow down"),
			},
			wantErr:   transcribe.ErrRateLimit,
			wantCalls: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			audio := &mockAudio{errors: tt.errors}
			c := transcribe.NewTestClient(audio, &mockChat{}, testConfig(), fast())

			_, err := c.Transcribe(context.Background(), "recorded.wav")
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Transcribe() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Transcribe() error = %v, want %v", err, tt.wantErr)
			}
			if got := audio.CallCount(); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestTranscribeEmptyText(t *testing.T) {
	audio := &mockAudio{text: func(string) string { return "   " }}
	c := transcribe.NewTestClient(audio, &mockChat{}, testConfig(), fast())

	if _, err := c.Transcribe(context.Background(), "recorded.wav"); !errors.Is(err, transcribe.ErrEmptyResponse) {
		t.Errorf("Transcribe() error = %v, want ErrEmptyResponse", err)
	}
}

func TestTranscribeCanceled(t *testing.T) {
	audio := &mockAudio{errors: []error{apiError(http.StatusTooManyRequests, "slow down")}}
	c := transcribe.NewTestClient(audio, &mockChat{}, testConfig(),
		transcribe.WithRetryDelays(time.Hour, time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Transcribe(ctx, "recorded.wav"); !errors.Is(err, context.Canceled) {
		t.Errorf("Transcribe() error = %v, want context.Canceled", err)
	}
}

func TestComplete(t *testing.T) {
	chat := &mockChat{resp: answer("  Paris.\n")}
	c := transcribe.NewTestClient(&mockAudio{}, chat, testConfig(), fast())

	got, err := c.Complete(context.Background(), "What is the capital of France?")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "Paris." {
		t.Errorf("Complete() = %q, want %q", got, "Paris.")
	}

	req := chat.calls[0]
	if req.Model != openai.GPT4oMini || req.MaxTokens != 100 || req.Temperature != 0 {
		t.Errorf("request = %+v", req)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != openai.ChatMessageRoleUser ||
		req.Messages[0].Content != "What is the capital of France?" {
		t.Errorf("messages = %+v", req.Messages)
	}
}

func TestCompleteErrors(t *testing.T) {
	tests := []struct {
		name string
		chat *mockChat
		want error
	}{
		{"no choices", &mockChat{}, transcribe.ErrEmptyResponse},
		{"blank answer", &mockChat{resp: answer(" ")}, transcribe.ErrEmptyResponse},
		{"auth", &mockChat{errors: []error{apiError(http.StatusUnauthorized, "bad key")}}, transcribe.ErrAuthFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := transcribe.NewTestClient(&mockAudio{}, tt.chat, testConfig(), fast())
			if _, err := c.Complete(context.Background(), "hi"); !errors.Is(err, tt.want) {
				t.Errorf("Complete() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTranscribeAllKeepsOrder(t *testing.T) {
	audio := &mockAudio{text: func(path string) string { return "text of " + path }}
	c := transcribe.NewTestClient(audio, &mockChat{}, testConfig(), fast())

	paths := []string{"a.wav", "b.wav", "c.wav", "d.wav", "e.wav", "f.wav"}
	got, err := c.TranscribeAll(context.Background(), paths)
	if err != nil {
		t.Fatalf("TranscribeAll() error = %v", err)
	}
	for i, path := range paths {
		if got[i] != "text of "+path {
			t.Errorf("result[%d] = %q", i, got[i])
		}
	}
}

func TestTranscribeAllFails(t *testing.T) {
	audio := &mockAudio{text: func(path string) string {
		if strings.HasPrefix(path, "silent") {
			return ""
		}
		return "ok"
	}}
	c := transcribe.NewTestClient(audio, &mockChat{}, testConfig(), fast())

	_, err := c.TranscribeAll(context.Background(), []string{"a.wav", "silent.wav", "c.wav"})
	if !errors.Is(err, transcribe.ErrEmptyResponse) {
		t.Fatalf("TranscribeAll() error = %v, want ErrEmptyResponse", err)
	}
	if !strings.Contains(err.Error(), "silent.wav") {
		t.Errorf("error %q does not name the failing file", err)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		want      error
		retryable bool
	}{
		{"rate limit", apiError(http.StatusTooManyRequests, "slow down"), transcribe.ErrRateLimit, true},
		{"billing", apiError(http.StatusTooManyRequests, "check your billing details"), transcribe.ErrQuotaExceeded, false},
		{"unauthorized", apiError(http.StatusUnauthorized, "bad key"), transcribe.ErrAuthFailed, false},
		{"gateway timeout", apiError(http.StatusGatewayTimeout, "timeout"), transcribe.ErrTimeout, true},
		{"internal error", apiError(http.StatusInternalServerError, "oops"), transcribe.ErrTimeout, true},
		{"deadline", context.DeadlineExceeded, transcribe.ErrTimeout, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := transcribe.ClassifyError(tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("ClassifyError() = %v, want %v", got, tt.want)
			}
			if r := transcribe.IsRetryableError(got); r != tt.retryable {
				t.Errorf("IsRetryableError() = %v, want %v", r, tt.retryable)
			}
		})
	}

	plain := errors.New("boom")
	if got := transcribe.ClassifyError(plain); got != plain {
		t.Errorf("ClassifyError(plain) = %v, want unchanged", got)
	}
}

func TestRetryWithBackoffNormalizes(t *testing.T) {
	calls := 0
	_, err := transcribe.RetryWithBackoff(context.Background(), transcribe.RetryConfig{MaxRetries: -1},
		func() (int, error) {
			calls++
			return 0, transcribe.ErrTimeout
		},
		func(error) bool { return true })
	if !errors.Is(err, transcribe.ErrTimeout) {
		t.Errorf("error = %v, want ErrTimeout", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
