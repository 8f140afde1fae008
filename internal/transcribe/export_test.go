package transcribe

import "github.com/petems/voicegpt/internal/config"

// NewTestClient builds a Client around mock API endpoints.
func NewTestClient(a audioTranscriber, ch chatCompleter, cfg config.OpenAIConfig, opts ...Option) *Client {
	return newClient(a, ch, cfg, opts...)
}

var (
	ClassifyError    = classifyError
	IsRetryableError = isRetryableError
)
