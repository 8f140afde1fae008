package transcribe

import "errors"

// ErrNoAPIKey indicates no OpenAI API key was configured.
var ErrNoAPIKey = errors.New("OPENAI_API_KEY not set")

// ErrRateLimit indicates the API rate limit was hit (retryable).
var ErrRateLimit = errors.New("rate limit exceeded")

// ErrQuotaExceeded indicates the account ran out of quota (not retryable).
var ErrQuotaExceeded = errors.New("quota exceeded")

// ErrAuthFailed indicates the API key was rejected.
var ErrAuthFailed = errors.New("authentication failed")

// ErrTimeout indicates a request timed out or the server failed (retryable).
var ErrTimeout = errors.New("request timeout")

// ErrEmptyResponse indicates the API answered without any text.
var ErrEmptyResponse = errors.New("empty response")
