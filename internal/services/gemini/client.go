// Package gemini implements the Google Gemini generateContent backend.
// Gemini speaks its own wire format rather than the OpenAI chat schema,
// so it gets a native client instead of a preset.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"subalign/internal/services"
)

const (
	// DefaultBaseURL is the Generative Language API root.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	// DefaultModel is the fast Gemini tier used for scoring.
	DefaultModel = "gemini-2.5-flash"

	backendName           = "gemini"
	jsonMIMEType          = "application/json"
	defaultHTTPTimeout    = 15 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryAttempts  = 3
)

// Config captures the runtime settings required to talk to Gemini.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
	MaxAttempts    int
}

// Client wraps the Gemini generateContent API.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the configured retry count.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a Gemini client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	attempts := defaultRetryAttempts
	if cfg.MaxAttempts > 0 {
		attempts = cfg.MaxAttempts
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
			MaxAttempts:    cfg.MaxAttempts,
		},
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: attempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = DefaultBaseURL
	}
	if client.cfg.Model == "" {
		client.cfg.Model = DefaultModel
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// Name reports the backend name used in logs and error messages.
func (c *Client) Name() string {
	return backendName
}

// Model reports the configured model identifier.
func (c *Client) Model() string {
	return c.cfg.Model
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("generate request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

type emptyContentError struct {
	Op           string
	FinishReason string
	BlockReason  string
	Snippet      string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf(
		"%s: empty content (finish_reason=%q, block_reason=%q, response_snippet=%s)",
		e.Op,
		e.FinishReason,
		e.BlockReason,
		e.Snippet,
	)
}

// CompleteJSON issues a JSON-only generateContent request with the supplied
// prompts. It returns the raw JSON payload produced by the model along with
// the token usage reported in usageMetadata.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, services.Usage, error) {
	var usage services.Usage
	systemPrompt = strings.TrimSpace(systemPrompt)
	userPrompt = strings.TrimSpace(userPrompt)
	if systemPrompt == "" {
		return "", usage, services.Wrap(services.ErrBackend, backendName, "complete", "system prompt required", nil)
	}
	if userPrompt == "" {
		return "", usage, services.Wrap(services.ErrBackend, backendName, "complete", "user prompt required", nil)
	}
	if c.cfg.APIKey == "" {
		return "", usage, services.Wrap(services.ErrBackendUnavailable, backendName, "complete", "api key required", nil)
	}
	payload := generateRequest{
		SystemInstruction: &requestContent{Parts: []requestPart{{Text: systemPrompt}}},
		Contents: []requestContent{
			{Role: "user", Parts: []requestPart{{Text: userPrompt}}},
		},
		GenerationConfig: generationConfig{
			Temperature:      0,
			ResponseMIMEType: jsonMIMEType,
		},
	}
	return c.generateContentWithRetry(ctx, payload, "complete")
}

// HealthCheck issues a fast ping to verify the API key and model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return services.Wrap(services.ErrBackendUnavailable, backendName, "health", "api key required", nil)
	}
	payload := generateRequest{
		SystemInstruction: &requestContent{Parts: []requestPart{{Text: "You must respond with JSON only."}}},
		Contents: []requestContent{
			{Role: "user", Parts: []requestPart{{Text: "Respond with {\"ok\":true}"}}},
		},
		GenerationConfig: generationConfig{
			Temperature:      0,
			ResponseMIMEType: jsonMIMEType,
		},
	}
	content, _, err := c.generateContentWithRetry(ctx, payload, "health")
	if err != nil {
		return err
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := services.DecodeJSON(content, &parsed); err != nil {
		return services.Wrap(services.ErrBackend, backendName, "health", "parse payload", err)
	}
	if !parsed.OK {
		return services.Wrap(services.ErrBackend, backendName, "health", "unexpected response", nil)
	}
	return nil
}

type generateRequest struct {
	SystemInstruction *requestContent  `json:"system_instruction,omitempty"`
	Contents          []requestContent `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type requestContent struct {
	Role  string        `json:"role,omitempty"`
	Parts []requestPart `json:"parts"`
}

type requestPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMIMEType string  `json:"responseMimeType"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []requestPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int64 `json:"promptTokenCount"`
		CandidatesTokenCount int64 `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	Error *struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (c *Client) generateContentWithRetry(ctx context.Context, payload generateRequest, op string) (string, services.Usage, error) {
	attempts := c.retryAttempts()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		generated, body, err := c.sendGenerateRequestOnce(ctx, payload)
		if err == nil {
			content, finishReason := extractGeneratedText(generated)
			if content == "" {
				err = &emptyContentError{
					Op:           op,
					FinishReason: finishReason,
					BlockReason:  extractBlockReason(generated),
					Snippet:      services.SummarizeSnippet(string(body)),
				}
			} else {
				usage := services.Usage{
					TokensIn:  generated.UsageMetadata.PromptTokenCount,
					TokensOut: generated.UsageMetadata.CandidatesTokenCount,
				}
				return content, usage, nil
			}
		}

		delay, retry := c.retryDelay(ctx, err, attempt)
		if !retry {
			return "", services.Usage{}, c.classify(op, err)
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return "", services.Usage{}, c.classify(op, sleepErr)
		}
	}

	err := fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
	return "", services.Usage{}, c.classify(op, err)
}

func (c *Client) classify(op string, err error) error {
	if err == nil {
		return nil
	}
	marker := services.ErrBackend
	switch {
	case errors.Is(err, context.Canceled):
		marker = services.ErrCancelled
	case isUnavailableStatus(err):
		marker = services.ErrBackendUnavailable
	}
	return services.Wrap(marker, backendName, op, "", err)
}

func isUnavailableStatus(err error) bool {
	var statusErr *httpStatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	switch statusErr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}

func extractGeneratedText(generated generateResponse) (string, string) {
	var finishReason string
	for _, candidate := range generated.Candidates {
		if finishReason == "" {
			finishReason = strings.TrimSpace(candidate.FinishReason)
		}
		var builder strings.Builder
		for _, part := range candidate.Content.Parts {
			builder.WriteString(part.Text)
		}
		if text := strings.TrimSpace(builder.String()); text != "" {
			return text, finishReason
		}
	}
	return "", finishReason
}

func extractBlockReason(generated generateResponse) string {
	if generated.PromptFeedback == nil {
		return ""
	}
	return strings.TrimSpace(generated.PromptFeedback.BlockReason)
}

func (c *Client) sendGenerateRequestOnce(ctx context.Context, payload generateRequest) (generateResponse, []byte, error) {
	var generated generateResponse
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "models", c.cfg.Model+":generateContent")
	if err != nil {
		return generated, nil, fmt.Errorf("generate request: build url: %w", err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return generated, nil, fmt.Errorf("generate request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return generated, nil, fmt.Errorf("generate request: new request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return generated, nil, fmt.Errorf("generate request: http error (timeout=%s): %w", c.timeoutDuration(), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return generated, nil, fmt.Errorf("generate request: read body (timeout=%s): %w", c.timeoutDuration(), err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return generated, body, &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}
	if err := json.Unmarshal(body, &generated); err != nil {
		return generated, body, fmt.Errorf("generate request: decode response: %w", err)
	}
	if generated.Error != nil {
		return generated, body, fmt.Errorf("generate request: api error: %s", strings.TrimSpace(generated.Error.Message))
	}
	return generated, body, nil
}

func (c *Client) timeoutDuration() time.Duration {
	if c == nil || c.httpClient == nil {
		return defaultHTTPTimeout
	}
	if c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}

func (c *Client) retryAttempts() int {
	if c == nil {
		return 1
	}
	if c.retryMaxAttempts <= 0 {
		return 1
	}
	return c.retryMaxAttempts
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt int) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}
	if ctx == nil {
		return 0, false
	}
	if ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	if _, ok := err.(*emptyContentError); ok {
		return c.backoffDelay(attempt), true
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			if statusErr.RetryAfter > 0 {
				return c.capDelay(statusErr.RetryAfter), true
			}
			return c.backoffDelay(attempt), true
		default:
			return 0, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return c.backoffDelay(attempt), true
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return c.backoffDelay(attempt), true
		}
	}

	return 0, false
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	base := defaultRetryBaseDelay
	maxDelay := defaultRetryMaxDelay
	if c != nil {
		if c.retryBaseDelay >= 0 {
			base = c.retryBaseDelay
		}
		if c.retryMaxDelay > 0 {
			maxDelay = c.retryMaxDelay
		}
	}
	if base <= 0 {
		return 0
	}

	retryCount := attempt
	if retryCount <= 0 {
		retryCount = 1
	}

	delay := base
	for i := 1; i < retryCount; i++ {
		if delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	return c.capDelay(delay)
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	maxDelay := defaultRetryMaxDelay
	if c != nil && c.retryMaxDelay > 0 {
		maxDelay = c.retryMaxDelay
	}
	if maxDelay > 0 && delay > maxDelay {
		return maxDelay
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx == nil {
		return errors.New("retry: nil context")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c != nil && c.sleeper != nil {
		c.sleeper(delay)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}
