// Package whisper implements the upload adapter for Whisper-compatible
// transcription endpoints. The browser-facing relay in internal/server
// forwards through this client so vendor credentials never leave the
// process.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/skypro1111/asr-gateway/internal/asr"
)

// ProviderName is the registry name for this adapter.
const ProviderName = "whisper"

// Config contains the upstream endpoint configuration.
type Config struct {
	Endpoint   string
	APIKey     string
	Model      string
	Language   string
	Timeout    time.Duration // hard wall-clock bound per upstream call
	MaxRetries int
	RetryDelay time.Duration
}

// Request carries the optional multipart fields forwarded upstream.
type Request struct {
	Filename       string
	Language       string
	Prompt         string
	ResponseFormat string
	Temperature    float64
}

// Response is the vendor's JSON transcription result.
type Response struct {
	Text string `json:"text"`
}

// Client posts multipart audio to a Whisper-compatible endpoint with
// bounded retry and a hard timeout per attempt.
type Client struct {
	config     Config
	httpClient *http.Client

	mu     sync.Mutex
	buffer bytes.Buffer // audio accumulated between Start and Stop

	session *asr.Session
	onDelta asr.DeltaFunc
	onErr   asr.ErrorFunc
}

// NewClient creates a Whisper upload client.
func NewClient(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key cannot be empty")
	}
	if config.Model == "" {
		config.Model = "whisper-1"
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 2
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// Name returns the provider name.
func (c *Client) Name() string { return ProviderName }

// Start opens an upload session. Audio fed afterwards is buffered until
// Stop triggers the multipart upload.
func (c *Client) Start(ctx context.Context, onDelta asr.DeltaFunc, onErr asr.ErrorFunc) (*asr.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil && !c.session.State().Terminal() {
		c.stopLocked(c.session)
	}

	session := asr.NewSession(ProviderName)
	session.SetState(asr.StateActive)

	c.session = session
	c.onDelta = onDelta
	c.onErr = onErr
	c.buffer.Reset()

	return session, nil
}

// Feed buffers audio until Stop finalizes the upload.
func (c *Client) Feed(session *asr.Session, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if session == nil || session != c.session || session.State() != asr.StateActive {
		return asr.ErrSessionNotReady
	}
	c.buffer.Write(data)
	return nil
}

// Stop uploads the buffered audio and emits one final delta with the
// transcription text. A second Stop on the same session is a no-op.
func (c *Client) Stop(session *asr.Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopLocked(session)
}

func (c *Client) stopLocked(session *asr.Session) error {
	if session == nil || session != c.session {
		return nil
	}
	if !session.Transition(asr.StateActive, asr.StateDraining) {
		return nil // already draining or terminal
	}

	audio := make([]byte, c.buffer.Len())
	copy(audio, c.buffer.Bytes())
	c.buffer.Reset()

	resp, err := c.Transcribe(context.Background(), audio, Request{
		Filename: "recording.wav",
		Language: c.config.Language,
	})
	if err != nil {
		session.SetState(asr.StateFailed)
		if c.onErr != nil {
			c.onErr(err)
		}
		return err
	}

	if c.onDelta != nil {
		c.onDelta(asr.TranscriptDelta{Text: resp.Text, IsFinal: true})
	}
	session.SetState(asr.StateCompleted)
	return nil
}

// Transcribe posts one audio payload upstream, retrying transient
// failures with a fixed delay up to the configured attempt budget.
func (c *Client) Transcribe(ctx context.Context, audio []byte, req Request) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.config.RetryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := c.doRequest(ctx, audio, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !isRetryable(err) {
			break
		}
	}

	return nil, fmt.Errorf("transcription failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

// doRequest performs a single upstream call bounded by the wall-clock
// timeout; the request is aborted when the bound is exceeded.
func (c *Client) doRequest(ctx context.Context, audio []byte, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	body, contentType, err := c.buildMultipart(audio, req)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", asr.ErrConnectionError, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: HTTP %d: %s", asr.ErrAuthenticationFailed, resp.StatusCode, string(respBody))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(respBody))
	}

	var result Response
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}
	return &result, nil
}

// buildMultipart assembles the form the upstream endpoint expects.
func (c *Client) buildMultipart(audio []byte, req Request) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	filename := req.Filename
	if filename == "" {
		filename = "audio.wav"
	}

	fw, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return nil, "", fmt.Errorf("failed to write audio data: %w", err)
	}

	fields := map[string]string{
		"model":           c.config.Model,
		"response_format": "json",
	}
	if req.Language != "" {
		fields["language"] = req.Language
	}
	if req.Prompt != "" {
		fields["prompt"] = req.Prompt
	}
	if req.ResponseFormat != "" {
		fields["response_format"] = req.ResponseFormat
	}
	if req.Temperature > 0 {
		fields["temperature"] = fmt.Sprintf("%.2f", req.Temperature)
	}

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

// isRetryable reports whether an upstream failure is worth another
// attempt: 5xx, rate limiting and transport errors are; 4xx are not.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if err == context.DeadlineExceeded {
		return true
	}

	msg := err.Error()
	if strings.Contains(msg, "HTTP error 5") || strings.Contains(msg, "HTTP error 429") {
		return true
	}
	return strings.Contains(msg, "connection") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "refused")
}
