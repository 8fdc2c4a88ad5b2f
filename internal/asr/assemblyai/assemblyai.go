// Package assemblyai implements the upload-and-poll adapter for the
// AssemblyAI transcription API: the buffered audio is uploaded once, a
// transcript job is created, and the job status is polled on a fixed
// interval until a terminal state or the retry budget runs out.
package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/skypro1111/asr-gateway/internal/asr"
)

// ProviderName is the registry name for this adapter.
const ProviderName = "assemblyai"

const (
	defaultBaseURL      = "https://api.assemblyai.com/v2"
	defaultPollInterval = 3 * time.Second
	defaultPollBudget   = 100
	defaultMaxFileSize  = 1024 * 1024 * 1000 // 1 GB
)

// supportedExtensions is the vendor's accepted upload set (audio and
// video containers; the vendor extracts the audio track itself).
var supportedExtensions = map[string]bool{
	"3ga": true, "8svx": true, "aac": true, "ac3": true, "aif": true,
	"aiff": true, "alac": true, "amr": true, "ape": true, "au": true,
	"dss": true, "flac": true, "flv": true, "m4a": true, "m4b": true,
	"m4p": true, "m4r": true, "mp3": true, "mpga": true, "ogg": true,
	"oga": true, "mogg": true, "opus": true, "qcp": true, "tta": true,
	"voc": true, "wav": true, "wma": true, "wv": true,
	"mp4": true, "avi": true, "mov": true, "wmv": true, "mkv": true,
	"webm": true,
}

// Config contains AssemblyAI API configuration.
type Config struct {
	APIKey       string
	BaseURL      string
	Language     string // empty enables automatic language detection
	PollInterval time.Duration
	PollBudget   int
	MaxFileSize  int64
}

// transcriptParams is the job creation payload.
type transcriptParams struct {
	AudioURL          string  `json:"audio_url"`
	SpeechModel       string  `json:"speech_model"`
	Punctuate         bool    `json:"punctuate"`
	FormatText        bool    `json:"format_text"`
	LanguageDetection bool    `json:"language_detection"`
	LanguageCode      *string `json:"language_code,omitempty"`
	Disfluencies      bool    `json:"disfluencies"`
	FilterProfanity   bool    `json:"filter_profanity"`
}

// transcriptStatus is the job status response.
type transcriptStatus struct {
	ID     string `json:"id"`
	Status string `json:"status"` // queued, processing, completed, error
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// Client drives the AssemblyAI upload/create/poll flow behind the
// common adapter contract.
type Client struct {
	config     Config
	httpClient *http.Client

	mu      sync.Mutex
	buffer  bytes.Buffer
	session *asr.Session
	onDelta asr.DeltaFunc
	onErr   asr.ErrorFunc
}

// NewClient creates an AssemblyAI client.
func NewClient(config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key cannot be empty")
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaultPollInterval
	}
	if config.PollBudget <= 0 {
		config.PollBudget = defaultPollBudget
	}
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = defaultMaxFileSize
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Name returns the provider name.
func (c *Client) Name() string { return ProviderName }

// ValidateFile rejects unsupported or oversized inputs before any
// network call is made.
func (c *Client) ValidateFile(filename string, size int64) error {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if !supportedExtensions[ext] {
		return fmt.Errorf("%w: %q", asr.ErrUnsupportedFormat, filename)
	}
	if size > c.config.MaxFileSize {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", asr.ErrFileTooLarge, size, c.config.MaxFileSize)
	}
	return nil
}

// Start opens an upload session; audio is buffered until Stop.
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

// Feed buffers audio for the eventual upload.
func (c *Client) Feed(session *asr.Session, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if session == nil || session != c.session || session.State() != asr.StateActive {
		return asr.ErrSessionNotReady
	}
	c.buffer.Write(data)
	return nil
}

// Stop uploads the buffered audio, creates the transcript job and polls
// until completion. Exactly one final delta is emitted on success.
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
		return nil
	}

	audio := make([]byte, c.buffer.Len())
	copy(audio, c.buffer.Bytes())
	c.buffer.Reset()

	text, err := c.TranscribeBytes(context.Background(), audio)
	if err != nil {
		session.SetState(asr.StateFailed)
		if c.onErr != nil {
			c.onErr(err)
		}
		return err
	}

	if c.onDelta != nil {
		c.onDelta(asr.TranscriptDelta{Text: text, IsFinal: true})
	}
	session.SetState(asr.StateCompleted)
	return nil
}

// TranscribeBytes runs the full upload-then-poll flow for one audio
// payload and returns the completed transcript text.
func (c *Client) TranscribeBytes(ctx context.Context, audio []byte) (string, error) {
	uploadURL, err := c.upload(ctx, audio)
	if err != nil {
		return "", err
	}

	jobID, err := c.createTranscript(ctx, uploadURL)
	if err != nil {
		return "", err
	}

	return c.pollTranscript(ctx, jobID)
}

// upload posts raw audio bytes and returns the vendor file URL. The
// upload is not retried; transient-retry applies to polling only.
func (c *Client) upload(ctx context.Context, audio []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/upload", bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", c.config.APIKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: upload: %v", asr.ErrConnectionError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read upload response: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return "", fmt.Errorf("%w: %s", asr.ErrAuthenticationFailed, string(body))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload failed: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		UploadURL string `json:"upload_url"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse upload response: %w", err)
	}
	if result.UploadURL == "" {
		return "", fmt.Errorf("upload response missing upload_url")
	}
	return result.UploadURL, nil
}

// createTranscript submits the transcription job and returns its ID.
func (c *Client) createTranscript(ctx context.Context, audioURL string) (string, error) {
	params := transcriptParams{
		AudioURL:          audioURL,
		SpeechModel:       "best",
		Punctuate:         true,
		FormatText:        true,
		LanguageDetection: c.config.Language == "",
		Disfluencies:      false,
		FilterProfanity:   true,
	}
	if c.config.Language != "" {
		lang := c.config.Language
		params.LanguageCode = &lang
		params.LanguageDetection = false
	}

	payload, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to marshal transcript params: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/transcript", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create transcript request: %w", err)
	}
	req.Header.Set("Authorization", c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: create transcript: %v", asr.ErrConnectionError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read transcript response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("create transcript failed: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var status transcriptStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return "", fmt.Errorf("failed to parse transcript response: %w", err)
	}
	if status.ID == "" {
		return "", fmt.Errorf("transcript response missing id")
	}
	return status.ID, nil
}

// pollTranscript queries the job status on the fixed interval until a
// terminal state. Transient poll failures consume the same budget;
// exhausting it raises the transcription-timeout error.
func (c *Client) pollTranscript(ctx context.Context, jobID string) (string, error) {
	for attempt := 0; attempt < c.config.PollBudget; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.config.PollInterval):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		status, err := c.getTranscript(ctx, jobID)
		if err != nil {
			continue // network blip, budget keeps counting down
		}

		switch status.Status {
		case "completed":
			return status.Text, nil
		case "error":
			return "", &asr.VendorError{
				Provider: ProviderName,
				Message:  status.Error,
				Err:      asr.ErrVendorTaskFailed,
			}
		}
	}

	return "", fmt.Errorf("%w: job %s not terminal after %d polls", asr.ErrTranscriptionTimeout, jobID, c.config.PollBudget)
}

// getTranscript fetches the current job status.
func (c *Client) getTranscript(ctx context.Context, jobID string) (*transcriptStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/transcript/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create status request: %w", err)
	}
	req.Header.Set("Authorization", c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: poll: %v", asr.ErrConnectionError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read status response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("poll failed: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var status transcriptStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status response: %w", err)
	}
	return &status, nil
}
