package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete gateway configuration
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Audio     AudioConfig     `yaml:"audio"`
	Providers ProvidersConfig `yaml:"providers"`
	History   HistoryConfig   `yaml:"history"`
	Queue     QueueConfig     `yaml:"queue"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
}

// AudioConfig contains audio processing parameters
type AudioConfig struct {
	SampleRate     int `yaml:"sample_rate"`
	Channels       int `yaml:"channels"`
	BitDepth       int `yaml:"bit_depth"`
	FrameSize      int `yaml:"frame_size"`      // bytes per streamed frame
	SessionTimeout int `yaml:"session_timeout"` // seconds of idle before cleanup
}

// ProvidersConfig selects and configures the recognition vendors
type ProvidersConfig struct {
	Active     string           `yaml:"active"`
	Whisper    WhisperConfig    `yaml:"whisper"`
	AssemblyAI AssemblyAIConfig `yaml:"assemblyai"`
	Aliyun     AliyunConfig     `yaml:"aliyun"`
	Xunfei     XunfeiConfig     `yaml:"xunfei"`
}

// WhisperConfig contains the Whisper-compatible relay upstream settings
type WhisperConfig struct {
	Endpoint   string `yaml:"endpoint"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	Language   string `yaml:"language"`
	Timeout    int    `yaml:"timeout"` // seconds, hard wall-clock bound
	MaxRetries int    `yaml:"max_retries"`
	RetryDelay int    `yaml:"retry_delay"` // seconds between attempts
}

// AssemblyAIConfig contains upload-and-poll vendor settings
type AssemblyAIConfig struct {
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	Language     string `yaml:"language"`
	PollInterval int    `yaml:"poll_interval"` // seconds
	PollBudget   int    `yaml:"poll_budget"`
	MaxFileSize  int64  `yaml:"max_file_size"` // bytes
}

// AliyunConfig contains Alibaba NLS streaming vendor settings
type AliyunConfig struct {
	AccessKeyID     string `yaml:"access_key_id"`
	AccessKeySecret string `yaml:"access_key_secret"`
	AppKey          string `yaml:"app_key"`
	GatewayURL      string `yaml:"gateway_url"`
	TokenURL        string `yaml:"token_url"`
}

// XunfeiConfig contains iFlytek streaming vendor settings
type XunfeiConfig struct {
	AppID      string `yaml:"app_id"`
	APIKey     string `yaml:"api_key"`
	APISecret  string `yaml:"api_secret"`
	GatewayURL string `yaml:"gateway_url"`
	Language   string `yaml:"language"`
	Accent     string `yaml:"accent"`
	VadEOS     int    `yaml:"vad_eos"` // milliseconds
	Punctuate  bool   `yaml:"punctuate"`
}

// HistoryConfig contains transcript persistence settings
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

// QueueConfig contains upload queue settings
type QueueConfig struct {
	Capacity int `yaml:"capacity"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Providers.Validate(); err != nil {
		return fmt.Errorf("providers config: %w", err)
	}

	if err := c.History.Validate(); err != nil {
		return fmt.Errorf("history config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Port < 1 || h.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", h.Port)
	}

	if h.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate != 16000 {
		return fmt.Errorf("sample_rate must be 16000 Hz for recognition vendors, got %d", a.SampleRate)
	}

	if a.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono), got %d", a.Channels)
	}

	if a.BitDepth != 16 {
		return fmt.Errorf("bit_depth must be 16, got %d", a.BitDepth)
	}

	if a.FrameSize < 320 {
		return fmt.Errorf("frame_size must be at least 320 bytes, got %d", a.FrameSize)
	}

	if a.SessionTimeout < 1 {
		return fmt.Errorf("session_timeout must be at least 1 second, got %d", a.SessionTimeout)
	}

	return nil
}

// Validate validates provider configuration. Only the active provider's
// section must be complete; inactive providers may stay unconfigured.
func (p *ProvidersConfig) Validate() error {
	switch p.Active {
	case "whisper":
		return p.Whisper.Validate()
	case "assemblyai":
		return p.AssemblyAI.Validate()
	case "aliyun":
		return p.Aliyun.Validate()
	case "xunfei":
		return p.Xunfei.Validate()
	default:
		return fmt.Errorf("active must be one of [whisper, assemblyai, aliyun, xunfei], got '%s'", p.Active)
	}
}

// Validate validates Whisper relay configuration
func (w *WhisperConfig) Validate() error {
	if w.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if w.APIKey == "" {
		return fmt.Errorf("api_key cannot be empty")
	}

	if w.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", w.Timeout)
	}

	if w.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", w.MaxRetries)
	}

	return nil
}

// Validate validates AssemblyAI configuration
func (a *AssemblyAIConfig) Validate() error {
	if a.APIKey == "" {
		return fmt.Errorf("api_key cannot be empty")
	}

	if a.PollInterval < 1 {
		return fmt.Errorf("poll_interval must be at least 1 second, got %d", a.PollInterval)
	}

	if a.PollBudget < 1 {
		return fmt.Errorf("poll_budget must be at least 1, got %d", a.PollBudget)
	}

	return nil
}

// Validate validates Aliyun NLS configuration
func (a *AliyunConfig) Validate() error {
	if a.AccessKeyID == "" {
		return fmt.Errorf("access_key_id cannot be empty")
	}

	if a.AccessKeySecret == "" {
		return fmt.Errorf("access_key_secret cannot be empty")
	}

	if a.AppKey == "" {
		return fmt.Errorf("app_key cannot be empty")
	}

	return nil
}

// Validate validates Xunfei configuration
func (x *XunfeiConfig) Validate() error {
	if x.AppID == "" {
		return fmt.Errorf("app_id cannot be empty")
	}

	if x.APIKey == "" {
		return fmt.Errorf("api_key cannot be empty")
	}

	if x.APISecret == "" {
		return fmt.Errorf("api_secret cannot be empty")
	}

	if x.VadEOS < 0 {
		return fmt.Errorf("vad_eos cannot be negative, got %d", x.VadEOS)
	}

	return nil
}

// Validate validates history configuration
func (h *HistoryConfig) Validate() error {
	if h.Enabled && h.DBPath == "" {
		return fmt.Errorf("db_path cannot be empty when history is enabled")
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetSessionTimeoutDuration returns the idle session timeout as a time.Duration
func (a *AudioConfig) GetSessionTimeoutDuration() time.Duration {
	return time.Duration(a.SessionTimeout) * time.Second
}

// GetTimeoutDuration returns the upstream request timeout as a time.Duration
func (w *WhisperConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(w.Timeout) * time.Second
}

// GetRetryDelayDuration returns the delay between relay retries as a time.Duration
func (w *WhisperConfig) GetRetryDelayDuration() time.Duration {
	return time.Duration(w.RetryDelay) * time.Second
}

// GetPollIntervalDuration returns the poll interval as a time.Duration
func (a *AssemblyAIConfig) GetPollIntervalDuration() time.Duration {
	return time.Duration(a.PollInterval) * time.Second
}
