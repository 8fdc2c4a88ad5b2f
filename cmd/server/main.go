package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skypro1111/asr-gateway/internal/asr"
	"github.com/skypro1111/asr-gateway/internal/asr/aliyun"
	"github.com/skypro1111/asr-gateway/internal/asr/assemblyai"
	"github.com/skypro1111/asr-gateway/internal/asr/whisper"
	"github.com/skypro1111/asr-gateway/internal/asr/xunfei"
	"github.com/skypro1111/asr-gateway/internal/config"
	"github.com/skypro1111/asr-gateway/internal/history"
	"github.com/skypro1111/asr-gateway/internal/metrics"
	"github.com/skypro1111/asr-gateway/internal/queue"
	"github.com/skypro1111/asr-gateway/internal/server"
	"github.com/skypro1111/asr-gateway/internal/session"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "asr-gateway"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.String("http_address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		slog.String("active_provider", cfg.Providers.Active),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Int("frame_size", cfg.Audio.FrameSize),
		slog.Bool("history_enabled", cfg.History.Enabled),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Register provider adapters
	registry, err := buildRegistry(cfg)
	if err != nil {
		logger.Error("Failed to register provider adapters", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Provider adapters registered",
		slog.Any("providers", registry.Names()),
	)

	// Open history store (if enabled)
	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(cfg.History.DBPath)
		if err != nil {
			logger.Error("Failed to open history store", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer store.Close()
		logger.Info("History store opened", slog.String("db_path", cfg.History.DBPath))
	}

	// Initialize session manager
	sessionMgr := session.NewManager(registry, store, appMetrics, logger,
		cfg.Audio.GetSessionTimeoutDuration())
	logger.Info("Session manager initialized",
		slog.Duration("session_timeout", cfg.Audio.GetSessionTimeoutDuration()),
	)

	// Relay client for the transcription endpoint. Left nil when the
	// whisper section is not configured; the endpoint then responds 503.
	var relay *whisper.Client
	if cfg.Providers.Whisper.Validate() == nil {
		relay, err = whisper.NewClient(whisper.Config{
			Endpoint:   cfg.Providers.Whisper.Endpoint,
			APIKey:     cfg.Providers.Whisper.APIKey,
			Model:      cfg.Providers.Whisper.Model,
			Language:   cfg.Providers.Whisper.Language,
			Timeout:    cfg.Providers.Whisper.GetTimeoutDuration(),
			MaxRetries: cfg.Providers.Whisper.MaxRetries,
			RetryDelay: cfg.Providers.Whisper.GetRetryDelayDuration(),
		})
		if err != nil {
			logger.Error("Failed to create relay client", slog.String("error", err.Error()))
			os.Exit(1)
		}
	} else {
		logger.Warn("Whisper relay not configured, /v1/transcriptions disabled")
	}

	// Upload-and-poll client backs the upload queue
	var uploadClient *assemblyai.Client
	if cfg.Providers.AssemblyAI.Validate() == nil {
		uploadClient, err = assemblyai.NewClient(assemblyai.Config{
			APIKey:       cfg.Providers.AssemblyAI.APIKey,
			BaseURL:      cfg.Providers.AssemblyAI.BaseURL,
			Language:     cfg.Providers.AssemblyAI.Language,
			PollInterval: cfg.Providers.AssemblyAI.GetPollIntervalDuration(),
			PollBudget:   cfg.Providers.AssemblyAI.PollBudget,
			MaxFileSize:  cfg.Providers.AssemblyAI.MaxFileSize,
		})
		if err != nil {
			logger.Error("Failed to create upload client", slog.String("error", err.Error()))
			os.Exit(1)
		}
	} else {
		logger.Warn("AssemblyAI not configured, upload jobs will fail")
	}

	uploads := queue.New(func(ctx context.Context, label string, data []byte) (string, error) {
		if uploadClient == nil {
			return "", fmt.Errorf("upload provider not configured")
		}
		start := time.Now()
		text, err := uploadClient.TranscribeBytes(ctx, data)
		appMetrics.RecordVendorRequest(assemblyai.ProviderName, "transcribe",
			time.Since(start).Seconds(), err)
		if err != nil {
			appMetrics.RecordJobProcessed("failed")
			return "", err
		}
		appMetrics.RecordJobProcessed("done")
		if store != nil && text != "" {
			if _, err := store.Append(label, text, []history.SourceFile{{Name: label, Size: int64(len(data))}}); err != nil {
				logger.Error("Failed to persist upload transcript",
					slog.String("label", label),
					slog.String("error", err.Error()),
				)
			}
		}
		return text, nil
	}, cfg.Queue.Capacity, logger)
	logger.Info("Upload queue initialized", slog.Int("capacity", cfg.Queue.Capacity))

	// Initialize HTTP API server
	opts := server.Options{
		Config:     cfg,
		Relay:      relay,
		SessionMgr: sessionMgr,
		Uploads:    uploads,
		Store:      store,
		Metrics:    appMetrics,
	}
	if uploadClient != nil {
		opts.Validator = uploadClient
	}
	httpServer := server.NewHTTPServer(opts, logger)
	logger.Info("HTTP API server initialized",
		slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
	)

	if err := httpServer.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...")

	sig := <-sigChan
	logger.Info("Received shutdown signal", slog.String("signal", sig.String()))

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	// Drain the upload queue, then close recognition sessions
	uploads.Shutdown()
	sessionMgr.Shutdown()

	logger.Info("Service stopped")
}

// buildRegistry registers a factory for every configured provider.
// Factories validate credentials lazily so unconfigured providers only
// fail when selected.
func buildRegistry(cfg *config.Config) (*asr.Registry, error) {
	registry := asr.NewRegistry()

	if err := registry.Register(whisper.ProviderName, func() (asr.Adapter, error) {
		return whisper.NewClient(whisper.Config{
			Endpoint:   cfg.Providers.Whisper.Endpoint,
			APIKey:     cfg.Providers.Whisper.APIKey,
			Model:      cfg.Providers.Whisper.Model,
			Language:   cfg.Providers.Whisper.Language,
			Timeout:    cfg.Providers.Whisper.GetTimeoutDuration(),
			MaxRetries: cfg.Providers.Whisper.MaxRetries,
			RetryDelay: cfg.Providers.Whisper.GetRetryDelayDuration(),
		})
	}); err != nil {
		return nil, err
	}

	if err := registry.Register(assemblyai.ProviderName, func() (asr.Adapter, error) {
		return assemblyai.NewClient(assemblyai.Config{
			APIKey:       cfg.Providers.AssemblyAI.APIKey,
			BaseURL:      cfg.Providers.AssemblyAI.BaseURL,
			Language:     cfg.Providers.AssemblyAI.Language,
			PollInterval: cfg.Providers.AssemblyAI.GetPollIntervalDuration(),
			PollBudget:   cfg.Providers.AssemblyAI.PollBudget,
			MaxFileSize:  cfg.Providers.AssemblyAI.MaxFileSize,
		})
	}); err != nil {
		return nil, err
	}

	if err := registry.Register(aliyun.ProviderName, func() (asr.Adapter, error) {
		return aliyun.NewTranscriber(aliyun.Config{
			AccessKeyID:     cfg.Providers.Aliyun.AccessKeyID,
			AccessKeySecret: cfg.Providers.Aliyun.AccessKeySecret,
			AppKey:          cfg.Providers.Aliyun.AppKey,
			GatewayURL:      cfg.Providers.Aliyun.GatewayURL,
			TokenURL:        cfg.Providers.Aliyun.TokenURL,
		})
	}); err != nil {
		return nil, err
	}

	if err := registry.Register(xunfei.ProviderName, func() (asr.Adapter, error) {
		return xunfei.NewTranscriber(xunfei.Config{
			AppID:      cfg.Providers.Xunfei.AppID,
			APIKey:     cfg.Providers.Xunfei.APIKey,
			APISecret:  cfg.Providers.Xunfei.APISecret,
			GatewayURL: cfg.Providers.Xunfei.GatewayURL,
			Language:   cfg.Providers.Xunfei.Language,
			Accent:     cfg.Providers.Xunfei.Accent,
			VadEOS:     cfg.Providers.Xunfei.VadEOS,
			Punctuate:  cfg.Providers.Xunfei.Punctuate,
		})
	}); err != nil {
		return nil, err
	}

	return registry, nil
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
