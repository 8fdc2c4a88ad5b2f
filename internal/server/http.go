package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skypro1111/asr-gateway/internal/asr"
	"github.com/skypro1111/asr-gateway/internal/asr/whisper"
	"github.com/skypro1111/asr-gateway/internal/config"
	"github.com/skypro1111/asr-gateway/internal/history"
	"github.com/skypro1111/asr-gateway/internal/metrics"
	"github.com/skypro1111/asr-gateway/internal/queue"
	"github.com/skypro1111/asr-gateway/internal/session"
)

// maxRelayBody bounds the multipart body accepted by the relay and
// upload endpoints.
const maxRelayBody = 100 << 20 // 100 MB

// Validator checks a file before it is accepted for upload. Satisfied
// by the upload-and-poll adapter, which knows the vendor's supported
// formats and size limit.
type Validator interface {
	ValidateFile(filename string, size int64) error
}

// HTTPServer provides the gateway's HTTP API
type HTTPServer struct {
	server     *http.Server
	logger     *slog.Logger
	config     *config.Config
	relay      *whisper.Client
	sessionMgr *session.Manager
	uploads    *queue.Queue
	validator  Validator
	store      *history.Store
	metrics    *metrics.Metrics

	startTime time.Time
}

// Options wires the server's collaborators. Store and Validator may be
// nil when the corresponding feature is disabled.
type Options struct {
	Config     *config.Config
	Relay      *whisper.Client
	SessionMgr *session.Manager
	Uploads    *queue.Queue
	Validator  Validator
	Store      *history.Store
	Metrics    *metrics.Metrics
}

// NewHTTPServer creates the gateway's HTTP API server
func NewHTTPServer(opts Options, logger *slog.Logger) *HTTPServer {
	h := &HTTPServer{
		logger:     logger,
		config:     opts.Config,
		relay:      opts.Relay,
		sessionMgr: opts.SessionMgr,
		uploads:    opts.Uploads,
		validator:  opts.Validator,
		store:      opts.Store,
		metrics:    opts.Metrics,
		startTime:  time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", opts.Config.HTTP.Address, opts.Config.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  5 * time.Minute, // uploads can be large
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Transcription relay
	mux.HandleFunc("/v1/transcriptions", h.withMetrics("/v1/transcriptions", h.handleRelay))

	// Upload queue
	mux.HandleFunc("/v1/uploads", h.withMetrics("/v1/uploads", h.handleUploads))
	mux.HandleFunc("/v1/uploads/", h.withMetrics("/v1/uploads/{id}", h.handleUploadDetail))

	// History CRUD
	mux.HandleFunc("/v1/history", h.withMetrics("/v1/history", h.handleHistory))
	mux.HandleFunc("/v1/history/", h.withMetrics("/v1/history/{id}", h.handleHistoryDetail))

	// Session lifecycle and monitoring
	mux.HandleFunc("/v1/sessions", h.withMetrics("/v1/sessions", h.handleSessions))
	mux.HandleFunc("/v1/sessions/", h.withMetrics("/v1/sessions/{id}", h.handleSessionDetail))

	// Management endpoints
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}
		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := strconv.Itoa(ww.statusCode)
		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

// writeJSON encodes v as the response body
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError sends the uniform {error, details?} envelope
func writeError(w http.ResponseWriter, status int, msg string, details string) {
	body := map[string]string{"error": msg}
	if details != "" {
		body["details"] = details
	}
	writeJSON(w, status, body)
}

// handleRelay implements POST /v1/transcriptions: the browser posts
// multipart audio here and the server forwards it upstream with its
// own credentials, returning the vendor JSON verbatim.
func (h *HTTPServer) handleRelay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	if h.relay == nil {
		writeError(w, http.StatusServiceUnavailable, "relay not configured", "")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRelayBody)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form", err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field", err.Error())
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file", err.Error())
		return
	}

	req := whisper.Request{
		Filename:       header.Filename,
		Language:       r.FormValue("language"),
		Prompt:         r.FormValue("prompt"),
		ResponseFormat: r.FormValue("response_format"),
	}
	if t := r.FormValue("temperature"); t != "" {
		temp, err := strconv.ParseFloat(t, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid temperature", err.Error())
			return
		}
		req.Temperature = temp
	}

	h.metrics.RecordRelayRequest()
	start := time.Now()

	resp, err := h.relay.Transcribe(r.Context(), audio, req)
	h.metrics.RecordVendorRequest(whisper.ProviderName, "transcribe", time.Since(start).Seconds(), err)
	if err != nil {
		h.metrics.RecordRelayFailure()
		h.logger.Error("relay request failed",
			slog.String("filename", header.Filename),
			slog.String("error", err.Error()),
		)
		writeError(w, upstreamStatus(err), "transcription failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// upstreamStatus maps adapter errors onto relay response codes
func upstreamStatus(err error) int {
	switch {
	case errors.Is(err, asr.ErrAuthenticationFailed):
		return http.StatusBadGateway
	case errors.Is(err, asr.ErrTranscriptionTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// handleUploads implements POST /v1/uploads (enqueue) and GET
// /v1/uploads (list jobs).
func (h *HTTPServer) handleUploads(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{
			"total": len(h.uploads.List()),
			"jobs":  h.uploads.List(),
		})

	case http.MethodPost:
		r.Body = http.MaxBytesReader(w, r.Body, maxRelayBody)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form", err.Error())
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing file field", err.Error())
			return
		}
		defer file.Close()

		// Validation happens before any data is read or queued so
		// unsupported or oversized files never reach the vendor.
		if h.validator != nil {
			if err := h.validator.ValidateFile(header.Filename, header.Size); err != nil {
				status := http.StatusBadRequest
				if errors.Is(err, asr.ErrFileTooLarge) {
					status = http.StatusRequestEntityTooLarge
				}
				writeError(w, status, "file rejected", err.Error())
				return
			}
		}

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read file", err.Error())
			return
		}

		job, err := h.uploads.Enqueue(header.Filename, data)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "enqueue failed", err.Error())
			return
		}
		h.metrics.SetQueueDepth(h.uploads.Depth())

		writeJSON(w, http.StatusAccepted, job)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
	}
}

// handleUploadDetail implements GET /v1/uploads/{id}
func (h *HTTPServer) handleUploadDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/uploads/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "job ID required", "")
		return
	}

	job := h.uploads.Get(id)
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found", "")
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// handleHistory implements GET /v1/history (list) and POST /v1/history
// (create a record directly, e.g. an imported transcript).
func (h *HTTPServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotFound, "history disabled", "")
		return
	}

	switch r.Method {
	case http.MethodGet:
		limit := 0
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "invalid limit", "")
				return
			}
			limit = n
		}

		records, err := h.store.List(limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "list history", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"total":   len(records),
			"records": records,
		})

	case http.MethodPost:
		var req struct {
			Title string `json:"title"`
			Text  string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body", err.Error())
			return
		}
		if req.Text == "" {
			writeError(w, http.StatusBadRequest, "text cannot be empty", "")
			return
		}
		if req.Title == "" {
			req.Title = "Untitled"
		}

		rec, err := h.store.Append(req.Title, req.Text, nil)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "create record", err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, rec)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
	}
}

// handleHistoryDetail implements GET/PATCH/DELETE /v1/history/{id}
func (h *HTTPServer) handleHistoryDetail(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotFound, "history disabled", "")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/history/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "record ID required", "")
		return
	}

	switch r.Method {
	case http.MethodGet:
		rec, err := h.store.Get(id)
		if err != nil {
			h.writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)

	case http.MethodPatch:
		var req struct {
			Title *string `json:"title"`
			Text  *string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body", err.Error())
			return
		}
		if req.Title == nil && req.Text == nil {
			writeError(w, http.StatusBadRequest, "nothing to update", "")
			return
		}

		if req.Title != nil {
			if err := h.store.Rename(id, *req.Title); err != nil {
				h.writeStoreError(w, err)
				return
			}
		}
		if req.Text != nil {
			if err := h.store.UpdateText(id, *req.Text); err != nil {
				h.writeStoreError(w, err)
				return
			}
		}

		rec, err := h.store.Get(id)
		if err != nil {
			h.writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)

	case http.MethodDelete:
		if err := h.store.Delete(id); err != nil {
			h.writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
	}
}

func (h *HTTPServer) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, http.StatusNotFound, "record not found", "")
		return
	}
	writeError(w, http.StatusInternalServerError, "history store", err.Error())
}

// handleSessions implements GET /v1/sessions (list) and POST
// /v1/sessions (open a streaming recognition session).
func (h *HTTPServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sessions := h.sessionMgr.List()
		writeJSON(w, http.StatusOK, map[string]any{
			"total":     len(sessions),
			"active":    h.sessionMgr.ActiveCount(),
			"timestamp": time.Now().UTC(),
			"sessions":  sessions,
		})

	case http.MethodPost:
		var req struct {
			Provider string `json:"provider"`
			Title    string `json:"title"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body", err.Error())
			return
		}
		if req.Provider == "" {
			req.Provider = h.config.Providers.Active
		}

		managed, err := h.sessionMgr.Start(r.Context(), req.Provider, req.Title)
		if err != nil {
			if errors.Is(err, asr.ErrUnknownProvider) {
				writeError(w, http.StatusBadRequest, "unknown provider", err.Error())
				return
			}
			writeError(w, upstreamStatus(err), "session start failed", err.Error())
			return
		}

		info, _ := h.sessionMgr.Get(managed.Session.ID)
		writeJSON(w, http.StatusCreated, info)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
	}
}

// handleSessionDetail implements GET/DELETE /v1/sessions/{id} and POST
// /v1/sessions/{id}/audio.
func (h *HTTPServer) handleSessionDetail(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/sessions/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "session ID required", "")
		return
	}

	if action == "audio" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
			return
		}
		h.handleSessionAudio(w, r, id)
		return
	}
	if action != "" {
		writeError(w, http.StatusNotFound, "not found", "")
		return
	}

	switch r.Method {
	case http.MethodGet:
		info, ok := h.sessionMgr.Get(id)
		if !ok {
			writeError(w, http.StatusNotFound, "session not found", "")
			return
		}
		writeJSON(w, http.StatusOK, info)

	case http.MethodDelete:
		if _, ok := h.sessionMgr.Get(id); !ok {
			writeError(w, http.StatusNotFound, "session not found", "")
			return
		}
		if err := h.sessionMgr.Stop(id); err != nil {
			writeError(w, http.StatusInternalServerError, "session stop", err.Error())
			return
		}
		info, _ := h.sessionMgr.Get(id)
		writeJSON(w, http.StatusOK, info)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
	}
}

// handleSessionAudio feeds one raw PCM chunk to a live session.
func (h *HTTPServer) handleSessionAudio(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := h.sessionMgr.Get(id); !ok {
		writeError(w, http.StatusNotFound, "session not found", "")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRelayBody)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read audio body", err.Error())
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "empty audio body", "")
		return
	}

	if err := h.sessionMgr.Feed(id, data); err != nil {
		if errors.Is(err, asr.ErrSessionNotReady) {
			writeError(w, http.StatusConflict, "session not ready", err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, "feed audio", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"bytes":      len(data),
	})
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	historyStatus := "disabled"
	if h.store != nil {
		historyStatus = "running"
		if _, err := h.store.Count(); err != nil {
			historyStatus = "degraded"
		}
	}

	health := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
		"service": map[string]any{
			"name":    "asr-gateway",
			"version": "1.0.0",
		},
		"components": map[string]any{
			"session_manager": map[string]any{
				"status":          "running",
				"active_sessions": h.sessionMgr.ActiveCount(),
			},
			"upload_queue": map[string]any{
				"status": "running",
				"depth":  h.uploads.Depth(),
			},
			"history": map[string]any{
				"status": historyStatus,
			},
		},
	}

	writeJSON(w, http.StatusOK, health)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	var recordCount int
	if h.store != nil {
		recordCount, _ = h.store.Count()
	}

	stats := map[string]any{
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC(),
		"sessions": map[string]any{
			"active_count": h.sessionMgr.ActiveCount(),
			"tracked":      len(h.sessionMgr.List()),
		},
		"uploads": map[string]any{
			"queue_depth": h.uploads.Depth(),
			"total_jobs":  len(h.uploads.List()),
		},
		"history": map[string]any{
			"record_count": recordCount,
		},
	}

	writeJSON(w, http.StatusOK, stats)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	// Return sanitized configuration (remove sensitive data)
	sanitizedConfig := map[string]any{
		"http": map[string]any{
			"port":    h.config.HTTP.Port,
			"address": h.config.HTTP.Address,
		},
		"audio": map[string]any{
			"sample_rate":     h.config.Audio.SampleRate,
			"channels":        h.config.Audio.Channels,
			"bit_depth":       h.config.Audio.BitDepth,
			"frame_size":      h.config.Audio.FrameSize,
			"session_timeout": h.config.Audio.SessionTimeout,
		},
		"providers": map[string]any{
			"active": h.config.Providers.Active,
			"whisper": map[string]any{
				"endpoint":    h.config.Providers.Whisper.Endpoint,
				"model":       h.config.Providers.Whisper.Model,
				"timeout":     h.config.Providers.Whisper.Timeout,
				"max_retries": h.config.Providers.Whisper.MaxRetries,
				// Note: API key is intentionally omitted for security
			},
			"assemblyai": map[string]any{
				"base_url":      h.config.Providers.AssemblyAI.BaseURL,
				"poll_interval": h.config.Providers.AssemblyAI.PollInterval,
				"poll_budget":   h.config.Providers.AssemblyAI.PollBudget,
				"max_file_size": h.config.Providers.AssemblyAI.MaxFileSize,
			},
			"aliyun": map[string]any{
				"gateway_url": h.config.Providers.Aliyun.GatewayURL,
				"token_url":   h.config.Providers.Aliyun.TokenURL,
			},
			"xunfei": map[string]any{
				"gateway_url": h.config.Providers.Xunfei.GatewayURL,
				"language":    h.config.Providers.Xunfei.Language,
				"accent":      h.config.Providers.Xunfei.Accent,
			},
		},
		"history": map[string]any{
			"enabled": h.config.History.Enabled,
			"db_path": h.config.History.DBPath,
		},
		"logging": map[string]any{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	writeJSON(w, http.StatusOK, sanitizedConfig)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found", "")
		return
	}

	apiDoc := map[string]any{
		"service": "ASR Gateway",
		"version": "1.0.0",
		"endpoints": map[string]any{
			"GET /":                        "API documentation",
			"POST /v1/transcriptions":      "Relay multipart audio to the transcription upstream",
			"GET /v1/uploads":              "List upload jobs",
			"POST /v1/uploads":             "Enqueue an audio file for transcription",
			"GET /v1/uploads/{id}":         "Get upload job status and result",
			"GET /v1/history":              "List transcript records",
			"POST /v1/history":             "Create a transcript record",
			"GET /v1/history/{id}":         "Get one transcript record",
			"PATCH /v1/history/{id}":       "Update a record's title or text",
			"DELETE /v1/history/{id}":      "Delete a transcript record",
			"GET /v1/sessions":             "List recognition sessions",
			"POST /v1/sessions":            "Open a streaming recognition session",
			"GET /v1/sessions/{id}":        "Get detailed session information",
			"POST /v1/sessions/{id}/audio": "Feed a raw audio chunk to a session",
			"DELETE /v1/sessions/{id}":     "Stop a session and persist its transcript",
			"GET /health":                  "Service health check",
			"GET /stats":                   "Service statistics",
			"GET /config":                  "Service configuration",
			"GET /metrics":                 "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	writeJSON(w, http.StatusOK, apiDoc)
}
