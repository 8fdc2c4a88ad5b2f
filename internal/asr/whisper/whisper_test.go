package whisper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/skypro1111/asr-gateway/internal/asr"
)

func testConfig(endpoint string) Config {
	return Config{
		Endpoint:   endpoint,
		APIKey:     "test-key",
		Model:      "whisper-1",
		Timeout:    5 * time.Second,
		MaxRetries: 2,
		RetryDelay: 10 * time.Millisecond,
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{APIKey: "k"}); err == nil {
		t.Error("Expected error for empty endpoint")
	}
	if _, err := NewClient(Config{Endpoint: "http://x"}); err == nil {
		t.Error("Expected error for empty API key")
	}

	client, err := NewClient(Config{Endpoint: "http://x", APIKey: "k"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if client.config.Model != "whisper-1" {
		t.Errorf("Expected default model whisper-1, got %s", client.config.Model)
	}
}

func TestTranscribeForwardsMultipart(t *testing.T) {
	var gotAuth, gotModel, gotLanguage, gotFilename string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("Failed to parse multipart form: %v", err)
		}
		gotModel = r.FormValue("model")
		gotLanguage = r.FormValue("language")

		_, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("Missing file part: %v", err)
		}
		gotFilename = header.Filename

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"hello world"}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	resp, err := client.Transcribe(context.Background(), []byte("pcm-audio"), Request{
		Filename: "take1.wav",
		Language: "en",
	})
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	if resp.Text != "hello world" {
		t.Errorf("Expected text 'hello world', got '%s'", resp.Text)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Expected bearer auth header, got '%s'", gotAuth)
	}
	if gotModel != "whisper-1" {
		t.Errorf("Expected model whisper-1, got '%s'", gotModel)
	}
	if gotLanguage != "en" {
		t.Errorf("Expected language en, got '%s'", gotLanguage)
	}
	if gotFilename != "take1.wav" {
		t.Errorf("Expected filename take1.wav, got '%s'", gotFilename)
	}
}

func TestTranscribeRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "upstream overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"text":"recovered"}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	resp, err := client.Transcribe(context.Background(), []byte("audio"), Request{})
	if err != nil {
		t.Fatalf("Expected success after retries, got: %v", err)
	}
	if resp.Text != "recovered" {
		t.Errorf("Expected text 'recovered', got '%s'", resp.Text)
	}
	if calls.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls.Load())
	}
}

func TestTranscribeAttemptBudget(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "always down", http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	if _, err := client.Transcribe(context.Background(), []byte("audio"), Request{}); err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	// MaxRetries=2 means 3 attempts total, never more
	if calls.Load() != 3 {
		t.Errorf("Expected exactly 3 attempts, got %d", calls.Load())
	}
}

func TestTranscribeAuthFailureNotRetried(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	_, err = client.Transcribe(context.Background(), []byte("audio"), Request{})
	if !errors.Is(err, asr.ErrAuthenticationFailed) {
		t.Errorf("Expected ErrAuthenticationFailed, got: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("Auth failure should not be retried, got %d attempts", calls.Load())
	}
}

func TestAdapterLifecycle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text":"buffered audio transcript"}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	var gotDelta *asr.TranscriptDelta
	session, err := client.Start(context.Background(), func(delta asr.TranscriptDelta) {
		gotDelta = &delta
	}, nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if session.State() != asr.StateActive {
		t.Errorf("Expected active state, got %v", session.State())
	}

	if err := client.Feed(session, []byte("chunk-1")); err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if err := client.Feed(session, []byte("chunk-2")); err != nil {
		t.Fatalf("Feed failed: %v", err)
	}

	if err := client.Stop(session); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if session.State() != asr.StateCompleted {
		t.Errorf("Expected completed state, got %v", session.State())
	}
	if gotDelta == nil {
		t.Fatal("Expected a final delta")
	}
	if !gotDelta.IsFinal {
		t.Error("Expected delta to be final")
	}
	if gotDelta.Text != "buffered audio transcript" {
		t.Errorf("Unexpected delta text: %s", gotDelta.Text)
	}

	// Second Stop is a no-op
	if err := client.Stop(session); err != nil {
		t.Errorf("Second Stop should be a no-op, got: %v", err)
	}

	// Feed after Stop fails with SessionNotReady
	if err := client.Feed(session, []byte("late")); err != asr.ErrSessionNotReady {
		t.Errorf("Expected ErrSessionNotReady after stop, got: %v", err)
	}
}

func TestFeedBeforeStart(t *testing.T) {
	client, err := NewClient(testConfig("http://localhost:1"))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	session := asr.NewSession(ProviderName)
	if err := client.Feed(session, []byte("audio")); err != asr.ErrSessionNotReady {
		t.Errorf("Expected ErrSessionNotReady, got: %v", err)
	}
}
