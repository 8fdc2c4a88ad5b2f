package aliyun

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/skypro1111/asr-gateway/internal/asr"
)

type recordedFrame struct {
	messageType int
	data        []byte
}

// gatewayScript runs after the TranscriptionStarted confirmation and
// owns the connection until it returns.
type gatewayScript func(conn *websocket.Conn, start wireMessage)

// mockGateway emulates the NLS WebSocket gateway: it validates the
// handshake, confirms the start frame and either records incoming
// messages or hands the connection to a per-test script.
type mockGateway struct {
	t      *testing.T
	script gatewayScript

	mu     sync.Mutex
	frames []recordedFrame
}

func (g *mockGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if got := r.URL.Query().Get("token"); got != "test-token" {
		g.t.Errorf("Expected token query %q, got %q", "test-token", got)
	}
	if got := r.URL.Query().Get("appkey"); got != "test-appkey" {
		g.t.Errorf("Expected appkey query %q, got %q", "test-appkey", got)
	}

	var upgrader websocket.Upgrader
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var start wireMessage
	if err := conn.ReadJSON(&start); err != nil {
		return
	}
	if start.Header.Name != "StartTranscription" {
		g.t.Errorf("Expected StartTranscription first, got %q", start.Header.Name)
	}
	var payload startPayload
	if err := json.Unmarshal(start.Payload, &payload); err != nil {
		g.t.Errorf("Expected decodable start payload, got %v", err)
	}
	if payload.Format != "pcm" || payload.SampleRate != 16000 {
		g.t.Errorf("Expected pcm/16000 start payload, got %s/%d", payload.Format, payload.SampleRate)
	}

	conn.WriteJSON(wireMessage{Header: messageHeader{
		MessageID: start.Header.MessageID,
		TaskID:    start.Header.TaskID,
		Namespace: namespace,
		Name:      eventTranscriptionStarted,
	}})

	if g.script != nil {
		g.script(conn, start)
		return
	}

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		g.mu.Lock()
		g.frames = append(g.frames, recordedFrame{messageType: mt, data: data})
		g.mu.Unlock()

		if mt == websocket.TextMessage {
			var msg wireMessage
			json.Unmarshal(data, &msg)
			if msg.Header.Name == "StopTranscription" {
				conn.WriteJSON(wireMessage{Header: messageHeader{
					TaskID:    start.Header.TaskID,
					Namespace: namespace,
					Name:      eventCompleted,
				}})
				return
			}
		}
	}
}

func (g *mockGateway) recorded() []recordedFrame {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]recordedFrame, len(g.frames))
	copy(out, g.frames)
	return out
}

func newTestTranscriber(t *testing.T, script gatewayScript) (*Transcriber, *mockGateway) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<CreateTokenResponse><Token><Id>test-token</Id></Token></CreateTokenResponse>`))
	}))
	t.Cleanup(tokenServer.Close)

	gw := &mockGateway{t: t, script: script}
	gwServer := httptest.NewServer(gw)
	t.Cleanup(gwServer.Close)

	tr, err := NewTranscriber(Config{
		AccessKeyID:     "test-ak",
		AccessKeySecret: "test-secret",
		AppKey:          "test-appkey",
		GatewayURL:      "ws" + strings.TrimPrefix(gwServer.URL, "http"),
		TokenURL:        tokenServer.URL,
	})
	if err != nil {
		t.Fatalf("Failed to create transcriber: %v", err)
	}
	return tr, gw
}

func resultFrame(taskID, name, text string) wireMessage {
	payload, _ := json.Marshal(resultPayload{Result: text})
	return wireMessage{
		Header: messageHeader{
			TaskID:    taskID,
			Namespace: namespace,
			Name:      name,
		},
		Payload: payload,
	}
}

func TestFeedFrameOrdering(t *testing.T) {
	tr, gw := newTestTranscriber(t, nil)

	session, err := tr.Start(context.Background(), func(asr.TranscriptDelta) {}, func(error) {})
	if err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	frames := make([][]byte, 3)
	for i := range frames {
		frame := make([]byte, maxFrameSize)
		for j := range frame {
			frame[j] = byte(i + 1)
		}
		frames[i] = frame
		if err := tr.Feed(session, frame); err != nil {
			t.Fatalf("Failed to feed frame %d: %v", i, err)
		}
	}

	if err := tr.Stop(session); err != nil {
		t.Fatalf("Failed to stop session: %v", err)
	}

	recorded := gw.recorded()
	if len(recorded) != 4 {
		t.Fatalf("Expected 4 messages (3 audio + stop), got %d", len(recorded))
	}
	for i := 0; i < 3; i++ {
		if recorded[i].messageType != websocket.BinaryMessage {
			t.Errorf("Expected message %d to be binary, got type %d", i, recorded[i].messageType)
		}
		if !bytes.Equal(recorded[i].data, frames[i]) {
			t.Errorf("Expected message %d to carry frame %d unmodified", i, i)
		}
	}
	if recorded[3].messageType != websocket.TextMessage {
		t.Fatalf("Expected final message to be a control frame, got type %d", recorded[3].messageType)
	}
	var stop wireMessage
	if err := json.Unmarshal(recorded[3].data, &stop); err != nil {
		t.Fatalf("Failed to decode stop frame: %v", err)
	}
	if stop.Header.Name != "StopTranscription" {
		t.Errorf("Expected StopTranscription, got %q", stop.Header.Name)
	}
	if stop.Header.Namespace != namespace {
		t.Errorf("Expected namespace %q, got %q", namespace, stop.Header.Namespace)
	}

	if session.State() != asr.StateCompleted {
		t.Errorf("Expected state %v, got %v", asr.StateCompleted, session.State())
	}

	// Second stop is a no-op.
	if err := tr.Stop(session); err != nil {
		t.Errorf("Expected idempotent stop, got %v", err)
	}
	if got := len(gw.recorded()); got != 4 {
		t.Errorf("Expected no extra frames after second stop, got %d", got)
	}
}

func TestFeedSplitsOversizedPayload(t *testing.T) {
	tr, gw := newTestTranscriber(t, nil)

	session, err := tr.Start(context.Background(), func(asr.TranscriptDelta) {}, func(error) {})
	if err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	payload := make([]byte, 2*maxFrameSize+600)
	if err := tr.Feed(session, payload); err != nil {
		t.Fatalf("Failed to feed payload: %v", err)
	}
	tr.Stop(session)

	recorded := gw.recorded()
	if len(recorded) != 4 {
		t.Fatalf("Expected 3 audio chunks + stop, got %d messages", len(recorded))
	}
	wantSizes := []int{maxFrameSize, maxFrameSize, 600}
	for i, want := range wantSizes {
		if len(recorded[i].data) != want {
			t.Errorf("Expected chunk %d of %d bytes, got %d", i, want, len(recorded[i].data))
		}
	}
}

func TestResultFrameDeltas(t *testing.T) {
	script := func(conn *websocket.Conn, start wireMessage) {
		taskID := start.Header.TaskID
		conn.WriteJSON(resultFrame(taskID, eventResultChanged, "hel"))
		conn.WriteJSON(resultFrame(taskID, eventSentenceEnd, "hello."))
		conn.WriteJSON(resultFrame(taskID, eventCompleted, ""))
	}
	tr, _ := newTestTranscriber(t, script)

	var mu sync.Mutex
	var deltas []asr.TranscriptDelta
	done := make(chan struct{})

	session, err := tr.Start(context.Background(), func(d asr.TranscriptDelta) {
		mu.Lock()
		deltas = append(deltas, d)
		mu.Unlock()
		if d.IsFinal {
			close(done)
		}
	}, func(err error) {
		t.Errorf("Unexpected session error: %v", err)
	})
	if err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for final delta")
	}

	mu.Lock()
	defer mu.Unlock()
	want := []asr.TranscriptDelta{
		{Text: "hel", Replace: true},
		{Text: "hello.", Replace: true},
		{Text: ""},
		{Text: "", IsFinal: true},
	}
	if len(deltas) != len(want) {
		t.Fatalf("Expected %d deltas, got %d: %+v", len(want), len(deltas), deltas)
	}
	for i, w := range want {
		if deltas[i] != w {
			t.Errorf("Expected delta %d to be %+v, got %+v", i, w, deltas[i])
		}
	}
	if session.State() != asr.StateCompleted {
		t.Errorf("Expected state %v, got %v", asr.StateCompleted, session.State())
	}
}

func TestVendorCompletedClosesTransport(t *testing.T) {
	serverClosed := make(chan struct{})
	script := func(conn *websocket.Conn, start wireMessage) {
		// Complete the task without a StopTranscription from the client,
		// then block until the client side closes the socket.
		conn.WriteJSON(resultFrame(start.Header.TaskID, eventCompleted, ""))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				close(serverClosed)
				return
			}
		}
	}
	tr, _ := newTestTranscriber(t, script)

	done := make(chan struct{})
	session, err := tr.Start(context.Background(), func(d asr.TranscriptDelta) {
		if d.IsFinal {
			close(done)
		}
	}, func(err error) {
		t.Errorf("Unexpected session error: %v", err)
	})
	if err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for final delta")
	}

	select {
	case <-serverClosed:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected the transport to close after vendor-side completion")
	}

	if session.State() != asr.StateCompleted {
		t.Errorf("Expected state %v, got %v", asr.StateCompleted, session.State())
	}
	if err := tr.Stop(session); err != nil {
		t.Errorf("Expected stop after vendor completion to be a no-op, got %v", err)
	}

	tr.mu.Lock()
	leaked := tr.conn != nil
	tr.mu.Unlock()
	if leaked {
		t.Error("Expected connection reference to be cleared after completion")
	}
}

func TestTaskFailedSurfacesVendorError(t *testing.T) {
	script := func(conn *websocket.Conn, start wireMessage) {
		conn.WriteJSON(wireMessage{Header: messageHeader{
			TaskID:     start.Header.TaskID,
			Namespace:  namespace,
			Name:       eventTaskFailed,
			Status:     41010105,
			StatusText: "audio format invalid",
		}})
	}
	tr, _ := newTestTranscriber(t, script)

	errCh := make(chan error, 1)
	session, err := tr.Start(context.Background(), func(asr.TranscriptDelta) {}, func(err error) {
		errCh <- err
	})
	if err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	select {
	case err := <-errCh:
		var vendorErr *asr.VendorError
		if !errors.As(err, &vendorErr) {
			t.Fatalf("Expected VendorError, got %v", err)
		}
		if vendorErr.Provider != ProviderName {
			t.Errorf("Expected provider %q, got %q", ProviderName, vendorErr.Provider)
		}
		if vendorErr.Code != 41010105 {
			t.Errorf("Expected code 41010105, got %d", vendorErr.Code)
		}
		if !errors.Is(err, asr.ErrVendorTaskFailed) {
			t.Errorf("Expected ErrVendorTaskFailed in chain, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for vendor error")
	}

	if session.State() != asr.StateFailed {
		t.Errorf("Expected state %v, got %v", asr.StateFailed, session.State())
	}
}

func TestTaskFailedDuringHandshake(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<CreateTokenResponse><Token><Id>test-token</Id></Token></CreateTokenResponse>`))
	}))
	defer tokenServer.Close()

	gwServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var upgrader websocket.Upgrader
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var start wireMessage
		if err := conn.ReadJSON(&start); err != nil {
			return
		}
		conn.WriteJSON(wireMessage{Header: messageHeader{
			TaskID:     start.Header.TaskID,
			Namespace:  namespace,
			Name:       eventTaskFailed,
			Status:     40000001,
			StatusText: "invalid appkey",
		}})
	}))
	defer gwServer.Close()

	tr, err := NewTranscriber(Config{
		AccessKeyID:     "test-ak",
		AccessKeySecret: "test-secret",
		AppKey:          "bad-appkey",
		GatewayURL:      "ws" + strings.TrimPrefix(gwServer.URL, "http"),
		TokenURL:        tokenServer.URL,
	})
	if err != nil {
		t.Fatalf("Failed to create transcriber: %v", err)
	}

	_, err = tr.Start(context.Background(), func(asr.TranscriptDelta) {}, func(error) {})
	var vendorErr *asr.VendorError
	if !errors.As(err, &vendorErr) {
		t.Fatalf("Expected VendorError from start, got %v", err)
	}
	if vendorErr.Code != 40000001 {
		t.Errorf("Expected code 40000001, got %d", vendorErr.Code)
	}
}

func TestFeedWithoutSession(t *testing.T) {
	tr, err := NewTranscriber(Config{
		AccessKeyID:     "test-ak",
		AccessKeySecret: "test-secret",
		AppKey:          "test-appkey",
	})
	if err != nil {
		t.Fatalf("Failed to create transcriber: %v", err)
	}

	stray := asr.NewSession(ProviderName)
	if err := tr.Feed(stray, []byte{0, 1}); !errors.Is(err, asr.ErrSessionNotReady) {
		t.Errorf("Expected ErrSessionNotReady, got %v", err)
	}
}

func TestNewTranscriberValidation(t *testing.T) {
	if _, err := NewTranscriber(Config{AppKey: "k"}); err == nil {
		t.Error("Expected error for missing access key pair")
	}
	if _, err := NewTranscriber(Config{AccessKeyID: "a", AccessKeySecret: "s"}); err == nil {
		t.Error("Expected error for missing app key")
	}
}
