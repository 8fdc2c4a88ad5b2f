package aliyun

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/skypro1111/asr-gateway/internal/asr"
)

// ProviderName is the registry name for this adapter.
const ProviderName = "aliyun"

const (
	defaultGatewayURL = "wss://nls-gateway.cn-shanghai.aliyuncs.com/ws/v1"

	// maxFrameSize is the vendor's maximum binary message size; larger
	// Feed payloads are split before sending.
	maxFrameSize = 3200

	namespace = "SpeechTranscriber"

	// Result frame names echoed by the gateway.
	eventTranscriptionStarted = "TranscriptionStarted"
	eventResultChanged        = "TranscriptionResultChanged"
	eventSentenceEnd          = "SentenceEnd"
	eventCompleted            = "TranscriptionCompleted"
	eventTaskFailed           = "TaskFailed"
)

// Config contains Alibaba Cloud NLS credentials and tuning.
type Config struct {
	AccessKeyID     string
	AccessKeySecret string
	AppKey          string
	GatewayURL      string
	TokenURL        string
	SampleRate      int
}

// messageHeader is the common header of every control and result frame.
type messageHeader struct {
	MessageID  string `json:"message_id"`
	TaskID     string `json:"task_id"`
	Namespace  string `json:"namespace"`
	Name       string `json:"name"`
	AppKey     string `json:"appkey,omitempty"`
	Status     int    `json:"status,omitempty"`
	StatusText string `json:"status_text,omitempty"`
}

// startPayload carries the audio format and feature flags of the
// StartTranscription control frame.
type startPayload struct {
	Format                         string `json:"format"`
	SampleRate                     int    `json:"sample_rate"`
	EnableIntermediateResult       bool   `json:"enable_intermediate_result"`
	EnablePunctuationPrediction    bool   `json:"enable_punctuation_prediction"`
	EnableInverseTextNormalization bool   `json:"enable_inverse_text_normalization"`
}

// resultPayload carries the recognized text of a result frame.
type resultPayload struct {
	Result string `json:"result"`
}

// wireMessage is the envelope for both directions.
type wireMessage struct {
	Header  messageHeader   `json:"header"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Transcriber streams PCM16 audio to the NLS gateway and maps its
// result frames onto transcript deltas.
type Transcriber struct {
	config Config
	tokens *TokenClient

	mu      sync.Mutex
	conn    *websocket.Conn
	taskID  string
	session *asr.Session
	onDelta asr.DeltaFunc
	onErr   asr.ErrorFunc

	writeMu  sync.Mutex // serializes writes; reads have their own goroutine
	readDone chan struct{}
}

// NewTranscriber creates an NLS streaming adapter.
func NewTranscriber(config Config) (*Transcriber, error) {
	if config.AccessKeyID == "" || config.AccessKeySecret == "" {
		return nil, fmt.Errorf("access key pair cannot be empty")
	}
	if config.AppKey == "" {
		return nil, fmt.Errorf("app key cannot be empty")
	}
	if config.GatewayURL == "" {
		config.GatewayURL = defaultGatewayURL
	}
	if config.SampleRate <= 0 {
		config.SampleRate = 16000
	}

	tokens := NewTokenClient(config.AccessKeyID, config.AccessKeySecret)
	if config.TokenURL != "" {
		tokens.tokenURL = config.TokenURL
	}

	return &Transcriber{
		config: config,
		tokens: tokens,
	}, nil
}

// Name returns the provider name.
func (t *Transcriber) Name() string { return ProviderName }

// Start fetches a token, opens the gateway WebSocket and sends the
// StartTranscription control frame. It blocks until the vendor
// confirms the transcription started or the handshake bound elapses.
func (t *Transcriber) Start(ctx context.Context, onDelta asr.DeltaFunc, onErr asr.ErrorFunc) (*asr.Session, error) {
	t.mu.Lock()
	if t.session != nil && !t.session.State().Terminal() {
		prev := t.session
		t.mu.Unlock()
		t.Stop(prev)
		t.mu.Lock()
	}
	defer t.mu.Unlock()

	session := asr.NewSession(ProviderName)
	session.SetState(asr.StateConnecting)

	token, err := t.tokens.Fetch()
	if err != nil {
		session.SetState(asr.StateFailed)
		return nil, fmt.Errorf("aliyun token: %w", err)
	}

	gatewayURL, err := url.Parse(t.config.GatewayURL)
	if err != nil {
		session.SetState(asr.StateFailed)
		return nil, fmt.Errorf("invalid gateway URL: %w", err)
	}
	query := gatewayURL.Query()
	query.Set("token", token)
	query.Set("appkey", t.config.AppKey)
	gatewayURL.RawQuery = query.Encode()

	dialCtx, cancel := context.WithTimeout(ctx, asr.HandshakeTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, gatewayURL.String(), nil)
	if err != nil {
		session.SetState(asr.StateFailed)
		if dialCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("aliyun gateway: %w", asr.ErrHandshakeTimeout)
		}
		return nil, fmt.Errorf("%w: aliyun gateway: %v", asr.ErrConnectionError, err)
	}

	taskID := newVendorID()
	start := wireMessage{
		Header: messageHeader{
			MessageID: newVendorID(),
			TaskID:    taskID,
			Namespace: namespace,
			Name:      "StartTranscription",
			AppKey:    t.config.AppKey,
		},
	}
	payload, _ := json.Marshal(startPayload{
		Format:                         "pcm",
		SampleRate:                     t.config.SampleRate,
		EnableIntermediateResult:       true,
		EnablePunctuationPrediction:    true,
		EnableInverseTextNormalization: true,
	})
	start.Payload = payload

	if err := conn.WriteJSON(start); err != nil {
		conn.Close()
		session.SetState(asr.StateFailed)
		return nil, fmt.Errorf("%w: start frame: %v", asr.ErrConnectionError, err)
	}

	// Wait for the TranscriptionStarted confirmation before accepting
	// audio; result frames from a previous task are not possible on a
	// fresh connection.
	conn.SetReadDeadline(time.Now().Add(asr.HandshakeTimeout))
	if err := awaitStarted(conn); err != nil {
		conn.Close()
		session.SetState(asr.StateFailed)
		return nil, err
	}
	conn.SetReadDeadline(time.Time{})

	session.SetState(asr.StateActive)
	t.conn = conn
	t.taskID = taskID
	t.session = session
	t.onDelta = onDelta
	t.onErr = onErr
	t.readDone = make(chan struct{})

	go t.readLoop(conn, session, t.readDone)
	return session, nil
}

// awaitStarted consumes frames until the started confirmation, a task
// failure or the read deadline.
func awaitStarted(conn *websocket.Conn) error {
	for {
		var msg wireMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("%w: awaiting start confirmation: %v", asr.ErrHandshakeTimeout, err)
		}

		switch msg.Header.Name {
		case eventTranscriptionStarted:
			return nil
		case eventTaskFailed:
			return &asr.VendorError{
				Provider: ProviderName,
				Code:     msg.Header.Status,
				Message:  msg.Header.StatusText,
				Err:      asr.ErrVendorTaskFailed,
			}
		}
	}
}

// Feed sends one audio frame as a binary message, split into
// vendor-sized chunks when the payload exceeds the per-message limit.
// Frames are transmitted in the order received.
func (t *Transcriber) Feed(session *asr.Session, data []byte) error {
	t.mu.Lock()
	conn := t.conn
	current := t.session
	t.mu.Unlock()

	if session == nil || session != current || session.State() != asr.StateActive || conn == nil {
		return asr.ErrSessionNotReady
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	for offset := 0; offset < len(data); offset += maxFrameSize {
		end := offset + maxFrameSize
		if end > len(data) {
			end = len(data)
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, data[offset:end]); err != nil {
			return fmt.Errorf("%w: audio frame: %v", asr.ErrConnectionError, err)
		}
	}
	return nil
}

// Stop sends the StopTranscription control frame, waits briefly for the
// completion confirmation and closes the transport. Idempotent.
func (t *Transcriber) Stop(session *asr.Session) error {
	t.mu.Lock()
	conn := t.conn
	taskID := t.taskID
	readDone := t.readDone
	current := t.session
	t.mu.Unlock()

	if session == nil || session != current || conn == nil {
		return nil
	}
	if !session.Transition(asr.StateActive, asr.StateDraining) {
		// The vendor already ended the task; only the transport could
		// still be open.
		t.teardown(conn)
		return nil
	}

	stop := wireMessage{
		Header: messageHeader{
			MessageID: newVendorID(),
			TaskID:    taskID,
			Namespace: namespace,
			Name:      "StopTranscription",
			AppKey:    t.config.AppKey,
		},
	}

	t.writeMu.Lock()
	err := conn.WriteJSON(stop)
	t.writeMu.Unlock()

	// Give the vendor a bounded window to flush the final result, then
	// tear down regardless.
	if err == nil {
		select {
		case <-readDone:
		case <-time.After(5 * time.Second):
		}
	}

	t.teardown(conn)
	session.SetState(asr.StateCompleted)
	return nil
}

// teardown closes the transport and drops the adapter's reference when
// it still points at this connection. Safe to call more than once and
// from both Stop and the read loop.
func (t *Transcriber) teardown(conn *websocket.Conn) {
	t.mu.Lock()
	if t.conn == conn {
		t.conn = nil
		t.taskID = ""
	}
	t.mu.Unlock()
	conn.Close()
}

// readLoop translates vendor result frames into delta callbacks until
// the connection closes or the task terminates. The vendor may end the
// task on its own, so the loop owns transport teardown on exit.
func (t *Transcriber) readLoop(conn *websocket.Conn, session *asr.Session, done chan struct{}) {
	defer close(done)
	defer t.teardown(conn)

	for {
		var msg wireMessage
		if err := conn.ReadJSON(&msg); err != nil {
			// Expected on teardown; mid-stream it is a transport drop.
			if session.Transition(asr.StateActive, asr.StateFailed) {
				t.emitError(fmt.Errorf("%w: %v", asr.ErrConnectionError, err))
			}
			return
		}

		switch msg.Header.Name {
		case eventResultChanged:
			// Revised hypothesis for the open utterance.
			t.emitDelta(asr.TranscriptDelta{Text: resultText(msg), Replace: true})

		case eventSentenceEnd:
			// The utterance is closed; its text becomes immutable.
			t.emitDelta(asr.TranscriptDelta{Text: resultText(msg), Replace: true, IsFinal: false})
			t.emitDelta(asr.TranscriptDelta{Text: "", IsFinal: false})

		case eventCompleted:
			t.emitDelta(asr.TranscriptDelta{Text: "", IsFinal: true})
			session.SetState(asr.StateCompleted)
			return

		case eventTaskFailed:
			vendorErr := &asr.VendorError{
				Provider: ProviderName,
				Code:     msg.Header.Status,
				Message:  msg.Header.StatusText,
				Err:      asr.ErrVendorTaskFailed,
			}
			// A failure frame mid-session terminates the task.
			if session.State() == asr.StateActive || session.State() == asr.StateDraining {
				session.SetState(asr.StateFailed)
				t.emitError(vendorErr)
			}
			return
		}
	}
}

func (t *Transcriber) emitDelta(delta asr.TranscriptDelta) {
	t.mu.Lock()
	onDelta := t.onDelta
	t.mu.Unlock()
	if onDelta != nil {
		onDelta(delta)
	}
}

func (t *Transcriber) emitError(err error) {
	t.mu.Lock()
	onErr := t.onErr
	t.mu.Unlock()
	if onErr != nil {
		onErr(err)
	}
}

// resultText extracts the recognized text from a result frame payload.
func resultText(msg wireMessage) string {
	var payload resultPayload
	if len(msg.Payload) > 0 {
		json.Unmarshal(msg.Payload, &payload)
	}
	return payload.Result
}

// newVendorID produces the 32-hex-character identifier format the
// gateway expects for task and message IDs.
func newVendorID() string {
	id := uuid.New()
	return fmt.Sprintf("%x", id[:])
}
