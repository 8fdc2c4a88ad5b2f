package xunfei

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/skypro1111/asr-gateway/internal/asr"
	"github.com/skypro1111/asr-gateway/internal/audio"
)

// ProviderName is the registry name for this adapter.
const ProviderName = "xunfei"

const (
	defaultGatewayURL = "wss://iat-api.xfyun.cn/v2/iat"

	// FrameSize is the vendor's audio frame size in bytes (40 ms of
	// 16 kHz PCM16).
	FrameSize = 1280

	// Audio frame statuses in the data block.
	statusFirstFrame  = 0
	statusMiddleFrame = 1
	statusLastFrame   = 2
)

// Config contains iFlytek credentials and recognition options.
type Config struct {
	AppID      string
	APIKey     string
	APISecret  string
	GatewayURL string
	Language   string // e.g. "zh_cn"
	Accent     string // e.g. "mandarin"
	VadEOS     int    // trailing-silence endpoint in milliseconds
	Punctuate  bool
}

// frameMessage is one upstream message: business parameters ride only
// on the first frame, audio rides on every frame.
type frameMessage struct {
	Common   *commonParams   `json:"common,omitempty"`
	Business *businessParams `json:"business,omitempty"`
	Data     dataParams      `json:"data"`
}

type commonParams struct {
	AppID string `json:"app_id"`
}

type businessParams struct {
	Language string `json:"language"`
	Domain   string `json:"domain"`
	Accent   string `json:"accent"`
	DWA      string `json:"dwa"`     // "wpgs" enables dynamic correction
	VadEOS   int    `json:"vad_eos"` // endpoint detection, milliseconds
	PTT      int    `json:"ptt"`     // punctuation: 1 on, 0 off
}

type dataParams struct {
	Status   int    `json:"status"`
	Format   string `json:"format"`
	Encoding string `json:"encoding"`
	Audio    string `json:"audio"`
}

// resultMessage is one downstream recognition message.
type resultMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Status int `json:"status"` // 2 marks the session's last result
		Result struct {
			PGS string `json:"pgs"` // "apd" append, "rpl" replace
			WS  []struct {
				CW []struct {
					W string `json:"w"`
				} `json:"cw"`
			} `json:"ws"`
		} `json:"result"`
	} `json:"data"`
}

// Transcriber streams base64-encoded PCM frames to the IAT gateway.
// The vendor's pgs marker maps directly onto the delta Replace flag.
type Transcriber struct {
	config Config

	mu       sync.Mutex
	conn     *websocket.Conn
	session  *asr.Session
	onDelta  asr.DeltaFunc
	onErr    asr.ErrorFunc
	framer   *audio.Framer
	sentAny  bool
	readDone chan struct{}

	writeMu sync.Mutex

	// now is replaceable in tests to pin the signature date.
	now func() time.Time
}

// NewTranscriber creates an IAT streaming adapter.
func NewTranscriber(config Config) (*Transcriber, error) {
	if config.AppID == "" || config.APIKey == "" || config.APISecret == "" {
		return nil, fmt.Errorf("app ID, API key and API secret cannot be empty")
	}
	if config.GatewayURL == "" {
		config.GatewayURL = defaultGatewayURL
	}
	if config.Language == "" {
		config.Language = "zh_cn"
	}
	if config.Accent == "" {
		config.Accent = "mandarin"
	}
	if config.VadEOS <= 0 {
		config.VadEOS = 10000
	}

	return &Transcriber{config: config, now: time.Now}, nil
}

// Name returns the provider name.
func (t *Transcriber) Name() string { return ProviderName }

// Start signs the gateway URL and opens the WebSocket. Business
// parameters are deferred to the first audio frame, as the vendor
// protocol requires.
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

	wsURL, err := authURL(t.config.GatewayURL, t.config.APIKey, t.config.APISecret, t.now())
	if err != nil {
		session.SetState(asr.StateFailed)
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, asr.HandshakeTimeout)
	defer cancel()

	conn, resp, err := websocket.DefaultDialer.DialContext(dialCtx, wsURL, nil)
	if err != nil {
		session.SetState(asr.StateFailed)
		if resp != nil && (resp.StatusCode == 401 || resp.StatusCode == 403) {
			return nil, fmt.Errorf("%w: iat gateway: HTTP %d", asr.ErrAuthenticationFailed, resp.StatusCode)
		}
		if dialCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("iat gateway: %w", asr.ErrHandshakeTimeout)
		}
		return nil, fmt.Errorf("%w: iat gateway: %v", asr.ErrConnectionError, err)
	}

	session.SetState(asr.StateActive)
	t.conn = conn
	t.session = session
	t.onDelta = onDelta
	t.onErr = onErr
	t.framer = audio.NewFramer(FrameSize)
	t.sentAny = false
	t.readDone = make(chan struct{})

	go t.readLoop(conn, session, t.readDone)
	return session, nil
}

// Feed splits the payload into vendor-size frames and sends each one
// base64-encoded, in order. The first frame of the session carries the
// business parameters with status 0.
func (t *Transcriber) Feed(session *asr.Session, data []byte) error {
	t.mu.Lock()
	if session == nil || session != t.session || session.State() != asr.StateActive || t.conn == nil {
		t.mu.Unlock()
		return asr.ErrSessionNotReady
	}
	conn := t.conn
	frames := t.framer.Write(data)
	t.mu.Unlock()

	for _, frame := range frames {
		if err := t.sendFrame(conn, frame.Data, false); err != nil {
			return err
		}
	}
	return nil
}

// Stop flushes the buffered remainder as the last frame (status 2),
// waits for the vendor's final result and closes the transport.
// Idempotent; a second call is a no-op.
func (t *Transcriber) Stop(session *asr.Session) error {
	t.mu.Lock()
	conn := t.conn
	framer := t.framer
	readDone := t.readDone
	current := t.session
	t.mu.Unlock()

	if session == nil || session != current || conn == nil {
		return nil
	}
	if !session.Transition(asr.StateActive, asr.StateDraining) {
		// The vendor already ended the session, typically on its
		// end-of-speech timeout; only the transport could still be open.
		t.teardown(conn)
		return nil
	}

	var tail []byte
	if framer != nil {
		if frame := framer.Flush(); frame != nil {
			tail = frame.Data
		}
	}
	err := t.sendFrame(conn, tail, true)

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
		t.framer = nil
	}
	t.mu.Unlock()
	conn.Close()
}

// sendFrame writes one audio frame with the correct status marker.
func (t *Transcriber) sendFrame(conn *websocket.Conn, data []byte, last bool) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	status := statusMiddleFrame
	if last {
		status = statusLastFrame
	}

	msg := frameMessage{
		Data: dataParams{
			Status:   status,
			Format:   "audio/L16;rate=16000",
			Encoding: "raw",
			Audio:    base64.StdEncoding.EncodeToString(data),
		},
	}

	if !t.sentAny {
		if !last {
			msg.Data.Status = statusFirstFrame
		}
		ptt := 0
		if t.config.Punctuate {
			ptt = 1
		}
		msg.Common = &commonParams{AppID: t.config.AppID}
		msg.Business = &businessParams{
			Language: t.config.Language,
			Domain:   "iat",
			Accent:   t.config.Accent,
			DWA:      "wpgs",
			VadEOS:   t.config.VadEOS,
			PTT:      ptt,
		}
		t.sentAny = true
	}

	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("%w: audio frame: %v", asr.ErrConnectionError, err)
	}
	return nil
}

// readLoop maps recognition messages onto delta callbacks until the
// final result or a transport drop. The vendor ends the session on its
// own when vad_eos expires, so the loop owns transport teardown on exit.
func (t *Transcriber) readLoop(conn *websocket.Conn, session *asr.Session, done chan struct{}) {
	defer close(done)
	defer t.teardown(conn)

	for {
		var msg resultMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if session.Transition(asr.StateActive, asr.StateFailed) {
				t.emitError(fmt.Errorf("%w: %v", asr.ErrConnectionError, err))
			}
			return
		}

		if msg.Code != 0 {
			session.SetState(asr.StateFailed)
			t.emitError(&asr.VendorError{
				Provider: ProviderName,
				Code:     msg.Code,
				Message:  msg.Message,
				Err:      asr.ErrVendorTaskFailed,
			})
			return
		}

		text := joinWords(msg)
		isEnd := msg.Data.Status == statusLastFrame

		if text != "" || isEnd {
			// pgs "apd" appends to the settled text; "rpl" revises the
			// open hypothesis.
			t.emitDelta(asr.TranscriptDelta{
				Text:    text,
				Replace: msg.Data.Result.PGS == "rpl",
				IsFinal: isEnd,
			})
		}

		if isEnd {
			session.SetState(asr.StateCompleted)
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

// joinWords flattens the vendor's nested word-set structure into text.
func joinWords(msg resultMessage) string {
	var out []byte
	for _, ws := range msg.Data.Result.WS {
		for _, cw := range ws.CW {
			out = append(out, cw.W...)
		}
	}
	return string(out)
}
