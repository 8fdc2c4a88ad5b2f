// Package session owns active recognition sessions: it wires adapter
// callbacks into transcript builders and persists finished transcripts
// to the history store.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/skypro1111/asr-gateway/internal/asr"
	"github.com/skypro1111/asr-gateway/internal/history"
	"github.com/skypro1111/asr-gateway/internal/metrics"
	"github.com/skypro1111/asr-gateway/internal/transcript"
)

// ManagedSession couples an adapter session with its transcript
// builder and activity tracking.
type ManagedSession struct {
	Session *asr.Session
	Builder *transcript.Builder

	adapter asr.Adapter
	title   string

	mu           sync.Mutex
	lastActivity time.Time
	framesFed    uint64
	bytesFed     uint64
	deltas       uint64
	lastErr      error
	persisted    bool
}

// Info is a read-only snapshot of one session for monitoring.
type Info struct {
	ID         string    `json:"id"`
	Provider   string    `json:"provider"`
	State      string    `json:"state"`
	Created    time.Time `json:"created"`
	LastActive time.Time `json:"last_active"`
	FramesFed  uint64    `json:"frames_fed"`
	BytesFed   uint64    `json:"bytes_fed"`
	Deltas     uint64    `json:"deltas"`
	Transcript string    `json:"transcript"`
	Error      string    `json:"error,omitempty"`
}

// Manager creates, feeds and finalizes recognition sessions.
type Manager struct {
	registry *asr.Registry
	store    *history.Store
	metrics  *metrics.Metrics
	logger   *slog.Logger
	timeout  time.Duration

	mu       sync.RWMutex
	sessions map[string]*ManagedSession

	ctx     context.Context
	cancel  context.CancelFunc
	cleanup chan struct{}
}

// NewManager creates a session manager and starts its idle-session
// cleanup routine. The store may be nil when history persistence is
// disabled.
func NewManager(registry *asr.Registry, store *history.Store, m *metrics.Metrics, logger *slog.Logger, timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	mgr := &Manager{
		registry: registry,
		store:    store,
		metrics:  m,
		logger:   logger,
		timeout:  timeout,
		sessions: make(map[string]*ManagedSession),
		ctx:      ctx,
		cancel:   cancel,
		cleanup:  make(chan struct{}),
	}
	go mgr.startCleanupRoutine()
	return mgr
}

// Start creates an adapter for the named provider and opens a session.
// The transcript builder receives every delta the adapter emits.
func (mgr *Manager) Start(ctx context.Context, provider, title string) (*ManagedSession, error) {
	adapter, err := mgr.registry.New(provider)
	if err != nil {
		return nil, err
	}

	builder := transcript.NewBuilder()
	managed := &ManagedSession{
		Builder:      builder,
		adapter:      adapter,
		title:        title,
		lastActivity: time.Now(),
	}

	onDelta := func(delta asr.TranscriptDelta) {
		builder.Apply(delta)
		managed.mu.Lock()
		managed.deltas++
		managed.lastActivity = time.Now()
		managed.mu.Unlock()
		if mgr.metrics != nil {
			mgr.metrics.RecordDelta(delta.IsFinal)
		}
		if delta.IsFinal {
			mgr.finalize(managed, nil)
		}
	}
	onErr := func(err error) {
		managed.mu.Lock()
		managed.lastErr = err
		managed.mu.Unlock()
		mgr.logger.Error("session error",
			slog.String("provider", provider),
			slog.String("error", err.Error()),
		)
		mgr.finalize(managed, err)
	}

	sess, err := adapter.Start(ctx, onDelta, onErr)
	if err != nil {
		return nil, fmt.Errorf("start %s session: %w", provider, err)
	}
	managed.Session = sess

	mgr.mu.Lock()
	mgr.sessions[sess.ID] = managed
	mgr.mu.Unlock()

	if mgr.metrics != nil {
		mgr.metrics.RecordSessionCreated(provider)
	}
	mgr.logger.Info("session started",
		slog.String("session_id", sess.ID),
		slog.String("provider", provider),
	)
	return managed, nil
}

// Feed forwards audio to the session's adapter.
func (mgr *Manager) Feed(sessionID string, data []byte) error {
	managed, ok := mgr.get(sessionID)
	if !ok {
		return asr.ErrSessionNotReady
	}

	if err := managed.adapter.Feed(managed.Session, data); err != nil {
		return err
	}

	managed.mu.Lock()
	managed.framesFed++
	managed.bytesFed += uint64(len(data))
	managed.lastActivity = time.Now()
	managed.mu.Unlock()

	if mgr.metrics != nil {
		mgr.metrics.RecordFrameSent(len(data))
	}
	return nil
}

// Stop ends the session. The adapter drains to a terminal state and
// the transcript is persisted. Safe to call more than once.
func (mgr *Manager) Stop(sessionID string) error {
	managed, ok := mgr.get(sessionID)
	if !ok {
		return asr.ErrSessionNotReady
	}

	if err := managed.adapter.Stop(managed.Session); err != nil {
		return err
	}
	mgr.finalize(managed, nil)
	return nil
}

// Get returns a snapshot of one session.
func (mgr *Manager) Get(sessionID string) (Info, bool) {
	managed, ok := mgr.get(sessionID)
	if !ok {
		return Info{}, false
	}
	return managed.info(), true
}

// List returns snapshots of all tracked sessions.
func (mgr *Manager) List() []Info {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()

	out := make([]Info, 0, len(mgr.sessions))
	for _, managed := range mgr.sessions {
		out = append(out, managed.info())
	}
	return out
}

// ActiveCount returns the number of sessions not yet terminal.
func (mgr *Manager) ActiveCount() int {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()

	n := 0
	for _, managed := range mgr.sessions {
		if !managed.Session.State().Terminal() {
			n++
		}
	}
	return n
}

// Shutdown stops all sessions and the cleanup routine.
func (mgr *Manager) Shutdown() {
	mgr.logger.Info("stopping session manager")

	mgr.mu.RLock()
	ids := make([]string, 0, len(mgr.sessions))
	for id := range mgr.sessions {
		ids = append(ids, id)
	}
	mgr.mu.RUnlock()

	for _, id := range ids {
		if err := mgr.Stop(id); err != nil && err != asr.ErrSessionNotReady {
			mgr.logger.Warn("session stop during shutdown",
				slog.String("session_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	mgr.cancel()
	<-mgr.cleanup
}

func (mgr *Manager) get(sessionID string) (*ManagedSession, bool) {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	managed, ok := mgr.sessions[sessionID]
	return managed, ok
}

// finalize records terminal metrics once and persists whatever
// transcript was reconciled, partial results included.
func (mgr *Manager) finalize(managed *ManagedSession, cause error) {
	sess := managed.Session
	if sess == nil {
		return
	}

	managed.mu.Lock()
	if managed.persisted {
		managed.mu.Unlock()
		return
	}
	managed.persisted = true
	title := managed.title
	managed.mu.Unlock()

	duration := time.Since(sess.Created).Seconds()
	if mgr.metrics != nil {
		if cause != nil || sess.State() == asr.StateFailed {
			mgr.metrics.RecordSessionFailed(sess.Provider, duration)
		} else {
			mgr.metrics.RecordSessionCompleted(sess.Provider, duration)
		}
	}

	text := managed.Builder.Text()
	if mgr.store == nil || text == "" {
		return
	}
	if title == "" {
		title = fmt.Sprintf("%s %s", sess.Provider, sess.Created.Format("2006-01-02 15:04:05"))
	}

	if _, err := mgr.store.Append(title, text, nil); err != nil {
		mgr.logger.Error("persist transcript",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	mgr.logger.Info("transcript persisted",
		slog.String("session_id", sess.ID),
		slog.String("provider", sess.Provider),
		slog.Int("text_len", len(text)),
	)
}

func (ms *ManagedSession) info() Info {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	info := Info{
		ID:         ms.Session.ID,
		Provider:   ms.Session.Provider,
		State:      ms.Session.State().String(),
		Created:    ms.Session.Created,
		LastActive: ms.lastActivity,
		FramesFed:  ms.framesFed,
		BytesFed:   ms.bytesFed,
		Deltas:     ms.deltas,
		Transcript: ms.Builder.Text(),
	}
	if ms.lastErr != nil {
		info.Error = ms.lastErr.Error()
	}
	return info
}

// startCleanupRoutine removes terminal sessions that have been idle
// past the configured timeout, keeping the session list bounded.
func (mgr *Manager) startCleanupRoutine() {
	defer close(mgr.cleanup)

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-mgr.ctx.Done():
			return
		case <-ticker.C:
			mgr.cleanupExpiredSessions()
		}
	}
}

func (mgr *Manager) cleanupExpiredSessions() {
	now := time.Now()
	var expired []string

	mgr.mu.RLock()
	for id, managed := range mgr.sessions {
		managed.mu.Lock()
		idle := now.Sub(managed.lastActivity)
		managed.mu.Unlock()

		if idle > mgr.timeout {
			expired = append(expired, id)
		}
	}
	mgr.mu.RUnlock()

	for _, id := range expired {
		managed, ok := mgr.get(id)
		if !ok {
			continue
		}
		if !managed.Session.State().Terminal() {
			if err := managed.adapter.Stop(managed.Session); err != nil {
				mgr.logger.Warn("stop expired session",
					slog.String("session_id", id),
					slog.String("error", err.Error()),
				)
			}
			mgr.finalize(managed, nil)
		}

		mgr.mu.Lock()
		delete(mgr.sessions, id)
		mgr.mu.Unlock()

		mgr.logger.Info("expired session removed", slog.String("session_id", id))
	}
}
