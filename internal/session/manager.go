package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tablevox/tablevox/internal/observe"
	"github.com/tablevox/tablevox/pkg/stt"
)

// ManagerConfig holds the dependencies shared by every session the manager
// starts.
type ManagerConfig struct {
	// STT opens the transcription stream backing each session.
	STT stt.Provider

	// Stream is the per-session transcription configuration.
	Stream stt.StreamConfig

	// Session is the template for new sessions. Its ID field is ignored;
	// the manager assigns one per session.
	Session Config

	Metrics *observe.Metrics
	Logger  *slog.Logger
}

// Active is one running session tracked by the [Manager].
type Active struct {
	// ID is the manager-assigned session identifier.
	ID string

	// StartedAt is when the session was started, in UTC.
	StartedAt time.Time

	sess   *Session
	stream stt.SessionHandle
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Session returns the underlying session, for post-run inspection.
func (a *Active) Session() *Session {
	return a.sess
}

// Replies returns the session's assistant response channel.
func (a *Active) Replies() <-chan Reply {
	return a.sess.Replies()
}

// SendAudio forwards a PCM chunk to the session's transcription stream.
func (a *Active) SendAudio(chunk []byte) error {
	return a.stream.SendAudio(chunk)
}

// Done is closed when the session's event loop has returned.
func (a *Active) Done() <-chan struct{} {
	return a.done
}

// Err returns the event loop's exit error. Valid only after Done is closed.
func (a *Active) Err() error {
	return a.err
}

// Manager tracks the set of live sessions. All exported methods are safe for
// concurrent use.
type Manager struct {
	cfg     ManagerConfig
	log     *slog.Logger
	metrics *observe.Metrics

	mu       sync.Mutex
	sessions map[string]*Active
}

// NewManager creates a Manager with the given dependencies.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	return &Manager{
		cfg:      cfg,
		log:      cfg.Logger,
		metrics:  cfg.Metrics,
		sessions: make(map[string]*Active),
	}
}

// Start opens a transcription stream, builds a session around it, and launches
// its event loop. The loop outlives ctx; use [Manager.Stop] to end it.
func (m *Manager) Start(ctx context.Context) (*Active, error) {
	id := uuid.NewString()

	stream, err := m.cfg.STT.StartStream(ctx, m.cfg.Stream)
	if err != nil {
		return nil, fmt.Errorf("session: start transcription stream: %w", err)
	}

	scfg := m.cfg.Session
	scfg.ID = id
	if scfg.Metrics == nil {
		scfg.Metrics = m.metrics
	}
	if scfg.Logger == nil {
		scfg.Logger = m.log
	}

	sess, err := New(scfg)
	if err != nil {
		_ = stream.Close()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	a := &Active{
		ID:        id,
		StartedAt: time.Now().UTC(),
		sess:      sess,
		stream:    stream,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	m.mu.Lock()
	m.sessions[id] = a
	m.mu.Unlock()
	m.metrics.ActiveSessions.Add(runCtx, 1)

	m.log.Info("session started", "session_id", id, "mode", scfg.Mode)

	go func() {
		defer close(a.done)
		a.err = sess.Run(runCtx, stream)
		switch {
		case a.err == nil:
			m.log.Info("session ended", "session_id", id)
		case errors.Is(a.err, context.Canceled):
			m.log.Info("session cancelled", "session_id", id)
		default:
			m.log.Error("session ended with error", "session_id", id, "err", a.err)
		}
		m.remove(runCtx, id)
	}()

	return a, nil
}

// Stop gracefully ends a session: the transcription stream is closed, which
// lets the event loop flush trailing speech and exit. If ctx expires first the
// loop is cancelled outright.
func (m *Manager) Stop(ctx context.Context, id string) error {
	m.mu.Lock()
	a, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("session: no active session %q", id)
	}

	if err := a.stream.Close(); err != nil {
		m.log.Warn("session: stream close error", "session_id", id, "err", err)
	}

	select {
	case <-a.done:
	case <-ctx.Done():
		a.cancel()
		<-a.done
	}
	return nil
}

// StopAll gracefully ends every active session. Used during shutdown.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		if err := m.Stop(ctx, id); err != nil {
			m.log.Warn("session: stop error during shutdown", "session_id", id, "err", err)
		}
	}
}

// Get returns the active session with the given ID.
func (m *Manager) Get(id string) (*Active, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.sessions[id]
	return a, ok
}

// Count returns the number of active sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// remove drops a finished session from the registry.
func (m *Manager) remove(ctx context.Context, id string) {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		m.metrics.ActiveSessions.Add(ctx, -1)
	}
}
