package web

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dukex/flowedit/pkg/editor"
	"github.com/dukex/flowedit/pkg/events"
)

// SessionFactory builds a fresh editor session.
type SessionFactory func() *editor.Controller

// SessionManager holds the open editor sessions in memory, keyed by session id.
type SessionManager struct {
	factory SessionFactory
	logger  *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*editor.Controller
}

func NewSessionManager(logger *slog.Logger, factory SessionFactory) *SessionManager {
	return &SessionManager{
		factory:  factory,
		logger:   logger,
		sessions: map[string]*editor.Controller{},
	}
}

// Open starts a session on workflowID, or on a new workflow when it is empty.
// A session whose load fails is closed and not registered.
func (m *SessionManager) Open(ctx context.Context, workflowID string) (*editor.Controller, error) {
	session := m.factory()

	if err := session.Load(ctx, workflowID); err != nil {
		session.Close()

		return nil, err
	}

	m.mu.Lock()
	m.sessions[session.SessionID()] = session
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "Opened editor session", "session_id", session.SessionID(), "workflow_id", workflowID)

	return session, nil
}

func (m *SessionManager) Get(id string) (*editor.Controller, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]

	return session, ok
}

// Close ends and forgets the session. It reports whether the session existed.
func (m *SessionManager) Close(id string) bool {
	m.mu.Lock()
	session, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return false
	}

	session.Close()
	m.logger.Info("Closed editor session", "session_id", id)

	return true
}

// CloseAll ends every open session.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = map[string]*editor.Controller{}
	m.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}

	m.logger.Info("Closed all editor sessions", "count", len(sessions))
}

// NotifyRemoteChange flags the other sessions editing the workflow the event
// belongs to. Events of unsaved workflows concern no other session.
func (m *SessionManager) NotifyRemoteChange(ctx context.Context, event events.BaseEvent) {
	if event.WorkflowID == "" {
		return
	}

	m.mu.RLock()
	sessions := make([]*editor.Controller, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	m.mu.RUnlock()

	for _, session := range sessions {
		if session.RecordRemoteChange(event.WorkflowID, event.SessionID, event.Timestamp) {
			m.logger.DebugContext(ctx, "Workflow changed by another session",
				"session_id", session.SessionID(),
				"workflow_id", event.WorkflowID,
				"by", event.SessionID,
				"event_type", event.Type)
		}
	}
}

func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.sessions)
}
