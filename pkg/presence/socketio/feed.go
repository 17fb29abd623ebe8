// Package socketio reads collaborator presence from a socket.io server.
package socketio

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/dukex/flowedit/pkg/models"
	"github.com/dukex/flowedit/pkg/presence"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

const (
	// DefaultEvent is the event carrying collaborator snapshots.
	DefaultEvent = "presence"
	// DefaultJoinEvent asks the server to add the socket to a workflow room.
	DefaultJoinEvent = "join"
)

// Feed joins the room of one workflow on a socket.io namespace and forwards
// the presence events addressed to it.
type Feed struct {
	url       string
	namespace string
	event     string
	joinEvent string
	logger    *slog.Logger
}

type Option func(*Feed)

func WithNamespace(namespace string) Option {
	return func(f *Feed) {
		f.namespace = namespace
	}
}

func WithEvent(event string) Option {
	return func(f *Feed) {
		f.event = event
	}
}

func WithJoinEvent(event string) Option {
	return func(f *Feed) {
		f.joinEvent = event
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(f *Feed) {
		f.logger = logger
	}
}

func NewFeed(rawURL string, opts ...Option) *Feed {
	f := &Feed{
		url:       rawURL,
		namespace: "/",
		event:     DefaultEvent,
		joinEvent: DefaultJoinEvent,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

func (f *Feed) Subscribe(ctx context.Context, workflowID string) (<-chan []models.Collaborator, error) {
	parsedURL, err := url.Parse(f.url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse presence URL: %w", err)
	}

	logger := f.logger.With("url", f.url, "namespace", f.namespace, "event", f.event, "workflow_id", workflowID)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()

	if parsedURL.Path != "" && parsedURL.Path != "/" {
		opts.SetPath(parsedURL.Path)
	}

	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(f.namespace, opts)
	out := newSink()

	// Rooms do not survive a reconnect, so every connect joins again.
	io.On(types.EventName("connect"), func(...any) {
		logger.Info("Connected to presence server", "sid", io.Id())

		if err := io.Emit(f.joinEvent, map[string]any{"workflow_id": workflowID}); err != nil {
			logger.Warn("Failed to join presence room", "error", err)
		}
	})

	io.On(types.EventName("connect_error"), func(errs ...any) {
		logger.Warn("Presence connection error", "error", firstArg(errs))
	})

	io.On(types.EventName(f.event), func(data ...any) {
		msg, err := decodeArgs(data)
		if err != nil {
			logger.Warn("Dropping malformed presence event", "error", err)

			return
		}

		if !msg.For(workflowID) {
			return
		}

		out.send(msg.Collaborators)
	})

	io.Connect()

	go func() {
		<-ctx.Done()
		logger.Debug("Disconnecting presence client")
		io.Disconnect()
		out.close()
	}()

	return out.ch, nil
}

// decodeArgs turns the first event argument into a message. The client hands
// over already-decoded JSON values, so they are re-encoded before decoding.
func decodeArgs(data []any) (presence.Message, error) {
	if len(data) == 0 {
		return presence.Message{}, nil
	}

	if raw, ok := data[0].(string); ok {
		return presence.DecodeMessage([]byte(raw))
	}

	body, err := json.Marshal(data[0])
	if err != nil {
		return presence.Message{}, err
	}

	return presence.DecodeMessage(body)
}

func firstArg(args []any) any {
	if len(args) == 0 {
		return nil
	}

	return args[0]
}

// sink guards the output channel against sends after close.
type sink struct {
	mu     sync.Mutex
	ch     chan []models.Collaborator
	closed bool
}

func newSink() *sink {
	return &sink{ch: make(chan []models.Collaborator, 16)}
}

func (s *sink) send(snapshot []models.Collaborator) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	select {
	case s.ch <- snapshot:
	default:
	}
}

func (s *sink) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
