package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lotas/tabsieb/internal/applog"
	"github.com/lotas/tabsieb/internal/server"
	"github.com/lotas/tabsieb/internal/types"
)

// DefaultCallTimeout bounds a single extension round trip.
const DefaultCallTimeout = 30 * time.Second

// Bridge implements Browser on top of the extension WebSocket. Commands
// carry a fresh id and the matching "response" message completes them;
// every other message becomes an Event.
type Bridge struct {
	srv     *server.Server
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]chan server.IncomingMsg

	events chan Event
}

// NewBridge wraps srv. Run must be started for calls to complete.
func NewBridge(srv *server.Server) *Bridge {
	return &Bridge{
		srv:     srv,
		timeout: DefaultCallTimeout,
		pending: make(map[string]chan server.IncomingMsg),
		events:  make(chan Event, 256),
	}
}

// SetTimeout changes the per-call timeout.
func (b *Bridge) SetTimeout(d time.Duration) {
	b.timeout = d
}

// Events returns lifecycle notifications from the extension.
func (b *Bridge) Events() <-chan Event {
	return b.events
}

// Run dispatches incoming messages until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) {
	msgs := b.srv.Messages()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-msgs:
			b.dispatch(msg)
		}
	}
}

func (b *Bridge) dispatch(msg server.IncomingMsg) {
	if msg.Type == "response" {
		b.mu.Lock()
		ch, ok := b.pending[msg.ID]
		delete(b.pending, msg.ID)
		b.mu.Unlock()
		if !ok {
			applog.Info("bridge.orphan", "id", msg.ID)
			return
		}
		ch <- msg
		return
	}

	if msg.Type == "hello" {
		applog.Info("bridge.hello", "browser", msg.Browser)
		return
	}

	ev, ok := toEvent(msg)
	if !ok {
		applog.Info("bridge.unknown", "type", msg.Type)
		return
	}
	select {
	case b.events <- ev:
	default:
		applog.Info("bridge.event_dropped", "kind", string(ev.Kind))
	}
}

func toEvent(msg server.IncomingMsg) (Event, bool) {
	ev := Event{
		WindowID:      msg.WindowID,
		TabID:         msg.TabID,
		Status:        msg.Status,
		WindowClosing: msg.IsWindowClosing,
	}
	switch msg.Type {
	case server.TypeConnected:
		ev.Kind = Connected
	case string(WindowCreated), string(WindowRemoved), string(TabUpdated), string(TabRemoved):
		ev.Kind = EventKind(msg.Type)
	default:
		return Event{}, false
	}
	return ev, true
}

func (b *Bridge) call(ctx context.Context, msg server.OutgoingMsg) (json.RawMessage, error) {
	if !b.srv.Connected() {
		return nil, ErrNotConnected
	}
	msg.ID = uuid.NewString()
	ch := make(chan server.IncomingMsg, 1)

	b.mu.Lock()
	b.pending[msg.ID] = ch
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.pending, msg.ID)
		b.mu.Unlock()
	}()

	if err := b.srv.Send(msg); err != nil {
		if errors.Is(err, server.ErrNoConnection) {
			return nil, ErrNotConnected
		}
		return nil, fmt.Errorf("%s: %w", msg.Action, err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	select {
	case reply := <-ch:
		if reply.OK != nil && !*reply.OK {
			return nil, fmt.Errorf("%s: %s", msg.Action, reply.Error)
		}
		return reply.Result, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", msg.Action, ctx.Err())
	}
}

func (b *Bridge) SearchHistory(ctx context.Context, q HistoryQuery) ([]types.HistoryItem, error) {
	raw, err := b.call(ctx, server.OutgoingMsg{
		Action:     "history.search",
		StartTime:  q.StartTime.UnixMilli(),
		MaxResults: q.MaxResults,
	})
	if err != nil {
		return nil, err
	}
	return server.ParseHistory(raw)
}

func (b *Bridge) ListAllWindows(ctx context.Context) ([]types.Window, error) {
	raw, err := b.call(ctx, server.OutgoingMsg{Action: "windows.getAll", Populate: true})
	if err != nil {
		return nil, err
	}
	return server.ParseWindows(raw)
}

func (b *Bridge) QueryTabs(ctx context.Context, q TabQuery) ([]types.Tab, error) {
	raw, err := b.call(ctx, server.OutgoingMsg{
		Action:   "tabs.query",
		WindowID: q.WindowID,
		Active:   q.Active,
	})
	if err != nil {
		return nil, err
	}
	return server.ParseTabs(raw)
}

func (b *Bridge) CreateTab(ctx context.Context, args CreateTabArgs) (types.Tab, error) {
	active := args.Active
	raw, err := b.call(ctx, server.OutgoingMsg{
		Action:   "tabs.create",
		WindowID: args.WindowID,
		URL:      args.URL,
		Active:   &active,
	})
	if err != nil {
		return types.Tab{}, err
	}
	return server.ParseTab(raw)
}

func (b *Bridge) UpdateTab(ctx context.Context, tabID int, active bool) error {
	_, err := b.call(ctx, server.OutgoingMsg{Action: "tabs.update", TabID: tabID, Active: &active})
	return err
}

func (b *Bridge) GetTab(ctx context.Context, tabID int) (types.Tab, error) {
	raw, err := b.call(ctx, server.OutgoingMsg{Action: "tabs.get", TabID: tabID})
	if err != nil {
		return types.Tab{}, err
	}
	return server.ParseTab(raw)
}

// CreateWindow opens a window on url and returns its id.
func (b *Bridge) CreateWindow(ctx context.Context, url string, focused bool) (int, error) {
	raw, err := b.call(ctx, server.OutgoingMsg{Action: "windows.create", URL: url, Focused: &focused})
	if err != nil {
		return 0, err
	}
	var w struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return 0, fmt.Errorf("parse window: %w", err)
	}
	return w.ID, nil
}

func (b *Bridge) UpdateWindow(ctx context.Context, windowID int, focused bool) error {
	_, err := b.call(ctx, server.OutgoingMsg{Action: "windows.update", WindowID: windowID, Focused: &focused})
	return err
}

func (b *Bridge) RecentlyClosed(ctx context.Context, maxResults int) ([]types.WindowRecord, error) {
	raw, err := b.call(ctx, server.OutgoingMsg{Action: "sessions.getRecentlyClosed", MaxResults: maxResults})
	if err != nil {
		return nil, err
	}
	return server.ParseRecentlyClosed(raw)
}

func (b *Bridge) RestoreSession(ctx context.Context, sessionID string) error {
	_, err := b.call(ctx, server.OutgoingMsg{Action: "sessions.restore", SessionID: sessionID})
	return err
}
