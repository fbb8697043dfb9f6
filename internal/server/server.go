package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/lotas/tabsieb/internal/applog"
	"nhooyr.io/websocket"
)

// ErrNoConnection is returned by Send when no extension is attached.
var ErrNoConnection = errors.New("no extension connected")

// TypeConnected is queued by the server itself each time an extension
// attaches, before anything the extension sends.
const TypeConnected = "connected"

// IncomingMsg is a message from the extension: a reply to a command
// (Type "response") or a browser lifecycle notification.
type IncomingMsg struct {
	Type string `json:"type"`
	// Command response fields
	ID     string          `json:"id,omitempty"`
	OK     *bool           `json:"ok,omitempty"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	// Event fields
	WindowID        int    `json:"windowId,omitempty"`
	TabID           int    `json:"tabId,omitempty"`
	Status          string `json:"status,omitempty"`
	IsWindowClosing bool   `json:"isWindowClosing,omitempty"`
	Browser         string `json:"browser,omitempty"`
}

// OutgoingMsg is a command from tabsieb to the extension.
type OutgoingMsg struct {
	ID         string `json:"id"`
	Action     string `json:"action"`
	StartTime  int64  `json:"startTime,omitempty"` // unix millis
	MaxResults int    `json:"maxResults,omitempty"`
	WindowID   int    `json:"windowId,omitempty"`
	TabID      int    `json:"tabId,omitempty"`
	URL        string `json:"url,omitempty"`
	Active     *bool  `json:"active,omitempty"`
	Focused    *bool  `json:"focused,omitempty"`
	Populate   bool   `json:"populate,omitempty"`
	SessionID  string `json:"sessionId,omitempty"`
}

// Server manages the WebSocket connection to the extension.
type Server struct {
	port    int
	msgs    chan IncomingMsg
	mu      sync.Mutex
	conn    *websocket.Conn
	connCtx context.Context
}

// New creates a new Server. Port 0 means the caller manages the listener.
func New(port int) *Server {
	return &Server{
		port: port,
		msgs: make(chan IncomingMsg, 256),
	}
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}

// Messages returns the channel of incoming messages from the extension.
func (s *Server) Messages() <-chan IncomingMsg {
	return s.msgs
}

// Connected reports whether an extension is connected.
func (s *Server) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Send sends a command to the connected extension.
func (s *Server) Send(msg OutgoingMsg) error {
	s.mu.Lock()
	conn := s.conn
	ctx := s.connCtx
	s.mu.Unlock()

	if conn == nil {
		return ErrNoConnection
	}

	applog.Info("ws.send", "action", msg.Action, "id", msg.ID)
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// Handler returns an http.Handler that accepts WebSocket upgrades.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			applog.Error("ws.accept", err)
			return
		}

		conn.SetReadLimit(64 << 20) // a year of history is large

		ctx := r.Context()
		s.mu.Lock()
		if s.conn != nil {
			applog.Info("ws.replaced")
			s.conn.CloseNow()
		}
		s.conn = conn
		s.connCtx = ctx
		s.mu.Unlock()

		applog.Info("ws.connected", "remote", r.RemoteAddr)
		s.push(IncomingMsg{Type: TypeConnected})

		defer func() {
			s.mu.Lock()
			if s.conn == conn {
				s.conn = nil
				s.connCtx = nil
			}
			s.mu.Unlock()
			conn.CloseNow()
			applog.Info("ws.disconnected")
		}()

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var msg IncomingMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				applog.Error("ws.parse", err)
				continue
			}
			applog.Info("ws.recv", "type", msg.Type, "id", msg.ID)
			s.push(msg)
		}
	})
}

func (s *Server) push(msg IncomingMsg) {
	select {
	case s.msgs <- msg:
	default:
		applog.Info("ws.dropped", "type", msg.Type)
	}
}

// Router mounts the WebSocket endpoint at / and /ws, and a JSON status
// endpoint at /status.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Handle("/ws", s.Handler())
	r.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"connected": s.Connected(),
			"port":      s.port,
		})
	}).Methods(http.MethodGet)
	r.Handle("/", s.Handler())
	return r
}

// ListenAndServe starts the WebSocket server on the configured port.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	applog.Info("server.start", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: s.Router()}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
