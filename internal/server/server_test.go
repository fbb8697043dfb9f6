package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
)

func dial(t *testing.T, ctx context.Context, url string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(url, "http")
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func waitConnected(t *testing.T, srv *Server) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !srv.Connected() {
		if time.Now().After(deadline) {
			t.Fatal("server never registered the connection")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func next(t *testing.T, ctx context.Context, srv *Server) IncomingMsg {
	t.Helper()
	select {
	case msg := <-srv.Messages():
		return msg
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
		return IncomingMsg{}
	}
}

func TestServerAnnouncesEachConnection(t *testing.T) {
	srv := New(0)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// The extension sends nothing; the attach alone is announced.
	first := dial(t, ctx, ts.URL)
	defer first.CloseNow()
	if msg := next(t, ctx, srv); msg.Type != TypeConnected {
		t.Errorf("first message = %+v, want %s", msg, TypeConnected)
	}

	second := dial(t, ctx, ts.URL)
	defer second.CloseNow()
	if msg := next(t, ctx, srv); msg.Type != TypeConnected {
		t.Errorf("message after reconnect = %+v, want %s", msg, TypeConnected)
	}
}

func TestServerAcceptsConnection(t *testing.T) {
	srv := New(0)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn := dial(t, ctx, ts.URL)
	defer conn.CloseNow()

	data, _ := json.Marshal(IncomingMsg{Type: "window.removed", WindowID: 7})
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("write: %v", err)
	}

	if msg := next(t, ctx, srv); msg.Type != TypeConnected {
		t.Fatalf("got %+v, want %s first", msg, TypeConnected)
	}
	if msg := next(t, ctx, srv); msg.Type != "window.removed" || msg.WindowID != 7 {
		t.Errorf("got %+v, want window.removed/7", msg)
	}
}

func TestServerSkipsMalformedMessages(t *testing.T) {
	srv := New(0)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn := dial(t, ctx, ts.URL)
	defer conn.CloseNow()

	conn.Write(ctx, websocket.MessageText, []byte("{not json"))
	conn.Write(ctx, websocket.MessageText, []byte(`{"type":"hello","browser":"firefox"}`))

	if msg := next(t, ctx, srv); msg.Type != TypeConnected {
		t.Fatalf("got %+v, want %s first", msg, TypeConnected)
	}
	if msg := next(t, ctx, srv); msg.Type != "hello" || msg.Browser != "firefox" {
		t.Errorf("got %+v, want hello from firefox", msg)
	}
}

func TestServerSendsCommand(t *testing.T) {
	srv := New(0)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn := dial(t, ctx, ts.URL)
	defer conn.CloseNow()
	waitConnected(t, srv)

	active := true
	cmd := OutgoingMsg{ID: "cmd-1", Action: "tabs.update", TabID: 42, Active: &active}
	if err := srv.Send(cmd); err != nil {
		t.Fatalf("send: %v", err)
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got OutgoingMsg
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != "cmd-1" || got.Action != "tabs.update" || got.TabID != 42 {
		t.Errorf("got %+v, want cmd-1/tabs.update/42", got)
	}
	if got.Active == nil || !*got.Active {
		t.Error("active flag lost in transit")
	}
}

func TestServerSendWithoutConnection(t *testing.T) {
	srv := New(0)
	err := srv.Send(OutgoingMsg{ID: "x", Action: "tabs.query"})
	if !errors.Is(err, ErrNoConnection) {
		t.Errorf("err = %v, want ErrNoConnection", err)
	}
}

func TestRouterStatus(t *testing.T) {
	srv := New(19192)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var status struct {
		Connected bool `json:"connected"`
		Port      int  `json:"port"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Connected {
		t.Error("connected = true with no extension attached")
	}
	if status.Port != 19192 {
		t.Errorf("port = %d, want 19192", status.Port)
	}
}

func TestRouterWebSocketPath(t *testing.T) {
	srv := New(0)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn := dial(t, ctx, ts.URL+"/ws")
	defer conn.CloseNow()
	waitConnected(t, srv)
}
