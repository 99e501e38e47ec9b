package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/meshlink/internal/connection"
	"github.com/rickgao/meshlink/internal/model"
	"github.com/rickgao/meshlink/internal/nodes"
	"github.com/rickgao/meshlink/internal/notify"
	"github.com/rickgao/meshlink/internal/session"
	"github.com/rickgao/meshlink/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startPeer(t *testing.T, loggedIn bool, interval time.Duration) (*Peer, string) {
	t.Helper()
	p := NewPeer(loggedIn, interval, quietLogger())
	srv := httptest.NewServer(p)
	t.Cleanup(srv.Close)
	return p, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn) model.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	msg, err := model.Decode(data)
	require.NoError(t, err)
	return msg
}

func writeMsg(t *testing.T, conn *websocket.Conn, subject, id, body string) {
	t.Helper()
	msg := model.Message{Subject: subject, ID: id}
	if body != "" {
		msg.Body = json.RawMessage(body)
	}
	data, err := msg.Encode()
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func TestPeer_Protocol(t *testing.T) {
	p, url := startPeer(t, true, 0)
	conn := dial(t, url)

	assert.Equal(t, model.SubjectSessionInit, readMsg(t, conn).Subject)

	writeMsg(t, conn, model.SubjectSessionInit, "6f1c1c4e-5b8e-4a53-9d3c-7f4e2b9a1d20", "")
	writeMsg(t, conn, model.SubjectAuthStatus, "a1", "")
	reply := readMsg(t, conn)
	assert.Equal(t, model.SubjectAuthStatus, reply.Subject)
	assert.Equal(t, "a1", reply.ID)
	assert.True(t, reply.BodyBool())
	assert.EqualValues(t, 1, p.Sessions())

	writeMsg(t, conn, model.SubjectNodeSystem, "n1", `{"node_id":"c0ffee","hostname":"gw-north"}`)
	ack := readMsg(t, conn)
	assert.Equal(t, "n1", ack.ID)
	assert.True(t, ack.BodyBool())

	writeMsg(t, conn, "ping", "p1", `{"seq":7}`)
	echo := readMsg(t, conn)
	assert.Equal(t, "ping", echo.Subject)
	assert.Equal(t, "p1", echo.ID)
	assert.JSONEq(t, `{"seq":7}`, string(echo.Body))

	// A second client gets the saved node on connect.
	other := dial(t, url)
	readMsg(t, other) // session_init
	writeMsg(t, other, model.SubjectConnect, "c1", "")
	sys := readMsg(t, other)
	cur := readMsg(t, other)
	assert.Equal(t, model.SubjectNodeSystem, sys.Subject)
	assert.Equal(t, model.SubjectNodeCurrent, cur.Subject)
	assert.Contains(t, string(sys.Body), "gw-north")
}

func TestPeer_RejectsSaveWhenLoggedOut(t *testing.T) {
	_, url := startPeer(t, false, 0)
	conn := dial(t, url)
	readMsg(t, conn)

	writeMsg(t, conn, model.SubjectNodeSystem, "n1", `{"node_id":"c0ffee"}`)
	ack := readMsg(t, conn)
	assert.False(t, ack.BodyBool())
}

func TestPeer_WithManager(t *testing.T) {
	p, url := startPeer(t, true, 20*time.Millisecond)

	cfg := connection.DefaultManagerConfig()
	cfg.Client.URL = url
	cfg.ReconnectDelay = 100 * time.Millisecond
	cfg.RetryInterval = 10 * time.Millisecond

	rec := &notify.Recorder{}
	store := storage.NewMemoryStore()
	identity := session.NewIdentity(store, "", quietLogger())
	cache := nodes.NewCache(quietLogger())

	mgr := connection.NewManager(cfg, connection.Deps{Identity: identity, Notifier: rec}, quietLogger())
	nodes.Register(mgr, cache, rec, nil)
	require.NoError(t, mgr.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		mgr.Stop(ctx)
	})

	require.Eventually(t, func() bool {
		return cache.LoggedIn() && p.Sessions() == 1
	}, 3*time.Second, 10*time.Millisecond)
	assert.NotEmpty(t, identity.Current())
	assert.Equal(t, 1, rec.Count(notify.Success, nodes.TextWelcome))

	saved := make(chan bool, 1)
	err := nodes.SendNode(mgr, rec, nodes.Node{NodeID: "c0ffee", Hostname: "gw-north"}, func(msg model.Message) {
		saved <- msg.BodyBool()
	})
	require.NoError(t, err)

	select {
	case ok := <-saved:
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for save ack")
	}
	assert.Equal(t, 1, rec.Count(notify.Success, "Settings for 'c0ffee' saved."))

	require.Eventually(t, func() bool {
		n, ok := cache.Current("c0ffee")
		return ok && n.Hostname == "gw-north"
	}, 2*time.Second, 10*time.Millisecond)
}
