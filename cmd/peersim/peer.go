package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/meshlink/internal/model"
)

const outboundBufferSize = 100

// Peer is a development stand-in for the mesh controller. It greets every
// client with session_init, answers auth_status and node-system, echoes
// any other request carrying an id, and pushes node-current periodically.
type Peer struct {
	logger   *slog.Logger
	loggedIn bool
	interval time.Duration
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	nodes map[string]json.RawMessage // node_id -> last node-system body

	sessions atomic.Int64
}

// NewPeer creates a peer. interval <= 0 disables node-current pushes.
func NewPeer(loggedIn bool, interval time.Duration, logger *slog.Logger) *Peer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Peer{
		logger:   logger,
		loggedIn: loggedIn,
		interval: interval,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		nodes: make(map[string]json.RawMessage),
	}
}

// Sessions returns how many session_init replies have been received.
func (p *Peer) Sessions() int64 {
	return p.sessions.Load()
}

// ServeHTTP upgrades the request and serves one client until it leaves.
func (p *Peer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		p.logger.Warn("upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	logger := p.logger.With("remote", r.RemoteAddr)
	logger.Info("client connected")

	out := make(chan model.Message, outboundBufferSize)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error { return p.write(ctx, conn, out) })
	g.Go(func() error { return p.read(ctx, conn, out, logger) })
	if p.interval > 0 {
		g.Go(func() error { return p.push(ctx, out) })
	}

	enqueue(ctx, out, model.Message{Subject: model.SubjectSessionInit})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Info("client disconnected", "reason", err)
		return
	}
	logger.Info("client disconnected")
}

func (p *Peer) write(ctx context.Context, conn *websocket.Conn, out <-chan model.Message) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-out:
			data, err := msg.Encode()
			if err != nil {
				return err
			}
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		}
	}
}

func (p *Peer) read(ctx context.Context, conn *websocket.Conn, out chan<- model.Message, logger *slog.Logger) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		msg, err := model.Decode(data)
		if err != nil {
			logger.Warn("dropping malformed frame", "error", err)
			continue
		}
		logger.Debug("received", "subject", msg.Subject, "id", msg.ID)

		for _, reply := range p.handle(msg, logger) {
			enqueue(ctx, out, reply)
		}
	}
}

// handle returns the replies to one client message.
func (p *Peer) handle(msg model.Message, logger *slog.Logger) []model.Message {
	switch msg.Subject {
	case model.SubjectSessionInit:
		p.sessions.Add(1)
		logger.Info("session announced", "session", msg.ID)
		return nil

	case model.SubjectAuthStatus:
		body, _ := json.Marshal(p.loggedIn)
		return []model.Message{{Subject: model.SubjectAuthStatus, ID: msg.ID, Body: body}}

	case model.SubjectConnect:
		return p.snapshot()

	case model.SubjectNodeSystem:
		var node struct {
			NodeID string `json:"node_id"`
		}
		ok := json.Unmarshal(msg.Body, &node) == nil && node.NodeID != "" && p.loggedIn
		if ok {
			p.mu.Lock()
			p.nodes[node.NodeID] = append(json.RawMessage(nil), msg.Body...)
			p.mu.Unlock()
			logger.Info("node saved", "node_id", node.NodeID)
		}
		body, _ := json.Marshal(ok)
		return []model.Message{{Subject: model.SubjectNodeSystem, ID: msg.ID, Body: body}}

	default:
		if msg.ID == "" {
			return nil
		}
		return []model.Message{msg}
	}
}

// snapshot returns every known node as node-system followed by node-current.
func (p *Peer) snapshot() []model.Message {
	p.mu.RLock()
	defer p.mu.RUnlock()

	msgs := make([]model.Message, 0, 2*len(p.nodes))
	for _, body := range p.nodes {
		msgs = append(msgs, model.Message{Subject: model.SubjectNodeSystem, Body: body})
	}
	for _, body := range p.nodes {
		msgs = append(msgs, model.Message{Subject: model.SubjectNodeCurrent, Body: body})
	}
	return msgs
}

func (p *Peer) push(ctx context.Context, out chan<- model.Message) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.mu.RLock()
			for _, body := range p.nodes {
				enqueue(ctx, out, model.Message{Subject: model.SubjectNodeCurrent, Body: body})
			}
			p.mu.RUnlock()
		}
	}
}

func enqueue(ctx context.Context, out chan<- model.Message, msg model.Message) {
	select {
	case out <- msg:
	case <-ctx.Done():
	}
}
