package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/meshlink/internal/correlation"
	"github.com/rickgao/meshlink/internal/metrics"
	"github.com/rickgao/meshlink/internal/model"
	"github.com/rickgao/meshlink/internal/notify"
	"github.com/rickgao/meshlink/internal/outbox"
	"github.com/rickgao/meshlink/internal/router"
	"github.com/rickgao/meshlink/internal/session"
	"github.com/rickgao/meshlink/internal/storage"
)

type eventKind int

const (
	evOpen eventKind = iota
	evError
	evMessage
	evClose
	evReconnect
)

func (k eventKind) String() string {
	switch k {
	case evOpen:
		return "open"
	case evError:
		return "error"
	case evMessage:
		return "message"
	case evClose:
		return "close"
	case evReconnect:
		return "reconnect"
	default:
		return "unknown"
	}
}

// event is posted by transport goroutines and timers to the event loop.
type event struct {
	kind eventKind
	gen  uint64 // transport generation the event belongs to
	msg  TimestampedMessage
	err  error
}

// Deps are the manager's collaborators. Nil fields get defaults: an
// in-memory identity, log notifications and no rendering.
type Deps struct {
	Identity *session.Identity
	Notifier Notifier
	Renderer Renderer

	// NewClient builds the transport for each connection attempt.
	NewClient func(ClientConfig, *slog.Logger) Client
}

// Manager keeps a single logical session alive over a reconnecting
// WebSocket transport.
type Manager struct {
	cfg       ManagerConfig
	logger    *slog.Logger
	identity  *session.Identity
	notifier  Notifier
	renderer  Renderer
	newClient func(ClientConfig, *slog.Logger) Client

	table    *correlation.Table
	registry *router.Registry
	queue    *outbox.Queue

	state atomic.Int32

	// Live transport
	mu     sync.Mutex
	client Client
	gen    uint64

	events         chan event
	reconnectTimer *time.Timer // event loop only

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started atomic.Bool

	reconnects atomic.Int64
	retries    atomic.Int64
	unroutable atomic.Int64
	malformed  atomic.Int64
}

// NewManager creates a Connection Manager. Zero config fields take the
// values of DefaultManagerConfig.
func NewManager(cfg ManagerConfig, deps Deps, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = withDefaults(cfg)

	m := &Manager{
		cfg:       cfg,
		logger:    logger,
		identity:  deps.Identity,
		notifier:  deps.Notifier,
		renderer:  deps.Renderer,
		newClient: deps.NewClient,
		registry:  router.NewRegistry(logger.With("component", "router")),
		queue:     outbox.NewQueue(cfg.QueueOrder, cfg.QueueLimit),
		events:    make(chan event, 256),
		ctx:       context.Background(),
	}
	if m.identity == nil {
		m.identity = session.NewIdentity(storage.NewMemoryStore(), "", logger)
	}
	if m.notifier == nil {
		m.notifier = notify.NewLog(logger)
	}
	if m.newClient == nil {
		m.newClient = NewClient
	}
	m.table = correlation.NewTable(correlation.Config{
		TTL:      cfg.RequestTTL,
		Capacity: cfg.MaxPending,
	}, func(string) {
		metrics.RecordRequestExpired()
	}, logger.With("component", "correlation"))

	return m
}

func withDefaults(cfg ManagerConfig) ManagerConfig {
	def := DefaultManagerConfig()
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = def.ReconnectDelay
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = def.RetryInterval
	}
	if cfg.QueueOrder == "" {
		cfg.QueueOrder = def.QueueOrder
	}
	if cfg.RequestTTL <= 0 {
		cfg.RequestTTL = def.RequestTTL
	}
	if cfg.MaxPending <= 0 {
		cfg.MaxPending = def.MaxPending
	}
	return cfg
}

// Start begins connecting and runs the event loop until ctx is cancelled or
// Stop is called.
func (m *Manager) Start(ctx context.Context) error {
	if !m.started.CompareAndSwap(false, true) {
		return errors.New("connection manager already started")
	}
	m.ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)
	go m.run()

	m.logger.Info("connection manager started",
		"url", m.cfg.Client.URL,
		"reconnect_delay", m.cfg.ReconnectDelay,
		"retry_interval", m.cfg.RetryInterval,
		"queue_order", m.cfg.QueueOrder,
	)
	return nil
}

// Stop shuts down the event loop and closes the live transport.
func (m *Manager) Stop(ctx context.Context) error {
	m.logger.Info("stopping connection manager")

	if m.cancel != nil {
		m.cancel()
	}

	// Wait for goroutines with timeout
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("shutdown timeout, forcing close")
	}

	m.mu.Lock()
	c := m.client
	m.mu.Unlock()
	if c != nil {
		c.Close()
	}
	m.setState(StateClosed)

	dropped := m.queue.Clear()
	metrics.SetQueueDepth(0)
	pending := m.table.Purge()
	metrics.SetPendingRequests(0)

	attrs := []any{"queued_dropped", len(dropped), "pending_dropped", pending}
	if len(dropped) > 0 {
		subjects := make([]string, 0, len(dropped))
		for _, e := range dropped {
			subjects = append(subjects, e.Message.Subject)
		}
		attrs = append(attrs, "queued_subjects", subjects)
	}
	m.logger.Info("connection manager stopped", attrs...)
	return nil
}

// -----------------------------------------------------------------------------
// Public API
// -----------------------------------------------------------------------------

// Send transmits msg, or queues it while the transport is not open. When cb
// is non-nil it receives the response carrying the same id. Send fails only
// when the body is not valid JSON.
func (m *Manager) Send(msg model.Message, cb model.Handler) error {
	if len(msg.Body) > 0 && !json.Valid(msg.Body) {
		return fmt.Errorf("%w: body of %q is not valid JSON", ErrMalformedMessage, msg.Subject)
	}

	e := outbox.Entry{Message: msg, Callback: cb}
	if !m.transmit(&e) {
		m.enqueue(e)
	}
	return nil
}

// transmit writes e to the live transport. The id is assigned and the
// callback registered before the write so a fast response finds it. On
// failure the registration is undone and false is returned.
func (m *Manager) transmit(e *outbox.Entry) bool {
	if m.State() != StateOpen {
		return false
	}

	m.mu.Lock()
	c := m.client
	m.mu.Unlock()
	if c == nil {
		return false
	}

	if e.Message.ID == "" {
		e.Message.ID = model.NewID()
	}
	if e.Callback != nil {
		m.table.Put(e.Message.ID, e.Callback)
		metrics.SetPendingRequests(m.table.Len())
	}

	data, err := e.Message.Encode()
	if err == nil {
		err = c.Send(data)
	}
	if err != nil {
		if e.Callback != nil {
			m.table.Remove(e.Message.ID)
			metrics.SetPendingRequests(m.table.Len())
		}
		m.logger.Debug("transmit failed", "subject", e.Message.Subject, "id", e.Message.ID, "error", err)
		return false
	}

	metrics.RecordFrameSent(e.Message.Subject)
	m.logger.Debug("message sent", "subject", e.Message.Subject, "id", e.Message.ID)
	return true
}

// SendBody encodes body as JSON and sends it under subject.
func (m *Manager) SendBody(subject string, body any, cb model.Handler) error {
	msg, err := model.NewMessage(subject, body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return m.Send(msg, cb)
}

// SetHandler makes fn the only handler of topic.
func (m *Manager) SetHandler(topic string, fn model.Handler) {
	m.registry.Set(topic, fn)
}

// AddHandler appends fn to the handlers of topic.
func (m *Manager) AddHandler(topic string, fn model.Handler) {
	m.registry.Add(topic, fn)
}

// RemoveHandler drops the most recently added handler of topic, or clears
// the topic when only one handler is left.
func (m *Manager) RemoveHandler(topic string) {
	m.registry.Remove(topic)
}

// State returns the current transport state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Session returns the session identity.
func (m *Manager) Session() *session.Identity {
	return m.identity
}

// Stats returns current statistics.
func (m *Manager) Stats() Stats {
	rs := m.registry.Stats()
	return Stats{
		State:          m.State(),
		QueueDepth:     m.queue.Len(),
		QueueDropped:   m.queue.Stats().TotalDropped,
		Pending:        m.table.Len(),
		Expired:        m.table.Evicted(),
		Reconnects:     m.reconnects.Load(),
		Retries:        m.retries.Load(),
		Unroutable:     m.unroutable.Load(),
		Malformed:      m.malformed.Load(),
		SessionPresent: m.identity.Current() != "",
		Topics:         rs.Topics,
		Handlers:       rs.Handlers,
	}
}

// -----------------------------------------------------------------------------
// Event loop
// -----------------------------------------------------------------------------

func (m *Manager) run() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.RetryInterval)
	defer ticker.Stop()

	m.connect()

	for {
		select {
		case <-m.ctx.Done():
			if m.reconnectTimer != nil {
				m.reconnectTimer.Stop()
			}
			return
		case ev := <-m.events:
			m.handle(ev)
		case <-ticker.C:
			m.retry()
		}
	}
}

func (m *Manager) post(ev event) {
	select {
	case m.events <- ev:
	case <-m.ctx.Done():
	}
}

func (m *Manager) currentGen() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

func (m *Manager) handle(ev event) {
	if ev.kind != evReconnect && ev.gen != m.currentGen() {
		m.logger.Debug("ignoring event from superseded connection", "event", ev.kind, "gen", ev.gen)
		return
	}

	switch ev.kind {
	case evOpen:
		m.onOpen()
	case evError:
		m.onError(ev.err)
	case evMessage:
		m.onMessage(ev.msg)
	case evClose:
		m.onClose(ev.err)
	case evReconnect:
		if m.State() != StateClosed {
			return
		}
		m.reconnects.Add(1)
		metrics.RecordConnectionEvent(metrics.EventReconnect)
		m.connect()
	}
}

// connect replaces the transport with a fresh one and dials it in the
// background.
func (m *Manager) connect() {
	m.mu.Lock()
	m.gen++
	gen := m.gen
	c := m.newClient(m.cfg.Client, m.logger.With("gen", gen))
	m.client = c
	m.mu.Unlock()

	m.setState(StateConnecting)
	metrics.RecordConnectionEvent(metrics.EventConnect)
	m.logger.Info("connecting", "url", m.cfg.Client.URL, "gen", gen)

	// Queued until the transport opens.
	m.Send(model.Message{Subject: model.SubjectAuthStatus}, nil)
	m.Send(model.Message{Subject: model.SubjectConnect}, nil)

	m.wg.Add(1)
	go m.dial(gen, c)
}

// dial connects c and then forwards its traffic as events.
func (m *Manager) dial(gen uint64, c Client) {
	defer m.wg.Done()

	if err := c.Connect(m.ctx); err != nil {
		c.Close()
		m.post(event{kind: evError, gen: gen, err: err})
		m.post(event{kind: evClose, gen: gen, err: err})
		return
	}
	m.post(event{kind: evOpen, gen: gen})
	m.pump(gen, c)
}

func (m *Manager) pump(gen uint64, c Client) {
	for {
		select {
		case <-m.ctx.Done():
			return
		case msg := <-c.Messages():
			m.post(event{kind: evMessage, gen: gen, msg: msg})
		case err := <-c.Errors():
			if !errors.Is(err, ErrPeerClosed) {
				m.post(event{kind: evError, gen: gen, err: err})
			}
			c.Close()
		case <-c.Done():
			m.drain(gen, c)
			m.post(event{kind: evClose, gen: gen})
			return
		}
	}
}

// drain forwards frames read before the transport closed.
func (m *Manager) drain(gen uint64, c Client) {
	for {
		select {
		case msg := <-c.Messages():
			m.post(event{kind: evMessage, gen: gen, msg: msg})
		default:
			return
		}
	}
}

func (m *Manager) onOpen() {
	m.setState(StateOpen)
	metrics.RecordConnectionEvent(metrics.EventOpen)
	m.logger.Info("connection open", "queued", m.queue.Len())
	m.render()
}

func (m *Manager) onError(err error) {
	metrics.RecordConnectionEvent(metrics.EventError)
	m.logger.Warn("connection error", "error", err, "state", m.State())
	if m.State() != StateClosed {
		m.notify(notify.Error, HeaderConnection, TextInterrupted)
	}
	m.render()

	m.mu.Lock()
	c := m.client
	m.mu.Unlock()
	if c != nil {
		c.Close()
	}
}

func (m *Manager) onClose(err error) {
	metrics.RecordConnectionEvent(metrics.EventClose)
	m.logger.Info("connection closed", "error", err, "reconnect_in", m.cfg.ReconnectDelay)
	m.notify(notify.Warning, HeaderConnection, TextEnded)
	m.render()
	m.setState(StateClosed)

	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
	}
	m.reconnectTimer = time.AfterFunc(m.cfg.ReconnectDelay, func() {
		m.post(event{kind: evReconnect})
	})
}

func (m *Manager) onMessage(raw TimestampedMessage) {
	msg, err := model.Decode(raw.Data)
	if err != nil {
		m.malformed.Add(1)
		metrics.RecordFrameReceived(metrics.OutcomeMalformed)
		m.logger.Warn("dropping malformed message",
			"error", fmt.Errorf("%w: %v", ErrMalformedMessage, err),
			"size", len(raw.Data),
		)
		return
	}
	m.dispatch(msg)
}

// dispatch routes one inbound message. The first matching rule wins.
func (m *Manager) dispatch(msg model.Message) {
	defer m.render()

	if msg.Subject == model.SubjectSessionInit {
		id, err := m.identity.Ensure(m.ctx)
		if err != nil {
			m.logger.Warn("session identity not persisted", "error", err)
		}
		msg.ID = id
		metrics.RecordFrameReceived(metrics.OutcomeSession)
		if err := m.Send(msg, nil); err != nil {
			m.logger.Warn("failed to answer session_init", "error", err)
		}
		return
	}

	if cb, ok := m.table.Take(msg.ID); ok {
		metrics.SetPendingRequests(m.table.Len())
		metrics.RecordFrameReceived(metrics.OutcomeResponse)
		cb(msg)
		return
	}

	if m.registry.Dispatch(msg) {
		metrics.RecordFrameReceived(metrics.OutcomeSubscribed)
		return
	}

	m.unroutable.Add(1)
	metrics.RecordFrameReceived(metrics.OutcomeUnroutable)
	m.logger.Warn("unroutable message", "subject", msg.Subject, "id", msg.ID, "error", ErrUnroutable)
	m.notify(notify.Warning, "", TextUnroutablePref+msg.Subject)
}

// retry makes one resend attempt per tick. An entry that cannot be
// transmitted goes back to the head of the queue.
func (m *Manager) retry() {
	e, ok := m.queue.Pop()
	if !ok {
		return
	}
	m.retries.Add(1)
	if !m.transmit(&e) && !m.queue.Requeue(e) {
		metrics.RecordQueueDrop()
		m.logger.Warn("outbound queue full, dropping message", "subject", e.Message.Subject)
	}
	metrics.SetQueueDepth(m.queue.Len())
}

func (m *Manager) enqueue(e outbox.Entry) {
	if !m.queue.Push(e) {
		metrics.RecordQueueDrop()
		m.logger.Warn("outbound queue full, dropping message",
			"subject", e.Message.Subject,
			"limit", m.cfg.QueueLimit,
		)
		return
	}
	metrics.SetQueueDepth(m.queue.Len())
}

func (m *Manager) setState(s State) {
	m.state.Store(int32(s))
	metrics.SetConnectionState(int(s))
}

func (m *Manager) render() {
	if m.renderer != nil {
		m.renderer.Render()
	}
}

func (m *Manager) notify(level notify.Level, header, body string) {
	m.notifier.Notify(notify.Notification{Header: header, Level: level, Body: body})
}
