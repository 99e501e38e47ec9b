package connection

import (
	"errors"
	"net/http"
	"time"

	"github.com/rickgao/meshlink/internal/notify"
	"github.com/rickgao/meshlink/internal/outbox"
)

// Errors
var (
	ErrNotConnected     = errors.New("not connected")
	ErrStaleConnection  = errors.New("connection stale (no ping)")
	ErrAlreadyClosed    = errors.New("already closed")
	ErrPeerClosed       = errors.New("peer closed the connection")
	ErrMalformedMessage = errors.New("malformed message")
	ErrUnroutable       = errors.New("unroutable message")
)

// State is the lifecycle state of the transport.
type State int32

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Notification texts.
const (
	HeaderConnection   = "Connection"
	TextInterrupted    = "Connection to server interrupted!"
	TextEnded          = "Connection to server ended!"
	TextUnroutablePref = "unable to identify message: "
)

// Renderer is asked to redraw after every state-affecting event.
type Renderer interface {
	Render()
}

// RenderFunc adapts a function to Renderer.
type RenderFunc func()

// Render implements Renderer.
func (f RenderFunc) Render() { f() }

// Notifier shows a notification to the user.
type Notifier interface {
	Notify(n notify.Notification)
}

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL              string        // WebSocket URL (e.g., wss://mesh.example.org/websocket)
	Header           http.Header   // Extra handshake headers
	HandshakeTimeout time.Duration // Dial handshake deadline
	PingInterval     time.Duration // Keepalive ping period
	PingTimeout      time.Duration // Max time without ping/pong before considering connection stale
	WriteTimeout     time.Duration // Write deadline for sends
	BufferSize       int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		PingTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		BufferSize:       1024,
	}
}

// ManagerConfig configures the Connection Manager.
type ManagerConfig struct {
	Client         ClientConfig  // Transport settings; Client.URL is the peer endpoint
	ReconnectDelay time.Duration // Wait after a close before reconnecting
	RetryInterval  time.Duration // Period of the outbound queue retry tick
	QueueOrder     outbox.Order  // Which queued entry a retry tick resends first
	QueueLimit     int           // Max queued messages (0 = unbounded)
	RequestTTL     time.Duration // Max time a request waits for its response
	MaxPending     int           // Max requests awaiting a response
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Client:         DefaultClientConfig(),
		ReconnectDelay: 5000 * time.Millisecond,
		RetryInterval:  300 * time.Millisecond,
		QueueOrder:     outbox.OrderFIFO,
		RequestTTL:     2 * time.Minute,
		MaxPending:     10000,
	}
}

// Stats is a point-in-time view of the manager.
type Stats struct {
	State          State
	QueueDepth     int
	QueueDropped   int64
	Pending        int
	Expired        int64
	Reconnects     int64
	Retries        int64
	Unroutable     int64
	Malformed      int64
	SessionPresent bool
	Topics         int // subscribed topics
	Handlers       int // handlers across all topics
}
