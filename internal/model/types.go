package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Subjects
// -----------------------------------------------------------------------------

// Subjects used by the reference deployment.
const (
	SubjectSessionInit = "session_init" // peer handshake, echoed back with the session identity
	SubjectAuthStatus  = "auth_status"  // body: bool login state
	SubjectConnect     = "connect"      // sent unconditionally at connection start
	SubjectNodeSystem  = "node-system"  // node update push and its ack
	SubjectNodeCurrent = "node-current" // live node state from the peer
)

// ErrMissingSubject is returned when a frame carries no subject.
var ErrMissingSubject = errors.New("message has no subject")

// -----------------------------------------------------------------------------
// Envelope
// -----------------------------------------------------------------------------

// Message is the envelope exchanged with the peer.
type Message struct {
	Subject string          `json:"subject"`
	ID      string          `json:"id,omitempty"`
	Body    json.RawMessage `json:"body,omitempty"`
}

// NewMessage builds a Message, encoding body as JSON. A nil body is omitted.
func NewMessage(subject string, body any) (Message, error) {
	msg := Message{Subject: subject}
	if body == nil {
		return msg, nil
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return Message{}, fmt.Errorf("encode body: %w", err)
	}
	msg.Body = raw
	return msg, nil
}

// Decode parses a single frame. Frames without a subject are rejected.
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	if msg.Subject == "" {
		return Message{}, ErrMissingSubject
	}
	return msg, nil
}

// Encode serializes the message for transmission.
func (m Message) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return data, nil
}

// BodyBool interprets the body as a JSON truthy value, the way the peer
// reports auth_status and node-system acks. Absent, null, false, 0 and ""
// are false.
func (m Message) BodyBool() bool {
	if len(m.Body) == 0 {
		return false
	}
	var v any
	if err := json.Unmarshal(m.Body, &v); err != nil {
		return false
	}
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case float64:
		return b != 0
	case string:
		return b != ""
	default:
		return true
	}
}

// -----------------------------------------------------------------------------
// Identifiers
// -----------------------------------------------------------------------------

var idPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

// NewID returns a random UUID v4 string.
func NewID() string {
	return uuid.NewString()
}

// IsValidID reports whether id has the canonical lower-case UUID v4 shape.
func IsValidID(id string) bool {
	return idPattern.MatchString(id)
}

// Handler receives an inbound message: a correlated response or a topic
// broadcast.
type Handler func(Message)
