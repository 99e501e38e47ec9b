package nodes

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rickgao/meshlink/internal/connection"
	"github.com/rickgao/meshlink/internal/model"
	"github.com/rickgao/meshlink/internal/notify"
)

// Notification headers and texts.
const (
	HeaderLogin  = "Login"
	HeaderSave   = "Save"
	TextWelcome  = "Welcome back!"
	savedFormat  = "Settings for '%s' saved."
	failedFormat = "Settings for '%s' were not saved."
)

// Node is the record the peer keeps for one mesh node. Nested sections are
// carried opaquely.
type Node struct {
	NodeID     string          `json:"node_id"`
	Hostname   string          `json:"hostname,omitempty"`
	Owner      string          `json:"owner,omitempty"`
	Lastseen   *time.Time      `json:"lastseen,omitempty"`
	Location   *Location       `json:"location,omitempty"`
	Wireless   json.RawMessage `json:"wireless,omitempty"`
	Statistics json.RawMessage `json:"statistics,omitempty"`
}

// Location is a node's geographic position.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Updater receives the node and login state pushed by the peer.
type Updater interface {
	// UpdateNode stores a node record. system is true for node-system
	// records (configured state) and false for node-current (live state).
	UpdateNode(body json.RawMessage, system bool)

	// SetLogin records the login state reported by auth_status.
	SetLogin(loggedIn bool)
}

// Subscriber is the part of connection.Manager Register needs.
type Subscriber interface {
	SetHandler(topic string, fn model.Handler)
}

// Sender is the part of connection.Manager SendNode needs.
type Sender interface {
	Send(msg model.Message, cb model.Handler) error
}

// Register installs the auth_status, node-system and node-current
// subscriptions. r may be nil.
func Register(sub Subscriber, u Updater, n connection.Notifier, r connection.Renderer) {
	sub.SetHandler(model.SubjectAuthStatus, func(msg model.Message) {
		if msg.BodyBool() {
			u.SetLogin(true)
			n.Notify(notify.Notification{Header: HeaderLogin, Level: notify.Success, Body: TextWelcome})
		} else {
			u.SetLogin(false)
		}
		if r != nil {
			r.Render()
		}
	})
	sub.SetHandler(model.SubjectNodeSystem, func(msg model.Message) {
		u.UpdateNode(msg.Body, true)
	})
	sub.SetHandler(model.SubjectNodeCurrent, func(msg model.Message) {
		u.UpdateNode(msg.Body, false)
	})
}

// SendNode pushes node under node-system. When the peer acknowledges, a
// success or error notification is raised depending on the ack body, then
// cb (if non-nil) receives the ack.
func SendNode(s Sender, n connection.Notifier, node Node, cb model.Handler) error {
	body, err := json.Marshal(node)
	if err != nil {
		return fmt.Errorf("encode node %q: %w", node.NodeID, err)
	}

	msg := model.Message{Subject: model.SubjectNodeSystem, Body: body}
	return s.Send(msg, func(ack model.Message) {
		if ack.BodyBool() {
			n.Notify(notify.Notification{
				Header: HeaderSave,
				Level:  notify.Success,
				Body:   fmt.Sprintf(savedFormat, node.NodeID),
			})
		} else {
			n.Notify(notify.Notification{
				Header: HeaderSave,
				Level:  notify.Error,
				Body:   fmt.Sprintf(failedFormat, node.NodeID),
			})
		}
		if cb != nil {
			cb(ack)
		}
	})
}
