package nodes

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/meshlink/internal/connection"
	"github.com/rickgao/meshlink/internal/model"
	"github.com/rickgao/meshlink/internal/notify"
)

// fakeManager records subscriptions and sends.
type fakeManager struct {
	handlers map[string]model.Handler
	sent     []model.Message
	pending  map[int]model.Handler
}

func newFakeManager() *fakeManager {
	return &fakeManager{handlers: map[string]model.Handler{}, pending: map[int]model.Handler{}}
}

func (f *fakeManager) SetHandler(topic string, fn model.Handler) { f.handlers[topic] = fn }

func (f *fakeManager) Send(msg model.Message, cb model.Handler) error {
	f.pending[len(f.sent)] = cb
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeManager) deliver(subject, body string) {
	f.handlers[subject](model.Message{Subject: subject, Body: json.RawMessage(body)})
}

func TestRegister_AuthStatus(t *testing.T) {
	fm := newFakeManager()
	cache := NewCache(nil)
	rec := &notify.Recorder{}
	var renders int
	Register(fm, cache, rec, connection.RenderFunc(func() { renders++ }))

	fm.deliver(model.SubjectAuthStatus, "true")
	assert.True(t, cache.LoggedIn())
	assert.Equal(t, 1, rec.Count(notify.Success, TextWelcome))

	fm.deliver(model.SubjectAuthStatus, "false")
	assert.False(t, cache.LoggedIn())
	assert.Equal(t, 1, rec.Count(notify.Success, TextWelcome))
	assert.Equal(t, 2, renders)
}

func TestRegister_NodeUpdates(t *testing.T) {
	fm := newFakeManager()
	cache := NewCache(nil)
	Register(fm, cache, &notify.Recorder{}, nil)

	fm.deliver(model.SubjectNodeSystem, `{"node_id":"c0ffee","hostname":"roof","owner":"ops"}`)
	fm.deliver(model.SubjectNodeCurrent, `{"node_id":"c0ffee","hostname":"roof-live","statistics":{"clients":{"wifi":3}}}`)
	fm.deliver(model.SubjectNodeCurrent, `{"node_id":"beef"}`)

	sys, ok := cache.System("c0ffee")
	require.True(t, ok)
	assert.Equal(t, "roof", sys.Hostname)

	cur, ok := cache.Current("c0ffee")
	require.True(t, ok)
	assert.Equal(t, "roof-live", cur.Hostname)
	assert.JSONEq(t, `{"clients":{"wifi":3}}`, string(cur.Statistics))

	_, ok = cache.System("beef")
	assert.False(t, ok)
	assert.Equal(t, []string{"beef", "c0ffee"}, cache.IDs())
}

func TestCache_ReplacesWholeRecord(t *testing.T) {
	cache := NewCache(nil)
	cache.UpdateNode(json.RawMessage(`{"node_id":"n1","hostname":"a","owner":"x"}`), true)
	cache.UpdateNode(json.RawMessage(`{"node_id":"n1","hostname":"b"}`), true)

	n, ok := cache.System("n1")
	require.True(t, ok)
	assert.Equal(t, "b", n.Hostname)
	assert.Empty(t, n.Owner)
}

func TestCache_IgnoresBadRecords(t *testing.T) {
	cache := NewCache(nil)
	cache.UpdateNode(json.RawMessage(`not json`), true)
	cache.UpdateNode(json.RawMessage(`{"hostname":"anonymous"}`), false)
	assert.Empty(t, cache.IDs())
}

func TestSendNode(t *testing.T) {
	tests := []struct {
		name  string
		ack   string
		level notify.Level
		body  string
	}{
		{name: "saved", ack: "true", level: notify.Success, body: "Settings for 'n1' saved."},
		{name: "rejected", ack: "false", level: notify.Error, body: "Settings for 'n1' were not saved."},
		{name: "empty ack", ack: "", level: notify.Error, body: "Settings for 'n1' were not saved."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm := newFakeManager()
			rec := &notify.Recorder{}

			var acked bool
			err := SendNode(fm, rec, Node{NodeID: "n1", Hostname: "roof"}, func(model.Message) { acked = true })
			require.NoError(t, err)

			require.Len(t, fm.sent, 1)
			assert.Equal(t, model.SubjectNodeSystem, fm.sent[0].Subject)
			assert.JSONEq(t, `{"node_id":"n1","hostname":"roof"}`, string(fm.sent[0].Body))

			fm.pending[0](model.Message{Subject: model.SubjectNodeSystem, Body: json.RawMessage(tt.ack)})

			assert.True(t, acked)
			all := rec.All()
			require.Len(t, all, 1)
			assert.Equal(t, HeaderSave, all[0].Header)
			assert.Equal(t, tt.level, all[0].Level)
			assert.Equal(t, tt.body, all[0].Body)
		})
	}
}
