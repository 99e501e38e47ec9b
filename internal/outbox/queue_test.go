package outbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/meshlink/internal/model"
)

func subjects(q *Queue) []string {
	var out []string
	for {
		e, ok := q.Pop()
		if !ok {
			return out
		}
		out = append(out, e.Message.Subject)
	}
}

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue(OrderFIFO, 0)
	for _, s := range []string{"auth_status", "connect", "node-system"} {
		require.True(t, q.Push(Entry{Message: model.Message{Subject: s}}))
	}
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, []string{"auth_status", "connect", "node-system"}, subjects(q))
}

func TestQueue_LIFO(t *testing.T) {
	q := NewQueue(OrderLIFO, 0)
	for _, s := range []string{"auth_status", "connect", "node-system"} {
		q.Push(Entry{Message: model.Message{Subject: s}})
	}
	assert.Equal(t, []string{"node-system", "connect", "auth_status"}, subjects(q))
}

func TestQueue_KeepsCallback(t *testing.T) {
	q := NewQueue("", 0)
	assert.Equal(t, OrderFIFO, q.Order())

	called := false
	q.Push(Entry{Message: model.Message{Subject: "ping"}, Callback: func(model.Message) { called = true }})

	e, ok := q.Pop()
	require.True(t, ok)
	require.NotNil(t, e.Callback)
	e.Callback(model.Message{})
	assert.True(t, called)
}

func TestQueue_Clear(t *testing.T) {
	q := NewQueue(OrderLIFO, 0)
	q.Push(Entry{Message: model.Message{Subject: "a"}})
	q.Push(Entry{Message: model.Message{Subject: "b"}})

	cleared := q.Clear()
	require.Len(t, cleared, 2)
	assert.Equal(t, "a", cleared[0].Message.Subject)
	assert.Equal(t, 0, q.Len())
}

func TestParseOrder(t *testing.T) {
	o, err := ParseOrder("")
	require.NoError(t, err)
	assert.Equal(t, OrderFIFO, o)

	o, err = ParseOrder("lifo")
	require.NoError(t, err)
	assert.Equal(t, OrderLIFO, o)

	_, err = ParseOrder("random")
	assert.Error(t, err)
}

func TestQueue_RequeueKeepsOrder(t *testing.T) {
	for _, order := range []Order{OrderFIFO, OrderLIFO} {
		t.Run(string(order), func(t *testing.T) {
			q := NewQueue(order, 0)
			for _, s := range []string{"a", "b", "c"} {
				q.Push(Entry{Message: model.Message{Subject: s}})
			}

			first, ok := q.Pop()
			require.True(t, ok)
			require.True(t, q.Requeue(first))

			again, ok := q.Pop()
			require.True(t, ok)
			assert.Equal(t, first.Message.Subject, again.Message.Subject)
			assert.Equal(t, 2, q.Len())
		})
	}
}
