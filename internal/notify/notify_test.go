package notify

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotification_String(t *testing.T) {
	assert.Equal(t, "[error] Connection: lost", Notification{Header: "Connection", Level: Error, Body: "lost"}.String())
	assert.Equal(t, "[warning] odd", Notification{Level: Warning, Body: "odd"}.String())
}

func TestLog_Notify(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	NewLog(logger).Notify(Notification{Header: "Connection", Level: Error, Body: "Connection to server interrupted!"})

	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "header=Connection")
	assert.Contains(t, out, "Connection to server interrupted!")
}

func TestTerminal_Notify(t *testing.T) {
	pterm.DisableColor()
	defer pterm.EnableColor()

	var buf bytes.Buffer
	term := NewTerminal(&buf)
	term.Notify(Notification{Header: "Save", Level: Success, Body: "Settings for 'n1' saved."})
	term.Notify(Notification{Level: Warning, Body: "unable to identify message: x"})

	out := buf.String()
	assert.Contains(t, out, "Save")
	assert.Contains(t, out, "Settings for 'n1' saved.")
	assert.Contains(t, out, "unable to identify message: x")
}

func TestMultiAndRecorder(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	Multi{a, b}.Notify(Notification{Level: Info, Body: "hi"})

	require.Len(t, a.All(), 1)
	assert.Equal(t, 1, b.Count(Info, "hi"))
	assert.Equal(t, 0, b.Count(Error, "hi"))
}
