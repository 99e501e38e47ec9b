// Package notify delivers user-facing notifications raised by the client.
package notify

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/pterm/pterm"
)

// Level is the severity of a notification.
type Level string

// Notification levels.
const (
	Success Level = "success"
	Info    Level = "info"
	Warning Level = "warning"
	Error   Level = "error"
)

// Notification is a single message for the user. Header is optional.
type Notification struct {
	Header string
	Level  Level
	Body   string
}

// String renders the notification as one line.
func (n Notification) String() string {
	if n.Header == "" {
		return fmt.Sprintf("[%s] %s", n.Level, n.Body)
	}
	return fmt.Sprintf("[%s] %s: %s", n.Level, n.Header, n.Body)
}

// Log writes notifications to a slog logger.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a Log notifier.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

// Notify implements the connection notifier.
func (l *Log) Notify(n Notification) {
	attrs := []any{"level", string(n.Level)}
	if n.Header != "" {
		attrs = append(attrs, "header", n.Header)
	}
	switch n.Level {
	case Error:
		l.logger.Error(n.Body, attrs...)
	case Warning:
		l.logger.Warn(n.Body, attrs...)
	default:
		l.logger.Info(n.Body, attrs...)
	}
}

// Terminal prints notifications with pterm prefix printers.
type Terminal struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTerminal creates a Terminal notifier writing to w (nil = stdout).
func NewTerminal(w io.Writer) *Terminal {
	if w == nil {
		w = os.Stdout
	}
	return &Terminal{w: w}
}

// Notify implements the connection notifier.
func (t *Terminal) Notify(n Notification) {
	var p pterm.PrefixPrinter
	switch n.Level {
	case Success:
		p = pterm.Success
	case Warning:
		p = pterm.Warning
	case Error:
		p = pterm.Error
	default:
		p = pterm.Info
	}
	if n.Header != "" {
		p = *p.WithScope(pterm.Scope{Text: n.Header, Style: pterm.NewStyle(pterm.FgGray)})
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	p.WithWriter(t.w).Println(n.Body)
}

// Multi fans a notification out to several notifiers.
type Multi []interface{ Notify(Notification) }

// Notify implements the connection notifier.
func (m Multi) Notify(n Notification) {
	for _, x := range m {
		x.Notify(n)
	}
}

// Recorder keeps every notification it receives.
type Recorder struct {
	mu  sync.Mutex
	all []Notification
}

// Notify implements the connection notifier.
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, n)
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.all...)
}

// Count returns how many recorded notifications match level and body.
func (r *Recorder) Count(level Level, body string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int
	for _, x := range r.all {
		if x.Level == level && x.Body == body {
			n++
		}
	}
	return n
}
