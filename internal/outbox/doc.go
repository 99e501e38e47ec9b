// Package outbox holds outbound messages that could not be transmitted because
// no connection was open.
//
// The queue is a growable ring buffer. The connection manager pops one entry per
// retry tick and tries to transmit it; an entry that still cannot be sent is
// requeued so the next tick sees it first.
package outbox
