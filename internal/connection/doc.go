// Package connection implements the Connection Manager component.
//
// The Connection Manager:
//   - Keeps one WebSocket connection to the peer alive, reconnecting after a
//     fixed delay whenever it closes
//   - Queues outbound messages while the transport is not open and resends
//     one per retry tick
//   - Correlates responses with the callback of the request that caused them
//   - Fans subject broadcasts out to subscribed handlers
//   - Answers the peer's session_init handshake with the persisted session
//
// Transport goroutines only post events; all state transitions and dispatch
// happen on the manager's event loop.
package connection
