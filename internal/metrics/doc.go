// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Connection state, connects and disconnects
//   - Frames sent and received by subject
//   - Outbound queue depth and drops
//   - Pending requests and requests dropped without response
//   - Unroutable and malformed inbound frames
package metrics
