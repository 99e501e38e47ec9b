// Package nodes wires the node subjects of the mesh protocol onto a
// connection.Manager.
//
// Register installs the built-in subscriptions: login state from
// auth_status and node records from node-system and node-current. SendNode
// pushes an edited node record and reports whether the peer saved it. Cache
// is an in-memory Updater keeping the latest record per node.
package nodes
