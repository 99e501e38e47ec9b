// Package database provides the PostgreSQL-backed session store.
//
// Several clients can share one database; each uses its own key under the
// session_store table, which is created on first connect.
package database
