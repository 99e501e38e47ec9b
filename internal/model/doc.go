// Package model defines the wire types shared by the session client.
//
// Conventions:
//   - Every frame is a JSON object {subject, id?, body?}
//   - IDs: UUID v4 strings (correlation identifiers and the session identity)
//   - Bodies are kept as raw JSON until a handler decodes them
package model
