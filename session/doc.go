// Package session provides the durable, expiring conversational state of the
// runtime. Each session is serialized as one value in a key-value store (in
// memory for tests and development, SQLite for durable deployments), keyed by
// session id, with a 24 hour inactivity TTL refreshed on every write and a
// bounded message history (oldest entries evicted past 100).
//
// Sessions move through a small status machine: active <-> paused, active or
// paused -> completed, with no transition out of completed. Expired sessions
// are purged lazily on read and in bulk by the Cleanup sweep.
package session
