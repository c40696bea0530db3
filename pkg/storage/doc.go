// Package storage provides the secure key-value contract the session
// manager persists credentials through, and adapters implementing it.
//
// The store is a cache of the live session, never the source of truth
// while the process runs. Three adapters ship with the SDK:
//
//   - MemoryStore: ephemeral, for tests and short-lived processes
//   - FileStore: a single JSON file, optionally sealed with an AEAD
//   - BadgerStore: embedded Badger database for server-side embedders
//
// Writes are all-or-nothing per key.
package storage
