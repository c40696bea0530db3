// Package auth owns the client session: authentication state, token
// validation, persistence, and transparent refresh.
//
// A Manager holds exactly one session. All state transitions are
// serialized; observers subscribe to an ordered stream of state changes
// with most-recent-state-wins delivery. Token refreshes are single-flight:
// concurrent callers needing a refresh share one backend call and receive
// the same outcome.
//
// The token store is a cache of the live session. It is written before a
// new state becomes observable and read back only when restoring a
// session after process restart.
package auth
