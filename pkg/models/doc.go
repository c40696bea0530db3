// Package models defines the chat domain objects exchanged with the
// TideChat backend.
//
// Models are plain value objects without IO dependencies or framework
// coupling. All timestamps are Unix milliseconds.
package models
