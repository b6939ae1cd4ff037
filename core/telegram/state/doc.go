// Package state keeps per-user dialog sessions for multi-step conversations.
// Sessions live behind the Store interface so handlers receive the store they use
// instead of reaching for process globals.
package state
