// Package cursor keeps the fetch-next read positions of anchoring channel sessions.
//
// A cursor is the sequence number of the last message delivered for a (scope, channel, anchorage)
// triple. Commits are idempotent and never move a cursor backwards. Cursors are owned by the
// session that uses them; nothing coordinates readers in different processes.
package cursor

import (
	"context"
	"sync"
)

// Key identifies a cursor.
type Key struct {
	// Scope is the reader identity, usually the hex public key of the session seed
	Scope string

	// Channel is the channel id ("address:announce")
	Channel string

	// Anchorage is the message id whose children are read. Empty for the channel-wide cursor.
	Anchorage string
}

func (k Key) String() string {
	return k.Scope + "/" + k.Channel + "/" + k.Anchorage
}

// Store persists cursors
type Store interface {
	// Get returns the committed position of k and whether one exists
	Get(ctx context.Context, k Key) (uint64, bool, error)

	// Commit advances k to seq. Commits at or below the current position are ignored.
	Commit(ctx context.Context, k Key, seq uint64) error

	Close() error
}

// Memory is a process-local Store
type Memory struct {
	mu      sync.Mutex
	cursors map[Key]uint64
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{cursors: make(map[Key]uint64)}
}

func (m *Memory) Get(_ context.Context, k Key) (uint64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seq, ok := m.cursors[k]
	return seq, ok, nil
}

func (m *Memory) Commit(_ context.Context, k Key, seq uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.cursors[k]; ok && seq <= prev {
		return nil
	}
	m.cursors[k] = seq
	return nil
}

func (m *Memory) Close() error { return nil }
