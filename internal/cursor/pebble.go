package cursor

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
)

const keyPrefix = "cursor/"

// Pebble is a durable Store backed by a Pebble database directory.
// Cursors survive restarts of the process using the same directory.
type Pebble struct {
	mu sync.Mutex
	db *pebble.DB
}

var _ Store = (*Pebble)(nil)

// OpenPebble creates or opens the cursor database in dir.
func OpenPebble(dir string) (*Pebble, error) {
	if dir == "" {
		return nil, errors.New("cursor: directory is required")
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open cursor store %s: %w", dir, err)
	}
	return &Pebble{db: db}, nil
}

func (p *Pebble) Get(_ context.Context, k Key) (uint64, bool, error) {
	val, closer, err := p.db.Get(encodeKey(k))
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read cursor %s: %w", k, err)
	}
	defer closer.Close()

	if len(val) < 8 {
		return 0, false, fmt.Errorf("corrupt cursor %s", k)
	}
	return binary.BigEndian.Uint64(val[:8]), true, nil
}

func (p *Pebble) Commit(ctx context.Context, k Key, seq uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev, ok, err := p.Get(ctx, k)
	if err != nil {
		return err
	}
	if ok && seq <= prev {
		return nil
	}

	var b [8]byte
	binary.BigEndian.PutUint64(b[:], seq)
	if err := p.db.Set(encodeKey(k), b[:], pebble.Sync); err != nil {
		return fmt.Errorf("failed to commit cursor %s: %w", k, err)
	}
	return nil
}

func (p *Pebble) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

func encodeKey(k Key) []byte {
	return []byte(keyPrefix + k.String())
}
