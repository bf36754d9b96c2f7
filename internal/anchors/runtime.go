package anchors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/cursor"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/ledger"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/seed"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/transport"
)

var ErrRuntimeClosed = errors.New("anchors runtime is closed")

// Dialer opens a connection to the node at the given endpoint
type Dialer func(ctx context.Context, node string) (ledger.Node, error)

// Options configures Setup
type Options struct {
	Logger *slog.Logger

	// CursorDir enables durable fetch cursors in a Pebble database. Empty keeps cursors in memory.
	CursorDir string

	// Transport configures the default dialer
	Transport transport.Options

	// Dialer replaces transport.Dial, e.g. to use an in-process ledger.Service
	Dialer Dialer
}

// Runtime is the process-wide state shared by anchoring channels: the logger, the open node
// connections and the cursor store. Create it once with Setup and release it with Close.
type Runtime struct {
	logger  *slog.Logger
	dialer  Dialer
	cursors cursor.Store
	durable bool

	mu     sync.Mutex
	nodes  map[string]ledger.Node
	closed bool
}

// Setup initialises the runtime
func Setup(opts Options) (*Runtime, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rt := &Runtime{
		logger: logger,
		dialer: opts.Dialer,
		nodes:  make(map[string]ledger.Node),
	}
	if rt.dialer == nil {
		topts := opts.Transport
		if topts.Logger == nil {
			topts.Logger = logger
		}
		rt.dialer = func(ctx context.Context, node string) (ledger.Node, error) {
			return transport.Dial(ctx, node, topts)
		}
	}

	if opts.CursorDir != "" {
		store, err := cursor.OpenPebble(opts.CursorDir)
		if err != nil {
			return nil, err
		}
		rt.cursors = store
		rt.durable = true
	} else {
		rt.cursors = cursor.NewMemory()
	}

	logger.Debug("anchors runtime ready", slog.Bool("durable_cursors", rt.durable))
	return rt, nil
}

func (rt *Runtime) Logger() *slog.Logger { return rt.logger }

// NewChannel returns an unbound channel for node. A random seed is generated when s is empty.
func (rt *Runtime) NewChannel(node string, s seed.Seed) (*UnboundChannel, error) {
	if node == "" {
		return nil, fmt.Errorf("node endpoint is required")
	}
	if s == "" {
		generated, err := seed.Generate(seed.DefaultLength)
		if err != nil {
			return nil, err
		}
		s = generated
	}
	return &UnboundChannel{rt: rt, node: node, seed: s}, nil
}

// Close releases every node connection and the cursor store
func (rt *Runtime) Close() error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.closed {
		return nil
	}
	rt.closed = true

	var errs []error
	for url, node := range rt.nodes {
		if err := node.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close node %s: %w", url, err))
		}
	}
	rt.nodes = nil
	if err := rt.cursors.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close cursor store: %w", err))
	}
	return errors.Join(errs...)
}

func (rt *Runtime) dial(ctx context.Context, url string) (ledger.Node, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.closed {
		return nil, ErrRuntimeClosed
	}
	if node, ok := rt.nodes[url]; ok {
		return node, nil
	}
	node, err := rt.dialer(ctx, url)
	if err != nil {
		return nil, err
	}
	rt.nodes[url] = node
	return node, nil
}

// durable cursors are keyed by the reader's key so a restarted process resumes where it left off;
// in-memory cursors belong to the bound session.
func (rt *Runtime) cursorScope(s *Subscriber) string {
	if rt.durable {
		return s.PublicKey()
	}
	return s.sessionID
}
