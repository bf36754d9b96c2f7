// Package transport selects the ledger.Node implementation for a node URL.
//
//	http://host:port, https://host:port  -> HTTP/JSON client (httpnode)
//	grpc://host:port                     -> gRPC client (grpcnode)
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/ledger"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/transport/grpcnode"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/transport/httpnode"
)

// Options configures the node clients created by Dial
type Options struct {

	// Timeout bounds every node call when non-zero
	Timeout time.Duration

	// GRPCMaxMsgBytes sets the gRPC send/recv message size limit when non-zero
	GRPCMaxMsgBytes int

	Logger *slog.Logger

	// HTTPClient overrides the client used for http(s) nodes. Timeout is ignored when set.
	HTTPClient *http.Client
}

// Dial returns a ledger.Node client for nodeURL.
// No network traffic happens until the first call.
func Dial(ctx context.Context, nodeURL string, opts Options) (ledger.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u, err := url.Parse(nodeURL)
	if err != nil {
		return nil, fmt.Errorf("invalid node URL %q: %w", nodeURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid node URL %q: missing host", nodeURL)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch u.Scheme {
	case "http", "https":
		client := opts.HTTPClient
		if client == nil {
			client = &http.Client{Timeout: opts.Timeout}
		}
		return httpnode.New(nodeURL, client, logger)
	case "grpc":
		return grpcnode.Dial(u.Host, grpcnode.DialOptions{
			Timeout:     opts.Timeout,
			MaxMsgBytes: opts.GRPCMaxMsgBytes,
		})
	default:
		return nil, fmt.Errorf("unsupported node URL scheme %q (expected http, https or grpc)", u.Scheme)
	}
}
