package transport

import (
	"context"
	"testing"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/transport/grpcnode"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/transport/httpnode"
)

func TestDial(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantErr  bool
		wantType string
	}{
		{"http", "http://localhost:8080", false, "http"},
		{"https", "https://node.example.org", false, "http"},
		{"grpc", "grpc://localhost:9090", false, "grpc"},
		{"unknown scheme", "ftp://localhost", true, ""},
		{"missing host", "http://", true, ""},
		{"not a url", "::", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := Dial(context.Background(), tt.url, Options{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Dial(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer node.Close()

			switch tt.wantType {
			case "http":
				if _, ok := node.(*httpnode.Client); !ok {
					t.Errorf("got %T, want *httpnode.Client", node)
				}
			case "grpc":
				if _, ok := node.(*grpcnode.Client); !ok {
					t.Errorf("got %T, want *grpcnode.Client", node)
				}
			}
		})
	}
}

func TestDialCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Dial(ctx, "http://localhost:8080", Options{}); err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
}
