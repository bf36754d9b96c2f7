package node

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/version"
)

// HandleHealth reports that the HTTP service is alive.
//
//	GET /health/live -> 200 "OK"
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Pinger is implemented by the ledger service (and its store)
type Pinger interface {
	Ping(ctx context.Context) error
}

// HandleReadiness reports whether the node can serve traffic (store reachable).
//
//	GET /health/ready -> 200 {"status":"ready"} | 503 {"status":"not ready"}
func HandleReadiness(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if err := store.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"not ready","reason":"store unavailable"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}
}

// HandleVersion returns the build information of the service.
//
//	GET /version -> 200 VersionResponse
func HandleVersion(info version.Info, service string) http.HandlerFunc {
	response := VersionResponse{
		Version:   info.Version,
		BuildTime: info.BuildDate,
		GitCommit: info.GitCommit,
		Service:   service,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			http.Error(w, "Failed to encode version", http.StatusInternalServerError)
			return
		}
	}
}

type VersionResponse struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
	Service   string `json:"service"`
}
