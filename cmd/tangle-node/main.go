// tangle-node is a single ledger node serving the channel API over HTTP and, when GRPC_PORT
// is set, over gRPC.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/config"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/identity"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/ledger"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/ledger/memstore"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/ledger/pgstore"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/logger"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/node"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/transport/grpcnode"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/version"
)

// grpcMaxMsgBytes bounds gRPC requests and replies
const grpcMaxMsgBytes = 16 << 20

func main() {
	cmd := &cobra.Command{
		Use:   "tangle-node",
		Short: "Ledger node for anchoring channels",
		Long: `tangle-node accepts signed channel packets (announce, subscribe, signed packets),
orders them per channel and serves them back to anchoring channel clients.

It also hosts the identity endpoints used to resolve DID documents and their keys.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	v := version.Get()
	cmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.NewNodeConfig()
	if err != nil {
		log.Printf("failed to load configuration: %v", err.Error())
		os.Exit(1)
	}

	appLogger := logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)

	appLogger.Info("Configuration loaded",
		slog.String("ENVIRONMENT", cfg.Environment),
		slog.String("HOST", cfg.Host),
		slog.Int("PORT", cfg.Port),
		slog.Int("GRPC_PORT", cfg.GRPCPort),
		slog.String("LOG_LEVEL", cfg.LogLevel),
		slog.String("STORE", cfg.Store),
		slog.Int64("MAX_REQUEST_BYTES", cfg.MaxRequestBytes),
		slog.Int("LIST_LIMIT_MAX", cfg.ListLimitMax),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, registry, err := openStore(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to open store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	svc := ledger.NewService(store, ledger.WithListLimit(cfg.ListLimitMax))
	defer func() {
		if err := svc.Close(); err != nil {
			appLogger.Warn("store close error", slog.String("error", err.Error()))
		}
	}()

	appLogger.Info("Starting node", slog.String("version", version.Get().Version))

	grpcErrors := make(chan error, 1)
	if cfg.GRPCPort != 0 {
		grpcServer, err := startGRPC(cfg, svc, appLogger, grpcErrors)
		if err != nil {
			appLogger.Error("Failed to start gRPC server", slog.String("error", err.Error()))
			return err
		}
		defer grpcServer.GracefulStop()
	}

	server := node.NewServer(svc, registry, cfg, appLogger)

	httpErrors := make(chan error, 1)
	go func() { httpErrors <- server.Start(ctx) }()

	select {
	case err = <-httpErrors:
	case err = <-grpcErrors:
		stop()
		err = errors.Join(err, <-httpErrors)
	}
	if err != nil {
		appLogger.Error("Server error", slog.String("error", err.Error()))
		return err
	}

	appLogger.Info("node shutdown complete")
	return nil
}

// openStore returns the ledger store and the DID registry selected by STORE.
func openStore(ctx context.Context, cfg *config.NodeEnvironment, appLogger *slog.Logger) (ledger.Store, identity.Registry, error) {
	if cfg.Store == config.StoreMemory {
		appLogger.Warn("using the in-memory store: channels are lost on restart")
		return memstore.New(), identity.NewMemoryRegistry(), nil
	}

	store, err := pgstore.Open(ctx, pgstore.Options{
		DatabaseURL:     cfg.DatabaseURL,
		MaxConns:        cfg.DBMaxConnections,
		MinConns:        cfg.DBMinConnections,
		MaxConnLifetime: cfg.DBMaxConnLifetime,
		MaxConnIdleTime: cfg.DBMaxConnIdleTime,
		ConnectTimeout:  cfg.DBConnectTimeout,
		PingTimeout:     cfg.DatabasePingTimeout,
	})
	if err != nil {
		return nil, nil, err
	}
	appLogger.Info("connected to PostgreSQL")

	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	return store, store, nil
}

func startGRPC(cfg *config.NodeEnvironment, svc *ledger.Service, appLogger *slog.Logger, errs chan<- error) (*grpc.Server, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.GRPCPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	grpcServer := grpcnode.NewGRPCServer(svc, appLogger, grpcMaxMsgBytes)
	go func() {
		appLogger.Info("gRPC listening", slog.String("address", addr))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errs <- fmt.Errorf("gRPC server failed: %w", err)
		}
	}()
	return grpcServer, nil
}
