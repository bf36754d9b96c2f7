//go:build integration

package integration

// Test environment setup and node lifecycle management.
//
// The integration tests start tangle-node (HTTP and gRPC) with a temporary database and run tests against it.
// Each test creates an empty temporary database and applies all the migrations so the schema reflects the latest code.
// The database is dropped after each test.
//
// By default the node logs are not included in the test output, you can enable them with:
//
//	ENABLE_SERVER_LOGS=true go test -tags=integration -v ./test/integration
//

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/grpc"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/config"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/ledger"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/ledger/pgstore"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/logger"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/node"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/transport/grpcnode"
)

// testEnv provides access to the test db and node for integration tests
type testEnv struct {
	baseURL  string
	grpcURL  string
	cfg      *config.NodeEnvironment
	pool     *pgxpool.Pool
	shutdown func()
}

// startInProcessNode starts tangle-node in-process for testing
func startInProcessNode(t *testing.T) *testEnv {
	t.Helper()

	testEnv := &testEnv{}

	t.Log("Starting in-process node...")

	var (
		ctx          = context.Background()
		host         = "localhost"
		port         = findFreePort(t)
		grpcPort     = findFreePort(t)
		rateLimitRPS = 0
		environment  = "test"
		logLevel     = logger.ParseLogLevel("none")
	)

	if os.Getenv("ENABLE_SERVER_LOGS") == "true" {
		logLevel = logger.ParseLogLevel("debug")
	}

	testDatabaseURL := setupTestDatabase(t)

	// Set environment variables before calling NewNodeConfig
	testEnvVars := map[string]string{
		"HOST":           host,
		"PORT":           fmt.Sprintf("%d", port),
		"GRPC_PORT":      fmt.Sprintf("%d", grpcPort),
		"RATE_LIMIT_RPS": fmt.Sprintf("%d", rateLimitRPS),
		"ENVIRONMENT":    environment,
		"LOG_LEVEL":      logLevel.String(),
		"STORE":          config.StorePostgres,
		"DATABASE_URL":   testDatabaseURL,
	}
	for key, value := range testEnvVars {
		t.Setenv(key, value)
	}

	cfg, err := config.NewNodeConfig()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.InitLogger(logLevel, environment)

	store, err := pgstore.Open(ctx, pgstore.Options{DatabaseURL: cfg.DatabaseURL, PingTimeout: cfg.DatabasePingTimeout})
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Failed to apply database migrations: %v", err)
	}
	testEnv.pool = store.Pool()

	svc := ledger.NewService(store, ledger.WithListLimit(cfg.ListLimitMax))
	nodeServer := node.NewServer(svc, store, cfg, appLogger)

	// Create a cancellable context for node shutdown
	serverCtx, serverCancel := context.WithCancel(ctx)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := nodeServer.Start(serverCtx); err != nil {
			serverDone <- err
		}
	}()

	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, grpcPort))
	if err != nil {
		t.Fatalf("Failed to listen on gRPC port: %v", err)
	}
	grpcServer := grpcnode.NewGRPCServer(svc, appLogger, 0)
	go func() {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			t.Logf("gRPC server error: %v", err)
		}
	}()

	testEnv.shutdown = func() {
		t.Log("Stopping node...")

		grpcServer.GracefulStop()
		serverCancel()

		select {
		case err := <-serverDone:
			if err != nil {
				t.Logf("❌ Node shutdown with error: %v", err)
			} else {
				t.Log("✅ Node shut down gracefully")
			}
		case <-time.After(5 * time.Second):
			t.Log("⚠️ Node shutdown timeout")
		}

		// Ensure database connections are closed
		_ = svc.Close()
	}

	testEnv.baseURL = fmt.Sprintf("http://%s:%d", host, port)
	testEnv.grpcURL = fmt.Sprintf("grpc://%s:%d", host, grpcPort)
	testEnv.cfg = cfg

	if !waitForServer(t, testEnv.baseURL+"/health/ready", 30*time.Second) {
		t.Fatal("Node failed to start within timeout")
	}

	t.Logf("✅ Node started at %s (gRPC %s)", testEnv.baseURL, testEnv.grpcURL)
	return testEnv
}

func findFreePort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("Failed to find free port: %v", err)
	}
	defer listener.Close()

	addr := listener.Addr().(*net.TCPAddr)
	return addr.Port
}

func waitForServer(t *testing.T, url string, timeout time.Duration) bool {
	t.Helper()

	client := &http.Client{Timeout: 1 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return true
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}

// Test database configuration

type databaseConfig struct {
	userAndPassword string
	dbname          string
	host            string
	port            int
}

func (d *databaseConfig) connectionURL() string {
	return fmt.Sprintf("postgres://%s@%s:%d/%s?sslmode=disable",
		d.userAndPassword, d.host, d.port, d.dbname)
}

func (d *databaseConfig) WithDatabase(dbname string) *databaseConfig {
	return &databaseConfig{
		userAndPassword: d.userAndPassword,
		host:            d.host,
		port:            d.port,
		dbname:          dbname,
	}
}

func localDatabaseConfig() *databaseConfig {
	return &databaseConfig{
		userAndPassword: "anchors-dev",
		dbname:          "tmp_anchors_integration_test",
		host:            "localhost",
		port:            15433,
	}
}

func ciDatabaseConfig() *databaseConfig {
	return &databaseConfig{
		userAndPassword: "postgres:postgres",
		dbname:          "tmp_anchors_integration_test",
		host:            "localhost",
		port:            5432,
	}
}

// setupTestDatabase creates an empty test db and returns its connection URL.
// the function auto-detects if it is running in CI (github actions) and uses the appropriate database config
func setupTestDatabase(t *testing.T) string {
	t.Helper()

	ctx := context.Background()
	config := *localDatabaseConfig()
	if os.Getenv("GITHUB_ACTIONS") == "true" {
		config = *ciDatabaseConfig()
	}

	// connect to the postgres database to create the test database
	postgresConnectionURL := config.WithDatabase("postgres").connectionURL()

	postgresPool, err := pgxpool.New(ctx, postgresConnectionURL)
	if err != nil {
		t.Fatalf("Unable to create postgres connection pool: %v", err)
	}
	if err := postgresPool.Ping(ctx); err != nil {
		postgresPool.Close()
		t.Skipf("PostgreSQL server %s not available: %v", postgresConnectionURL, err)
	}

	if _, err := postgresPool.Exec(ctx, "DROP DATABASE IF EXISTS "+config.dbname); err != nil {
		t.Fatalf("DROP DATABASE IF EXISTS Failed : %v", err)
	}
	if _, err := postgresPool.Exec(ctx, "CREATE DATABASE "+config.dbname); err != nil {
		t.Fatalf("CREATE DATABASE Failed : %v", err)
	}

	// cleanups run last-in first-out: drop the test database, then close the pool
	t.Cleanup(func() {
		postgresPool.Close()
	})
	t.Cleanup(func() {
		if _, err := postgresPool.Exec(ctx, "DROP DATABASE "+config.dbname+" WITH (FORCE)"); err != nil {
			t.Errorf("Failed to drop test database: %v", err)
		}
	})

	t.Logf("Database ready: %s", config.dbname)
	return config.connectionURL()
}
