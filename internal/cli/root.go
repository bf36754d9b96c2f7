// Package cli implements the anchors command line tool.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/anchors"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/config"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/logger"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/seed"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/transport"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/version"
)

// app carries the settings shared by every subcommand. Flags override the environment.
type app struct {
	cfg       *config.ClientEnvironment
	logger    *slog.Logger
	node      string
	logLevel  string
	cursorDir string
	timeout   time.Duration
}

// NewRootCmd builds the anchors command tree
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:               "anchors",
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		SilenceUsage:      true,
		Short:             "Anchoring channels on a tangle ledger node",
		Long: `Create anchoring channels, anchor messages to previous messages and fetch them back.

A channel is identified by "<channelAddress>:<announceMessageId>". The announce message id
is the first anchorage of the channel; every anchored message can be used as the anchorage
of the next one.`,
		PersistentPreRunE: a.load,
	}

	rootCmd.PersistentFlags().StringVar(&a.node, "node", "", "Ledger node URL, http(s):// or grpc:// (default $NODE_URL)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error or none (default $LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&a.cursorDir, "cursor-dir", "", "Directory of the durable fetch cursors (default $CURSOR_DIR, empty keeps them in memory)")
	rootCmd.PersistentFlags().DurationVar(&a.timeout, "timeout", 0, "Timeout of each node request (default $REQUEST_TIMEOUT)")

	rootCmd.AddCommand(newSeedCmd())
	rootCmd.AddCommand(newKeygenCmd())
	rootCmd.AddCommand(newChannelCmd(a))
	rootCmd.AddCommand(newAnchorCmd(a))
	rootCmd.AddCommand(newFetchCmd(a))
	rootCmd.AddCommand(newDIDCmd(a))
	rootCmd.AddCommand(newVPCmd(a))

	return rootCmd
}

func Execute() {
	rootCmd := NewRootCmd()

	v := version.Get()
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *app) load(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewClientConfig()
	if err != nil {
		log.Printf("failed to load configuration: %v", err.Error())
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("node") {
		cfg.NodeURL = a.node
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("cursor-dir") {
		cfg.CursorDir = a.cursorDir
	}
	if flags.Changed("timeout") {
		if a.timeout <= 0 {
			return fmt.Errorf("--timeout must be positive")
		}
		cfg.RequestTimeout = a.timeout
	}

	a.cfg = cfg
	a.logger = logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)
	return nil
}

// runtime sets up the anchors runtime for one command. The caller must Close it.
func (a *app) runtime() (*anchors.Runtime, error) {
	return anchors.Setup(anchors.Options{
		Logger:    a.logger,
		CursorDir: a.cfg.CursorDir,
		Transport: transport.Options{
			Timeout:         a.cfg.RequestTimeout,
			GRPCMaxMsgBytes: a.cfg.GRPCMaxMsgBytes,
			Logger:          a.logger,
		},
	})
}

func (a *app) httpClient() *http.Client {
	return &http.Client{Timeout: a.cfg.RequestTimeout}
}

// bind binds to channelID, or creates a new channel when channelID is empty.
func (a *app) bind(ctx context.Context, rt *anchors.Runtime, s, channelID string, restricted bool) (*anchors.Channel, error) {
	unbound, err := rt.NewChannel(a.cfg.NodeURL, seed.Seed(s))
	if err != nil {
		return nil, err
	}
	if restricted {
		unbound = unbound.WithRestricted()
	}
	return unbound.Bind(ctx, channelID)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
