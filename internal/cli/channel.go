package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/anchors"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/msgfilter"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/seed"
)

// createSeedLength is the length of seeds generated by channel create
const createSeedLength = 25

func newChannelCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channel",
		Short: "Create and inspect anchoring channels",
	}
	cmd.AddCommand(newChannelCreateCmd(a))
	cmd.AddCommand(newChannelInspectCmd(a))
	return cmd
}

func newChannelCreateCmd(a *app) *cobra.Command {
	var (
		seedValue  string
		seedLength int
		restricted bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new channel",
		Long: `Create a new channel on the node and print its details, including the seed.

A random seed of --seed-length characters is generated when --seed is not given.
With --restricted only the author's seed can bind to the channel.

Example:
  anchors channel create --node http://localhost:8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if seedValue == "" {
				if seedLength < 1 {
					return fmt.Errorf("--seed-length must be at least 1")
				}
				s, err := seed.Generate(seedLength)
				if err != nil {
					return err
				}
				seedValue = string(s)
			}

			rt, err := a.runtime()
			if err != nil {
				return err
			}
			defer rt.Close()

			ch, err := a.bind(cmd.Context(), rt, seedValue, "", restricted)
			if err != nil {
				return err
			}
			a.logger.Info("channel created", slog.String("channel_id", ch.ID()))

			details, err := ch.Details()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), details)
		},
	}

	cmd.Flags().StringVar(&seedValue, "seed", "", "Channel seed (generated when empty)")
	cmd.Flags().IntVar(&seedLength, "seed-length", createSeedLength, "Length of the generated seed when --seed is empty")
	cmd.Flags().BoolVar(&restricted, "restricted", false, "Only the author may bind to the channel")
	return cmd
}

// inspectedMessage is one line of the inspect output
type inspectedMessage struct {
	Message     string `json:"message"`
	PublicKey   string `json:"publicKey"`
	MsgID       string `json:"msgID"`
	AnchorageID string `json:"anchorageID"`
	Seq         uint64 `json:"seq"`
}

func newChannelInspectCmd(a *app) *cobra.Command {
	var (
		seedValue string
		filter    string
	)

	cmd := &cobra.Command{
		Use:   "inspect <channelID>",
		Short: "Print every message of a channel in commit order",
		Long: `Print every anchored message of the channel in commit order, whatever its anchorage.

--filter keeps only the messages for which the CEL expression is true. The expression can use
text, json, size, seq, linkId, msgId, publicKey and ts_ms.

Example:
  anchors channel inspect "$CHANNEL_ID" --seed "$SEED" --filter 'json.kind == "invoice"'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireChannelID(args[0]); err != nil {
				return err
			}
			f, err := msgfilter.New(filter)
			if err != nil {
				return err
			}

			rt, err := a.runtime()
			if err != nil {
				return err
			}
			defer rt.Close()

			ch, err := a.bind(cmd.Context(), rt, seedValue, args[0], false)
			if err != nil {
				return err
			}

			out := []inspectedMessage{}
			for res, err := range ch.Messages(cmd.Context()) {
				if err != nil {
					return err
				}
				if !f.Match(res) {
					continue
				}
				out = append(out, toInspected(res))
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&seedValue, "seed", "", "Seed used to bind to the channel (required)")
	cmd.Flags().StringVar(&filter, "filter", "", "CEL expression selecting the messages to print")
	cmd.MarkFlagRequired("seed")
	return cmd
}

func toInspected(res *anchors.FetchResult) inspectedMessage {
	return inspectedMessage{
		Message:     string(res.Message),
		PublicKey:   res.PublicKey,
		MsgID:       res.MessageID,
		AnchorageID: res.AnchorageID,
		Seq:         res.Seq,
	}
}

// requireChannelID rejects channel ids that do not parse, so an empty argument
// never reaches Bind and creates a channel.
func requireChannelID(value string) error {
	_, err := anchors.ParseChannelID(value)
	return err
}

func requireArg(name, value string) error {
	if value == "" {
		return fmt.Errorf("%s must not be empty", name)
	}
	return nil
}
