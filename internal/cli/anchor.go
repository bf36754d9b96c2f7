package cli

import (
	"log/slog"

	"github.com/spf13/cobra"
)

func newAnchorCmd(a *app) *cobra.Command {
	var seedValue string

	cmd := &cobra.Command{
		Use:   "anchor <channelID> <anchorageID> <message>",
		Short: "Anchor a message to a previous message of the channel",
		Long: `Publish <message> in the channel, anchored to <anchorageID>.

The anchorage is the announce message id (the second part of the channel id) or the id of a
message anchored before. The printed msgID can be used as the next anchorage.

Example:
  anchors anchor "$CHANNEL_ID" "$ANCHORAGE" "hello" --seed "$SEED"`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireChannelID(args[0]); err != nil {
				return err
			}
			if err := requireArg("anchorageID", args[1]); err != nil {
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

			res, err := ch.Anchor(cmd.Context(), []byte(args[2]), args[1])
			if err != nil {
				return err
			}
			a.logger.Info("message anchored",
				slog.String("channel_id", res.ChannelID),
				slog.String("message_id", res.MessageID))

			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVar(&seedValue, "seed", "", "Seed used to bind to the channel (required)")
	cmd.MarkFlagRequired("seed")
	return cmd
}
