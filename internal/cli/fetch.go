package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/anchors"
)

func newFetchCmd(a *app) *cobra.Command {
	var (
		seedValue string
		all       bool
	)

	cmd := &cobra.Command{
		Use:   "fetch <channelID> <anchorageID> [msgID]",
		Short: "Fetch messages anchored to an anchorage",
		Long: `Fetch the message <msgID> anchored to <anchorageID>, or, without <msgID>, the next
message anchored there that this session has not seen yet.

With --all every pending message at the anchorage is printed. "null" is printed when
there is no new message.

Example:
  anchors fetch "$CHANNEL_ID" "$ANCHORAGE" --seed "$SEED" --all`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireChannelID(args[0]); err != nil {
				return err
			}
			if err := requireArg("anchorageID", args[1]); err != nil {
				return err
			}
			var msgID string
			if len(args) == 3 {
				msgID = args[2]
			}
			if all && msgID != "" {
				return fmt.Errorf("--all cannot be combined with a msgID")
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

			if all {
				results := []*anchors.FetchResult{}
				for res, err := range ch.Follow(cmd.Context(), args[1]) {
					if err != nil {
						return err
					}
					results = append(results, res)
				}
				return printJSON(cmd.OutOrStdout(), results)
			}

			res, err := ch.Fetch(cmd.Context(), args[1], msgID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVar(&seedValue, "seed", "", "Seed used to bind to the channel (required)")
	cmd.Flags().BoolVar(&all, "all", false, "Fetch every pending message at the anchorage")
	cmd.MarkFlagRequired("seed")
	return cmd
}
