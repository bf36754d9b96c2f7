package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/seed"
)

func newSeedCmd() *cobra.Command {
	var length int

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate a random channel seed",
		Long: `Generate a random seed to use as channel or subscriber secret.

Keep the seed private: anyone holding it can anchor messages with your key.

Example:
  anchors seed --length 81`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if length < 1 {
				return fmt.Errorf("--length must be at least 1")
			}
			s, err := seed.Generate(length)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(s))
			return err
		},
	}

	cmd.Flags().IntVar(&length, "length", seed.DefaultLength, "Seed length")
	return cmd
}
