package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/k0pernicus/zou/internal"
	"github.com/k0pernicus/zou/internal/output"
	"github.com/spf13/cobra"
)

func newBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench [flags] URL",
		Short: "Rank the URL's location and every mirror by latency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, args[0])
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			ranked, scores, resource, err := internal.NewSession(cfg).Bench(ctx)
			output.PrintDetail("Resource: " + resource)
			output.PrintMirrorScores(ranked, scores)
			return err
		},
	}
	return cmd
}
