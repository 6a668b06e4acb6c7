package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/k0pernicus/zou/internal"
	"github.com/k0pernicus/zou/internal/output"
	"github.com/spf13/cobra"
)

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info [flags] URL",
		Short: "Negotiate with the fastest server and print what it supports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, args[0])
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			info, err := internal.NewSession(cfg).Resolve(ctx)
			if err != nil {
				return err
			}
			output.PrintRemoteInfo(info)
			return nil
		},
	}
	return cmd
}
