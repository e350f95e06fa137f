package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var configDir string

	root := &cobra.Command{
		Use:           "tritracker",
		Short:         "Tri Tracker maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configDir, "config", ".", "Directory containing config.yaml")

	root.AddCommand(newPreviewCmd(&configDir))
	root.AddCommand(newImportCmd(&configDir))
	root.AddCommand(newJobCmd(&configDir))
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}
