// Command rolectl is the operator CLI: scheduler ticks, slug checks,
// migrations, and agenda inspection against the configured database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rolecultura/role/internal/app"
)

var (
	jsonOutput bool

	appCtx    context.Context
	appCancel context.CancelFunc
	rt        *app.App
)

var rootCmd = &cobra.Command{
	Use:           "rolectl",
	Short:         "Operator CLI for the ROLÊ agenda service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		appCtx, appCancel = signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		var err error
		// Migrations only run through `rolectl migrate`, and a CLI process
		// never needs a live NATS connection except for ticks.
		rt, err = app.Bootstrap(appCtx, app.BootOptions{
			SkipMigrate: true,
			NoPublisher: cmd != tickCmd,
		})
		if err != nil {
			return fmt.Errorf("boot: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if rt != nil {
			rt.Close()
		}
		if appCancel != nil {
			appCancel()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddCommand(tickCmd)
	rootCmd.AddCommand(slugCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(agendaCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
