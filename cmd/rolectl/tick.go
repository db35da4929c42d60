package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rolecultura/role/internal/agenda"
)

var tickEvery time.Duration

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Run the publish and unpublish sweeps once, or every --every",
	Long: `Run the agenda scheduler.

Without --every the sweeps run once and the command exits non-zero if either
failed.  With --every the sweeps repeat on that interval until interrupted;
failures are logged and retried on the next tick.  --every=0 takes the
interval from scheduler.interval in the config.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		every := tickEvery
		if cmd.Flags().Changed("every") && every == 0 {
			every = rt.Config.Scheduler.Interval
		}
		if every <= 0 {
			sum, err := rt.Scheduler.Run(appCtx)
			printSummary(sum)
			return err
		}

		t := time.NewTicker(every)
		defer t.Stop()
		for {
			sum, err := rt.Scheduler.Run(appCtx)
			if err != nil {
				rt.Log.Error("tick failed", zap.Error(err))
			} else if sum.Total > 0 {
				printSummary(sum)
			}
			select {
			case <-appCtx.Done():
				return nil
			case <-t.C:
			}
		}
	},
}

func init() {
	tickCmd.Flags().DurationVar(&tickEvery, "every", 0, "repeat on this interval (0 uses scheduler.interval)")
}

func printSummary(sum agenda.Summary) {
	if jsonOutput {
		printJSON(sum)
		return
	}
	fmt.Printf("%s  published=%d unpublished=%d total=%d\n",
		sum.Timestamp.Format(time.RFC3339), sum.Published, sum.Unpublished, sum.Total)
}
