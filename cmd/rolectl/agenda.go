package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rolecultura/role/internal/agenda"
)

var agendaCmd = &cobra.Command{
	Use:   "agenda",
	Short: "Inspect agenda items",
}

var agendaShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an item, its derived state, and whether the next tick would move it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		it, err := rt.Store.Get(appCtx, args[0])
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		dir, due := it.Due(now)

		if jsonOutput {
			printJSON(struct {
				*agenda.Item
				State agenda.State     `json:"state"`
				Path  string           `json:"path"`
				Due   agenda.Direction `json:"due,omitempty"`
			}{it, it.State(now), it.Path(), dir})
			return nil
		}

		fmt.Printf("ID:           %s\n", it.ID)
		fmt.Printf("Title:        %s\n", it.Title)
		fmt.Printf("Path:         %s\n", it.Path())
		fmt.Printf("Status:       %s (%s)\n", it.Status, it.State(now))
		fmt.Printf("Publish at:   %s\n", fmtTime(it.PublishAt))
		fmt.Printf("Unpublish at: %s\n", fmtTime(it.UnpublishAt))
		fmt.Printf("Updated by:   %s\n", orSystem(it.UpdatedBy))
		if due {
			fmt.Printf("Next tick:    %s\n", dir)
		} else {
			fmt.Println("Next tick:    no change")
		}
		return nil
	},
}

func init() {
	agendaCmd.AddCommand(agendaShowCmd)
}

func fmtTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05 MST")
}

func orSystem(s *string) string {
	if s == nil {
		return "scheduler"
	}
	return orDash(s)
}
