package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rolecultura/role/internal/slug"
	"github.com/rolecultura/role/internal/slugcheck"
)

var slugExclude string

var slugCmd = &cobra.Command{
	Use:   "slug",
	Short: "Slug helpers",
}

var slugCheckCmd = &cobra.Command{
	Use:   "check <table> <slug>",
	Short: "Check whether a slug is free in " + strings.Join(slugcheck.Tables(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := slugcheck.New(rt.DB).Check(appCtx, slugcheck.Request{
			Table:     args[0],
			Slug:      args[1],
			ExcludeID: slugExclude,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(res)
			return nil
		}
		if res.Available {
			fmt.Printf("%s/%s is available\n", res.Table, res.Slug)
		} else {
			fmt.Printf("%s/%s is taken\n", res.Table, res.Slug)
		}
		return nil
	},
}

var slugMakeCmd = &cobra.Command{
	Use:   "make <title...>",
	Short: "Print the slug derived from a title",
	Args:  cobra.MinimumNArgs(1),
	// No database needed.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(slug.Make(strings.Join(args, " ")))
	},
}

func init() {
	slugCheckCmd.Flags().StringVar(&slugExclude, "exclude", "", "ignore the record with this id")
	slugCmd.AddCommand(slugCheckCmd)
	slugCmd.AddCommand(slugMakeCmd)
}
