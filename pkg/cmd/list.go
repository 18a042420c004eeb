package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/vshn/datadog-downtime/pkg/reconcile"
)

var (
	listScope      []string
	listActiveOnly bool

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List downtimes matching a scope",
		Long:  "List all downtimes whose scope contains the given tags, an empty scope lists everything that is not canceled",
		Run: func(cmd *cobra.Command, args []string) {
			logger := newLogger()

			client, err := newAPIClient(&logger)
			if err != nil {
				log.Fatal(err)
			}

			matching, err := reconcile.FindMatching(cmd.Context(), client, listScope, listActiveOnly)
			if err != nil {
				log.Fatal(err)
			}
			printJSON(matching)
		},
	}
)

func init() {
	listCmd.Flags().StringSliceVar(&listScope, "scope", nil, "Tag scope to filter downtimes by")
	listCmd.Flags().BoolVar(&listActiveOnly, "active-only", false, "Only list downtimes that are currently active")

	rootCmd.AddCommand(listCmd)
}
