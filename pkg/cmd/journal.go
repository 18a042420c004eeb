package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/vshn/datadog-downtime/pkg/journal"
)

var (
	historyFrom string
	historyTo   string

	journalCmd = &cobra.Command{
		Use:   "journal",
		Short: "Invocation journal operations",
	}
	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Initialize the journal if it does not yet exist",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Initializing journal...")
			j, err := openJournal()
			if err != nil {
				log.Fatal(err)
			}
			defer j.Close()
			if err := j.Initialize(); err != nil {
				log.Fatal(err)
			}
			fmt.Println("Journal has been initialized")
		},
	}
	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Show recorded invocations",
		Run: func(cmd *cobra.Command, args []string) {
			to := time.Now()
			from := to.Add(-30 * 24 * time.Hour)
			var err error
			if historyFrom != "" {
				from, err = time.Parse(time.RFC3339, historyFrom)
				if err != nil {
					log.Fatal(err)
				}
			}
			if historyTo != "" {
				to, err = time.Parse(time.RFC3339, historyTo)
				if err != nil {
					log.Fatal(err)
				}
			}

			j, err := openJournal()
			if err != nil {
				log.Fatal(err)
			}
			defer j.Close()

			entries, err := j.List(from, to)
			if err != nil {
				log.Fatal(err)
			}
			printJSON(entries)
		},
	}
)

func openJournal() (*journal.Journal, error) {
	if journalPath == "" {
		return nil, fmt.Errorf("--journal-file is required")
	}
	return journal.NewJournal(journalPath)
}

func init() {
	historyCmd.Flags().StringVar(&historyFrom, "from", "", "Start of the history range as RFC3339, defaults to 30 days ago")
	historyCmd.Flags().StringVar(&historyTo, "to", "", "End of the history range as RFC3339, defaults to now")

	journalCmd.AddCommand(initCmd)
	journalCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(journalCmd)
}
