package cmd

import (
	"log"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/vshn/datadog-downtime/pkg/journal"
	"github.com/vshn/datadog-downtime/pkg/reconcile"
)

type failureReport struct {
	Changed bool   `json:"changed"`
	Failed  bool   `json:"failed"`
	Msg     string `json:"msg"`
}

var (
	ensureState        string
	ensureScope        []string
	ensureStart        int64
	ensureEnd          int64
	ensureMessage      string
	ensureRecurrence   string
	ensureActiveOnly   bool
	ensureRequireMatch bool

	ensureCmd = &cobra.Command{
		Use:   "ensure",
		Short: "Ensure downtimes matching a scope are present, updated or absent",
		Long:  "Reconcile Datadog monitor downtimes matching a tag scope against the desired state given by --state",
		Run: func(cmd *cobra.Command, args []string) {
			logger := newLogger()

			state, err := reconcile.ParseState(ensureState)
			if err != nil {
				log.Fatal(err)
			}
			recurrence, err := reconcile.ParseRecurrence(ensureRecurrence)
			if err != nil {
				log.Fatal(err)
			}

			params := reconcile.Params{
				State:        state,
				Scope:        ensureScope,
				Recurrence:   recurrence,
				ActiveOnly:   ensureActiveOnly,
				RequireMatch: ensureRequireMatch,
			}
			if cmd.Flags().Changed("start") {
				params.Start = &ensureStart
			}
			if cmd.Flags().Changed("end") {
				params.End = &ensureEnd
			}
			if cmd.Flags().Changed("message") {
				params.Message = &ensureMessage
			}

			client, err := newAPIClient(&logger)
			if err != nil {
				log.Fatal(err)
			}

			reconciler := reconcile.New(client, reconcile.Config{Logger: &logger})
			result, rerr := reconciler.Reconcile(cmd.Context(), params)
			recordOutcome(logger, params, result, rerr)

			if rerr != nil {
				printJSON(failureReport{Failed: true, Msg: rerr.Error()})
				log.Fatal(rerr)
			}
			printJSON(result)
		},
	}
)

// recordOutcome appends the invocation to the journal when one is configured.
// Journal trouble is logged but never fails the invocation.
func recordOutcome(logger logr.Logger, params reconcile.Params, result reconcile.Result, rerr error) {
	if journalPath == "" {
		return
	}

	j, err := journal.NewJournal(journalPath)
	if err != nil {
		logger.Error(err, "Failed to open journal")
		return
	}
	defer j.Close()

	if err := j.Initialize(); err != nil {
		logger.Error(err, "Failed to initialize journal")
		return
	}

	entry := journal.Entry{
		Time:     time.Now(),
		State:    string(params.State),
		Scope:    params.Scope,
		Changed:  result.Changed,
		Found:    result.Found,
		Updated:  result.Updated,
		Canceled: result.Canceled,
		Msg:      result.Msg,
	}
	if rerr != nil {
		entry.Msg = rerr.Error()
	}

	if _, err := j.Record(entry); err != nil {
		logger.Error(err, "Failed to record invocation")
	}
}

func init() {
	ensureCmd.Flags().StringVar(&ensureState, "state", "", "Desired lifecycle state: present, updated or absent")
	ensureCmd.Flags().StringSliceVar(&ensureScope, "scope", nil, "Tag scope identifying the monitors, e.g. host:myhost,myapp")
	ensureCmd.Flags().Int64Var(&ensureStart, "start", 0, "Downtime start as epoch seconds, defaults to now on create")
	ensureCmd.Flags().Int64Var(&ensureEnd, "end", 0, "Downtime end as epoch seconds, runs indefinitely if not given")
	ensureCmd.Flags().StringVar(&ensureMessage, "message", "", "Downtime info text")
	ensureCmd.Flags().StringVar(&ensureRecurrence, "recurrence", "", "Downtime recurrence as a JSON object")
	ensureCmd.Flags().BoolVar(&ensureActiveOnly, "active-only", false, "Only match downtimes that are currently active")
	ensureCmd.Flags().BoolVar(&ensureRequireMatch, "require-match", false, "Fail when no downtime matches the scope, even for --state present")
	ensureCmd.MarkFlagRequired("state")
	ensureCmd.MarkFlagRequired("scope")

	rootCmd.AddCommand(ensureCmd)
}
