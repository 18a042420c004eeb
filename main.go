package main

import (
	"time"

	"github.com/vshn/datadog-downtime/pkg/cmd"
)

var (
	// these variables are populated by Goreleaser when releasing
	version = "unknown"
	commit  = "-dirty-"
	date    = time.Now().Format("2006-01-02")

	appName     = "datadog-downtime"
	appLongName = "Datadog Downtime Reconciler"
)

func main() {
	cmd.Execute()
}
