package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vshn/datadog-downtime/pkg/datadog"
)

var (
	appName     = "datadog-downtime"
	appLongName = "Datadog Downtime Reconciler"
)

type envConfig struct {
	APIKey string `env:"DD_API_KEY"`
	AppKey string `env:"DD_APP_KEY"`
	APIURL string `env:"DD_API_URL" envDefault:"https://api.datadoghq.com"`
}

var (
	apiKey      string
	appKey      string
	apiURL      string
	verbosity   int
	journalPath string

	rootCmd = &cobra.Command{
		Use:   appName,
		Short: appLongName,
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	var e envConfig
	if err := env.Parse(&e); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", e.APIKey, "Datadog API key (defaults to DD_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&appKey, "app-key", e.AppKey, "Datadog application key (defaults to DD_APP_KEY)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", e.APIURL, "Base URL of the Datadog API (defaults to DD_API_URL)")
	rootCmd.PersistentFlags().IntVarP(&verbosity, "verbosity", "v", 0, "Log verbosity")
	rootCmd.PersistentFlags().StringVar(&journalPath, "journal-file", "", "Path of the SQLite journal file, journaling is disabled if empty")
}

func newLogger() logr.Logger {
	stdr.SetVerbosity(verbosity)
	return stdr.New(log.New(os.Stderr, "", log.LstdFlags)).
		WithValues("invocation_id", uuid.NewString())
}

func newAPIClient(logger *logr.Logger) (*datadog.Client, error) {
	return datadog.NewClient(datadog.Config{
		BaseURL: apiURL,
		APIKey:  apiKey,
		AppKey:  appKey,
		Logger:  logger,
	})
}

func printJSON(v any) {
	if err := json.NewEncoder(os.Stdout).Encode(v); err != nil {
		log.Fatal(err)
	}
}
