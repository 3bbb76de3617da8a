package vita

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	dbPath     string
	envFile    string
	outputJSON bool
)

var rootCmd = &cobra.Command{
	Use:           "vita",
	Short:         "vita computes energy targets and tracks daily intake",
	Long:          "vita turns a body profile into daily calorie, macro and water targets, normalizes food data from barcode, search and photo providers, and keeps an append-only daily ledger.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to SQLite database (overrides VITA_DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Env file to load before reading the environment")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Print JSON instead of text")
}
