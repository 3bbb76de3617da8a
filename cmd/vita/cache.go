package vita

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vitaup/vitacore/internal/app"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and purge cached provider answers",
}

var (
	cacheProvider string
	cacheKey      string
	cacheAll      bool
	cacheLimit    int
)

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached lookups",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
			items, err := rt.Cache.List(ctx, cacheProvider, cacheLimit)
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(cmd.OutOrStdout(), items)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "PROVIDER\tKIND\tKEY\tRECORDS\tEXPIRES")
			for _, it := range items {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%d\t%s\n", it.Provider, it.Kind, it.Key, it.Records, it.ExpiresAt.Format(time.RFC3339))
			}
			return nil
		})
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete cached lookups",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
			n, err := rt.Cache.Purge(ctx, cacheProvider, cacheKey, cacheAll)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d cache row(s)\n", n)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheListCmd, cachePurgeCmd)
	cacheCmd.PersistentFlags().StringVar(&cacheProvider, "provider", "", "Provider: openfoodfacts|usda|upcitemdb")
	cacheListCmd.Flags().IntVar(&cacheLimit, "limit", 100, "Maximum rows")
	cachePurgeCmd.Flags().StringVar(&cacheKey, "key", "", "Barcode or search key")
	cachePurgeCmd.Flags().BoolVar(&cacheAll, "all", false, "Purge everything")
}
