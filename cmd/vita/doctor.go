package vita

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vitaup/vitacore/internal/app"
	"github.com/vitaup/vitacore/internal/config"
	"github.com/vitaup/vitacore/internal/journal"
)

var doctorFix bool

type doctorResult struct {
	Journal       *journal.DoctorReport `json:"journal,omitempty"`
	ExpiredCache  int                   `json:"expired_cache_rows"`
	PurgedCache   int64                 `json:"purged_cache_rows,omitempty"`
	JournalRemote bool                  `json:"journal_remote,omitempty"`
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run data integrity checks",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
			var res doctorResult
			if rt.Config.Storage == config.StorageSQLite {
				report, err := journal.Doctor(ctx, rt.DB)
				if err != nil {
					return err
				}
				res.Journal = &report
			} else {
				res.JournalRemote = true
			}

			expired, err := rt.Cache.Expired(ctx)
			if err != nil {
				return err
			}
			res.ExpiredCache = expired
			if doctorFix && expired > 0 {
				if res.PurgedCache, err = rt.Cache.PurgeExpired(ctx); err != nil {
					return err
				}
			}

			if outputJSON {
				if err := printJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				if res.Journal != nil {
					fmt.Fprintf(out, "Dangling corrections: %d\n", res.Journal.DanglingCorrections)
					fmt.Fprintf(out, "Branched corrections: %d\n", res.Journal.BranchedCorrections)
					fmt.Fprintf(out, "Unknown entry kinds: %d\n", res.Journal.UnknownKinds)
				} else {
					fmt.Fprintln(out, "Journal checks skipped: entries live in remote storage")
				}
				fmt.Fprintf(out, "Expired cache rows: %d\n", res.ExpiredCache)
				if doctorFix {
					fmt.Fprintf(out, "Purged cache rows: %d\n", res.PurgedCache)
				}
			}
			if res.Journal != nil && !res.Journal.Clean() {
				return fmt.Errorf("doctor found integrity issues")
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "Purge expired cache rows")
}
