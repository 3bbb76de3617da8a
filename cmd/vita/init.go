package vita

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vitaup/vitacore/internal/db"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the local vita database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path := cfg.DBPath
		if path == "" {
			if path, err = db.DefaultPath(); err != nil {
				return err
			}
		}
		sqldb, err := db.OpenMigrated(path)
		if err != nil {
			return err
		}
		defer sqldb.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "Initialized vita database at %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
