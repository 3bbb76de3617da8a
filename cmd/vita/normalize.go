package vita

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vitaup/vitacore/internal/metrics"
	"github.com/vitaup/vitacore/internal/model"
	"github.com/vitaup/vitacore/internal/service"
)

var (
	normSource   string
	normProvider string
	normQuery    string
	normFile     string
)

// normalizeCmd works offline on a saved provider response.
var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Normalize a saved provider response into food records",
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			payload []byte
			err     error
		)
		if normFile == "" || normFile == "-" {
			payload, err = io.ReadAll(cmd.InOrStdin())
		} else {
			payload, err = os.ReadFile(normFile)
		}
		if err != nil {
			return fmt.Errorf("read payload: %w", err)
		}
		recs, err := service.NormalizeFood(service.RawFood{
			Source:   model.FoodSource(normSource),
			Provider: normProvider,
			Query:    normQuery,
			Payload:  payload,
		})
		metrics.RecordNormalization(normSource, err)
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(cmd.OutOrStdout(), recs)
		}
		for i, rec := range recs {
			if i > 0 {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			printFood(cmd.OutOrStdout(), rec)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
	normalizeCmd.Flags().StringVar(&normSource, "source", "", "Source: barcode|text_search|photo_ai|cache")
	normalizeCmd.Flags().StringVar(&normProvider, "provider", "", "Provider (default depends on source)")
	normalizeCmd.Flags().StringVar(&normQuery, "query", "", "Original query, used for confidence scoring")
	normalizeCmd.Flags().StringVar(&normFile, "file", "-", "Payload file, - for stdin")
	_ = normalizeCmd.MarkFlagRequired("source")
}
