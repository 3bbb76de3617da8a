package vita

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vitaup/vitacore/internal/app"
	"github.com/vitaup/vitacore/internal/metrics"
	"github.com/vitaup/vitacore/internal/model"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Look up nutrition data from external providers",
}

var (
	searchLimit int
	photoText   bool
)

var lookupBarcodeCmd = &cobra.Command{
	Use:   "barcode <code>",
	Short: "Look up a packaged food by barcode across the configured providers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
			res, err := rt.Finder.LookupBarcode(ctx, args[0])
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(cmd.OutOrStdout(), res)
			}
			source := "live"
			if res.FromCache {
				source = "cache"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Provider: %s (%s)\n", res.Provider, source)
			if len(res.Trail) > 1 {
				fmt.Fprintf(cmd.OutOrStdout(), "Tried: %s\n", strings.Join(res.Trail, " -> "))
			}
			printFood(cmd.OutOrStdout(), res.Food)
			return nil
		})
	},
}

var lookupSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search foods by text across the configured providers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
			res, err := rt.Finder.SearchFoods(ctx, query, searchLimit)
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(cmd.OutOrStdout(), res)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "PROVIDER\tID\tNAME\tBRAND\tKCAL/100G\tCONFIDENCE")
			for _, f := range res.Foods {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.1f\t%.2f\n", f.Provider, f.SourceID, f.Name, f.Brand, f.Per100g.Kcal, f.Confidence)
			}
			for p, msg := range res.Failed {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s failed: %s\n", p, msg)
			}
			return nil
		})
	},
}

var lookupPhotoCmd = &cobra.Command{
	Use:   "photo <image-file | description>",
	Short: "Estimate a plate from a photo or a meal description",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := strings.Join(args, " ")
		if !photoText {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}
			input = base64.StdEncoding.EncodeToString(data)
		}
		return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
			a, err := rt.Finder.AnalyzePhoto(ctx, input)
			metrics.RecordNormalization(string(model.SourcePhotoAI), err)
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(cmd.OutOrStdout(), a)
			}
			w := cmd.OutOrStdout()
			for i, item := range a.Items {
				fmt.Fprintf(w, "%s: %.0f g\n", item.Name, a.QuantitiesG[i])
			}
			fmt.Fprintf(w, "Items total: %.0f kcal\n", a.ItemsKcalSum)
			fmt.Fprintf(w, "Model estimate: %.0f kcal\n", a.KcalTotal)
			if a.Notes != "" {
				fmt.Fprintf(w, "Notes: %s\n", a.Notes)
			}
			return nil
		})
	},
}

func printFood(w io.Writer, f model.FoodRecord) {
	fmt.Fprintf(w, "Food: %s\n", f.Name)
	if f.Brand != "" {
		fmt.Fprintf(w, "Brand: %s\n", f.Brand)
	}
	if f.Barcode != "" {
		fmt.Fprintf(w, "Barcode: %s\n", f.Barcode)
	}
	n := f.Per100g
	fmt.Fprintf(w, "Per 100 g: %.1f kcal | P %.1fg | C %.1fg | F %.1fg\n", n.Kcal, n.ProteinG, n.CarbsG, n.FatG)
	for _, s := range f.Servings {
		fmt.Fprintf(w, "Serving: %s (%.1f g)\n", s.Label, s.Grams)
	}
	fmt.Fprintf(w, "Confidence: %.2f (%s)\n", f.Confidence, f.Completeness)
	if f.LowConfidence {
		fmt.Fprintf(w, "Missing: %s\n", strings.Join(f.MissingFields, ", "))
	}
}

func init() {
	rootCmd.AddCommand(lookupCmd)
	lookupCmd.AddCommand(lookupBarcodeCmd, lookupSearchCmd, lookupPhotoCmd)
	lookupSearchCmd.Flags().IntVar(&searchLimit, "limit", 10, "Maximum results")
	lookupPhotoCmd.Flags().BoolVar(&photoText, "text", false, "Treat the arguments as a meal description instead of an image file")
}
