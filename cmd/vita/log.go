package vita

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vitaup/vitacore/internal/app"
	"github.com/vitaup/vitacore/internal/metrics"
	"github.com/vitaup/vitacore/internal/model"
	"github.com/vitaup/vitacore/internal/service"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Append meals, exercise, water and sleep to the ledger",
}

var (
	logDate    string
	logTime    string
	mealName   string
	mealKcal   int
	mealP      int
	mealC      int
	mealF      int
	mealGrams  float64
	mealVeg    int
	mealFruit  int
	mealCode   string
	mealUnit   string
	mealDens   float64
	exType     string
	exKcal     int
	exMinutes  int
	waterMl    int
	waterGlass int
	sleepMin   int
	sleepHours float64
	sleepQual  int
)

var logMealCmd = &cobra.Command{
	Use:   "meal",
	Short: "Log a meal by hand or from a barcode lookup",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
			at, err := parseDateTimeOrNow(logDate, logTime, rt.Location)
			if err != nil {
				return err
			}
			meal := model.MealPayload{
				FoodName:          mealName,
				ServingGrams:      mealGrams,
				Calories:          mealKcal,
				ProteinG:          mealP,
				CarbsG:            mealC,
				FatG:              mealF,
				VegetableServings: mealVeg,
				FruitServings:     mealFruit,
			}
			if strings.TrimSpace(mealCode) != "" {
				res, err := rt.Finder.LookupBarcode(ctx, mealCode)
				if err != nil {
					return err
				}
				grams := mealGrams
				if grams > 0 && !strings.EqualFold(mealUnit, "g") {
					if grams, err = service.ConvertAmount(mealGrams, mealUnit, "g", mealDens); err != nil {
						return err
					}
				}
				if grams <= 0 && len(res.Food.Servings) > 0 {
					grams = res.Food.Servings[0].Grams
				}
				if meal, err = service.SnapshotMeal(res.Food, grams, mealVeg, mealFruit); err != nil {
					return err
				}
			}
			return appendEntry(ctx, cmd, rt, service.EntryInput{UserID: rt.UserID, At: at, Meal: &meal})
		})
	},
}

var logExerciseCmd = &cobra.Command{
	Use:   "exercise",
	Short: "Log an exercise session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
			at, err := parseDateTimeOrNow(logDate, logTime, rt.Location)
			if err != nil {
				return err
			}
			x := model.ExercisePayload{ExerciseType: exType, CaloriesBurned: exKcal, DurationMinutes: exMinutes}
			return appendEntry(ctx, cmd, rt, service.EntryInput{UserID: rt.UserID, At: at, Exercise: &x})
		})
	},
}

var logWaterCmd = &cobra.Command{
	Use:   "water",
	Short: "Log water by ml or glasses",
	RunE: func(cmd *cobra.Command, args []string) error {
		ml := waterMl
		if cmd.Flags().Changed("glasses") {
			ml = service.GlassesToMl(waterGlass)
		}
		return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
			at, err := parseDateTimeOrNow(logDate, logTime, rt.Location)
			if err != nil {
				return err
			}
			return appendEntry(ctx, cmd, rt, service.EntryInput{UserID: rt.UserID, At: at, Water: &model.WaterPayload{Ml: ml}})
		})
	},
}

var logSleepCmd = &cobra.Command{
	Use:   "sleep",
	Short: "Log a night of sleep",
	RunE: func(cmd *cobra.Command, args []string) error {
		minutes := sleepMin
		if cmd.Flags().Changed("hours") {
			minutes = service.HoursToMinutes(sleepHours)
		}
		return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
			at, err := parseDateTimeOrNow(logDate, logTime, rt.Location)
			if err != nil {
				return err
			}
			s := model.SleepPayload{Minutes: minutes, Quality: sleepQual}
			return appendEntry(ctx, cmd, rt, service.EntryInput{UserID: rt.UserID, At: at, Sleep: &s})
		})
	},
}

var logCorrectCmd = &cobra.Command{
	Use:   "correct <entry-id>",
	Short: "Replace an entry with corrected values",
	Long:  "correct appends a new entry that supersedes the given one. Pass the same flags as the matching log subcommand (--name/--kcal, --type/--burned, --ml, --minutes).",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
			original, err := rt.Journal.FindEntry(ctx, rt.UserID, args[0])
			if err != nil {
				return err
			}
			in := service.EntryInput{UserID: rt.UserID}
			switch original.Kind {
			case model.KindMeal:
				in.Meal = &model.MealPayload{FoodName: mealName, ServingGrams: mealGrams, Calories: mealKcal, ProteinG: mealP, CarbsG: mealC, FatG: mealF, VegetableServings: mealVeg, FruitServings: mealFruit}
			case model.KindExercise:
				in.Exercise = &model.ExercisePayload{ExerciseType: exType, CaloriesBurned: exKcal, DurationMinutes: exMinutes}
			case model.KindWater:
				in.Water = &model.WaterPayload{Ml: waterMl}
			case model.KindSleep:
				in.Sleep = &model.SleepPayload{Minutes: sleepMin, Quality: sleepQual}
			}
			e, err := service.Correct(original, in)
			if err != nil {
				return err
			}
			return writeEntry(ctx, cmd, rt, e)
		})
	},
}

var logRetractCmd = &cobra.Command{
	Use:   "retract <entry-id>",
	Short: "Remove an entry from every ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
			original, err := rt.Journal.FindEntry(ctx, rt.UserID, args[0])
			if err != nil {
				return err
			}
			e, err := service.Retract(original)
			if err != nil {
				return err
			}
			return writeEntry(ctx, cmd, rt, e)
		})
	},
}

func appendEntry(ctx context.Context, cmd *cobra.Command, rt *app.Runtime, in service.EntryInput) error {
	e, err := service.NewEntry(in)
	if err != nil {
		return err
	}
	return writeEntry(ctx, cmd, rt, e)
}

func writeEntry(ctx context.Context, cmd *cobra.Command, rt *app.Runtime, e model.LoggedEntry) error {
	if err := rt.Journal.AppendEntry(ctx, e); err != nil {
		return err
	}
	kind := string(e.Kind)
	if e.Retracted {
		kind = "retraction"
	}
	metrics.RecordEntry(kind)
	if outputJSON {
		return printJSON(cmd.OutOrStdout(), e)
	}
	switch {
	case e.Retracted:
		fmt.Fprintf(cmd.OutOrStdout(), "Retracted entry %s (marker %s)\n", e.Supersedes, e.ID)
	case e.Supersedes != "":
		fmt.Fprintf(cmd.OutOrStdout(), "Logged %s entry %s replacing %s\n", e.Kind, e.ID, e.Supersedes)
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "Logged %s entry %s\n", e.Kind, e.ID)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(logCmd)
	logCmd.AddCommand(logMealCmd, logExerciseCmd, logWaterCmd, logSleepCmd, logCorrectCmd, logRetractCmd)
	logCmd.PersistentFlags().StringVar(&logDate, "date", "", "Date YYYY-MM-DD (default now)")
	logCmd.PersistentFlags().StringVar(&logTime, "time", "", "Time HH:MM")

	for _, c := range []*cobra.Command{logMealCmd, logCorrectCmd} {
		c.Flags().StringVar(&mealName, "name", "", "Food name")
		c.Flags().IntVar(&mealKcal, "kcal", 0, "Calories")
		c.Flags().IntVar(&mealP, "protein", 0, "Protein grams")
		c.Flags().IntVar(&mealC, "carbs", 0, "Carb grams")
		c.Flags().IntVar(&mealF, "fat", 0, "Fat grams")
		c.Flags().Float64Var(&mealGrams, "grams", 0, "Serving size (grams unless --unit is set)")
		c.Flags().IntVar(&mealVeg, "veg", 0, "Vegetable servings")
		c.Flags().IntVar(&mealFruit, "fruit", 0, "Fruit servings")
	}
	logMealCmd.Flags().StringVar(&mealCode, "barcode", "", "Look up nutrition by barcode instead of --kcal/--protein/...")
	logMealCmd.Flags().StringVar(&mealUnit, "unit", "g", "Unit of --grams for barcode meals (g, oz, cup, ml, ...)")
	logMealCmd.Flags().Float64Var(&mealDens, "density", 0, "Density in g/ml when --unit is a volume")

	for _, c := range []*cobra.Command{logExerciseCmd, logCorrectCmd} {
		c.Flags().StringVar(&exType, "type", "", "Exercise type")
		c.Flags().IntVar(&exKcal, "burned", 0, "Calories burned")
	}
	logExerciseCmd.Flags().IntVar(&exMinutes, "duration", 0, "Duration in minutes")
	logCorrectCmd.Flags().IntVar(&exMinutes, "duration", 0, "Exercise duration in minutes")

	for _, c := range []*cobra.Command{logWaterCmd, logCorrectCmd} {
		c.Flags().IntVar(&waterMl, "ml", 0, "Water in ml")
	}
	logWaterCmd.Flags().IntVar(&waterGlass, "glasses", 0, "Water in 250 ml glasses")

	for _, c := range []*cobra.Command{logSleepCmd, logCorrectCmd} {
		c.Flags().IntVar(&sleepMin, "minutes", 0, "Sleep in minutes")
		c.Flags().IntVar(&sleepQual, "quality", 0, "Sleep quality 1-5")
	}
	logSleepCmd.Flags().Float64Var(&sleepHours, "hours", 0, "Sleep in hours")
}
