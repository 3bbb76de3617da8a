package vita

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/vitaup/vitacore/internal/app"
	"github.com/vitaup/vitacore/internal/metrics"
	"github.com/vitaup/vitacore/internal/model"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage the body profile used for targets",
}

var (
	profAge      float64
	profSex      string
	profHeight   float64
	profWeight   float64
	profGoal     string
	profActivity string
)

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Save a new profile version from the given answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		d := profileDraftFromFlags(cmd)
		return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
			p, err := rt.Journal.UpdateProfile(ctx, rt.UserID, d, time.Now())
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(cmd.OutOrStdout(), p)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved profile %s version %d\n", p.ID, p.Version)
			return nil
		})
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the latest profile version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
			p, err := rt.Journal.LatestProfile(ctx, rt.UserID)
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(cmd.OutOrStdout(), p)
			}
			printProfile(cmd.OutOrStdout(), p)
			return nil
		})
	},
}

var profileHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List every stored profile version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
			history, err := rt.Journal.ProfileHistory(ctx, rt.UserID)
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(cmd.OutOrStdout(), history)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "VERSION\tUPDATED\tWEIGHT_KG\tGOAL\tACTIVITY")
			for _, p := range history {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%.1f\t%s\t%s\n", p.Version, p.UpdatedAt.Format(time.RFC3339), p.WeightKg, p.Goal, p.ActivityLevel)
			}
			return nil
		})
	},
}

// targetsCmd uses the flags when any are given and the stored profile
// otherwise.
var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Compute daily calorie, macro and water targets",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
			var p model.Profile
			if anyProfileFlag(cmd) {
				p = model.Profile{
					Age:           profAge,
					Sex:           model.Sex(profSex),
					HeightCm:      profHeight,
					WeightKg:      profWeight,
					Goal:          model.Goal(profGoal),
					ActivityLevel: model.ActivityLevel(profActivity),
				}
			} else {
				stored, err := rt.Journal.LatestProfile(ctx, rt.UserID)
				if err != nil {
					return fmt.Errorf("%w (run `vita profile set` or pass profile flags)", err)
				}
				p = stored
			}
			t, err := rt.Engine.ComputeTargets(p)
			if err != nil {
				return err
			}
			metrics.RecordTargets(t.ActivityFactorFallback)
			if outputJSON {
				return printJSON(cmd.OutOrStdout(), t)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "BMR: %.1f kcal\nTDEE: %.1f kcal\n", t.BMR, t.TDEE)
			fmt.Fprintf(cmd.OutOrStdout(), "Daily goal: %.0f kcal\n", t.DailyCalories)
			fmt.Fprintf(cmd.OutOrStdout(), "Macros: P %dg | C %dg | F %dg\n", t.ProteinG, t.CarbsG, t.FatG)
			fmt.Fprintf(cmd.OutOrStdout(), "Water: %d ml\n", t.WaterMl)
			if t.ActivityFactorFallback {
				fmt.Fprintf(cmd.OutOrStdout(), "Note: activity level %q is unknown, fallback factor used\n", p.ActivityLevel)
			}
			return nil
		})
	},
}

func printProfile(w io.Writer, p model.Profile) {
	fmt.Fprintf(w, "Profile: %s (version %d)\n", p.ID, p.Version)
	fmt.Fprintf(w, "Age: %.0f\nSex: %s\n", p.Age, p.Sex)
	fmt.Fprintf(w, "Height: %.1f cm\nWeight: %.1f kg\n", p.HeightCm, p.WeightKg)
	fmt.Fprintf(w, "Goal: %s\nActivity: %s\n", p.Goal, p.ActivityLevel)
}

var profileFlagNames = []string{"age", "sex", "height", "weight", "goal", "activity"}

func anyProfileFlag(cmd *cobra.Command) bool {
	for _, name := range profileFlagNames {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

func profileDraftFromFlags(cmd *cobra.Command) model.ProfileDraft {
	var d model.ProfileDraft
	f := cmd.Flags()
	if f.Changed("age") {
		d.Age = &profAge
	}
	if f.Changed("sex") {
		s := model.Sex(profSex)
		d.Sex = &s
	}
	if f.Changed("height") {
		d.HeightCm = &profHeight
	}
	if f.Changed("weight") {
		d.WeightKg = &profWeight
	}
	if f.Changed("goal") {
		g := model.Goal(profGoal)
		d.Goal = &g
	}
	if f.Changed("activity") {
		a := model.ActivityLevel(profActivity)
		d.ActivityLevel = &a
	}
	return d
}

func addProfileFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&profAge, "age", 0, "Age in years")
	cmd.Flags().StringVar(&profSex, "sex", "", "Sex: male|female|other")
	cmd.Flags().Float64Var(&profHeight, "height", 0, "Height in cm")
	cmd.Flags().Float64Var(&profWeight, "weight", 0, "Weight in kg")
	cmd.Flags().StringVar(&profGoal, "goal", "", "Goal: lose|maintain|gain")
	cmd.Flags().StringVar(&profActivity, "activity", "", "Activity: sedentary|light|moderate|active|very_active")
}

func init() {
	rootCmd.AddCommand(profileCmd, targetsCmd)
	profileCmd.AddCommand(profileSetCmd, profileShowCmd, profileHistoryCmd)
	addProfileFlags(profileSetCmd)
	addProfileFlags(targetsCmd)
}
