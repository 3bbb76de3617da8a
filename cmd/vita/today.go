package vita

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vitaup/vitacore/internal/app"
	"github.com/vitaup/vitacore/internal/model"
	"github.com/vitaup/vitacore/internal/service"
)

var todayDate string

type dayReport struct {
	Ledger     model.DailyLedger      `json:"ledger"`
	Summary    *model.DailySummary    `json:"summary,omitempty"`
	Progress   *service.MacroProgress `json:"progress,omitempty"`
	Motivation string                 `json:"motivation,omitempty"`
}

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show the day's intake, exercise, water and goal progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
			day, err := resolveDay(todayDate, rt.Location)
			if err != nil {
				return err
			}
			report, err := buildDayReport(ctx, rt, day)
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(cmd.OutOrStdout(), report)
			}
			l := report.Ledger
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Date: %s\n", l.Date)
			fmt.Fprintf(w, "Intake: %d kcal\n", l.CaloriesConsumed)
			fmt.Fprintf(w, "Exercise: %d kcal (%d min)\n", l.CaloriesBurned, l.ExerciseMinutes)
			fmt.Fprintf(w, "Macros: P %dg | C %dg | F %dg\n", l.ProteinG, l.CarbsG, l.FatG)
			fmt.Fprintf(w, "Water: %d ml (%d glasses)\n", l.WaterMl, l.WaterGlasses)
			fmt.Fprintf(w, "Sleep: %.1f h\n", l.SleepHours)
			if report.Summary == nil {
				fmt.Fprintln(w, "Goal: not set (run `vita profile set`)")
				return nil
			}
			s := report.Summary
			fmt.Fprintf(w, "Goal: %.0f kcal | P %dg | C %dg | F %dg\n", s.Targets.DailyCalories, s.Targets.ProteinG, s.Targets.CarbsG, s.Targets.FatG)
			fmt.Fprintf(w, "Remaining: %.0f kcal (%.1f%% of goal eaten)\n", s.RemainingCalories, s.CaloriesPercent)
			fmt.Fprintf(w, "Water progress: %.1f%%\n", s.WaterPercent)
			if report.Motivation != "" {
				fmt.Fprintln(w, report.Motivation)
			}
			return nil
		})
	},
}

func buildDayReport(ctx context.Context, rt *app.Runtime, day time.Time) (dayReport, error) {
	ledger, err := rt.Journal.Ledger(ctx, rt.UserID, day, rt.Location, rt.MaxGlasses)
	if err != nil {
		return dayReport{}, err
	}
	report := dayReport{Ledger: ledger}
	p, err := rt.Journal.LatestProfile(ctx, rt.UserID)
	if errors.Is(err, service.ErrNotFound) {
		return report, nil
	}
	if err != nil {
		return dayReport{}, err
	}
	targets, err := rt.Engine.ComputeTargets(p)
	if err != nil {
		return dayReport{}, err
	}
	summary := service.Summarize(targets, ledger)
	progress := service.Progress(targets, ledger)
	report.Summary = &summary
	report.Progress = &progress
	report.Motivation = service.NewMotivator(time.Now().UnixNano(), nil).Line(summary)
	return report, nil
}

func init() {
	rootCmd.AddCommand(todayCmd)
	todayCmd.Flags().StringVar(&todayDate, "date", "", "Date YYYY-MM-DD (default today)")
}
