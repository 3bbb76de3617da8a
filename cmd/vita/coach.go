package vita

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vitaup/vitacore/internal/app"
	"github.com/vitaup/vitacore/internal/model"
	"github.com/vitaup/vitacore/internal/service"
)

var coachCmd = &cobra.Command{
	Use:   "coach",
	Short: "Talk to the nutrition coach about a day",
}

var (
	coachDate string
	coachTone string
)

var coachAskCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Send a message with the day's summary to the coach",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
			cc, err := coachContext(ctx, rt, strings.Join(args, " "))
			if err != nil {
				return err
			}
			reply, err := rt.Coach.Ask(ctx, cc)
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(cmd.OutOrStdout(), reply)
			}
			printCoachReply(cmd.OutOrStdout(), reply)
			return nil
		})
	},
}

var coachContextCmd = &cobra.Command{
	Use:   "context [message]",
	Short: "Print the payload that would be sent to the coach",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
			cc, err := coachContext(ctx, rt, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), cc)
		})
	},
}

// coachParseCmd reads a raw model reply from stdin. It never fails on content.
var coachParseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Parse a raw coach reply read from stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read reply: %w", err)
		}
		reply := service.ParseCoachReply(string(raw))
		if outputJSON {
			return printJSON(cmd.OutOrStdout(), reply)
		}
		printCoachReply(cmd.OutOrStdout(), reply)
		return nil
	},
}

func coachContext(ctx context.Context, rt *app.Runtime, message string) (model.CoachContext, error) {
	day, err := resolveDay(coachDate, rt.Location)
	if err != nil {
		return model.CoachContext{}, err
	}
	report, err := buildDayReport(ctx, rt, day)
	if err != nil {
		return model.CoachContext{}, err
	}
	settings := model.CoachSettings{Tone: coachTone}
	if settings.Tone == "" {
		settings.Tone = rt.CoachTone
	}
	var targets model.DailyTargets
	if report.Summary != nil {
		targets = report.Summary.Targets
		if p, err := rt.Journal.LatestProfile(ctx, rt.UserID); err == nil {
			settings.Goal = p.Goal
		}
	}
	return service.BuildCoachContext(message, report.Ledger, targets, settings), nil
}

func printCoachReply(w io.Writer, reply model.CoachReply) {
	fmt.Fprintln(w, reply.Reply)
	for _, a := range reply.Actions {
		switch {
		case a.Title != "":
			fmt.Fprintf(w, "  - [%s] %s\n", a.Type, a.Title)
		case a.TargetMl > 0:
			fmt.Fprintf(w, "  - [%s] %d ml\n", a.Type, a.TargetMl)
		case a.Minutes > 0:
			fmt.Fprintf(w, "  - [%s] %d min\n", a.Type, a.Minutes)
		default:
			fmt.Fprintf(w, "  - [%s]\n", a.Type)
		}
	}
}

func init() {
	rootCmd.AddCommand(coachCmd)
	coachCmd.AddCommand(coachAskCmd, coachContextCmd, coachParseCmd)
	coachCmd.PersistentFlags().StringVar(&coachDate, "date", "", "Date YYYY-MM-DD (default today)")
	coachCmd.PersistentFlags().StringVar(&coachTone, "tone", "", "Coach tone (default from config, then friendly)")
}
