package vita

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vitaup/vitacore/internal/app"
	"github.com/vitaup/vitacore/internal/config"
	"github.com/vitaup/vitacore/internal/logging"
	"github.com/vitaup/vitacore/internal/service"
)

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(envFile, nil)
	if err != nil {
		return config.Config{}, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if err := logging.Init(cfg.LogLevel, cfg.LogJSON); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func withRuntime(cmd *cobra.Command, run func(context.Context, *app.Runtime) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := app.Open(ctx, cfg, logging.L())
	if err != nil {
		return err
	}
	defer rt.Close()
	return run(ctx, rt)
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json output: %w", err)
	}
	fmt.Fprintln(w, string(b))
	return nil
}

// resolveDay reads --date in loc; empty means today.
func resolveDay(date string, loc *time.Location) (time.Time, error) {
	if strings.TrimSpace(date) == "" {
		return time.Now().In(loc), nil
	}
	return service.ParseDate(date, loc)
}

func parseDateTimeOrNow(date, timeStr string, loc *time.Location) (time.Time, error) {
	date = strings.TrimSpace(date)
	timeStr = strings.TrimSpace(timeStr)
	if date == "" && timeStr == "" {
		return time.Now(), nil
	}
	if date == "" {
		return time.Time{}, fmt.Errorf("--date is required when --time is set")
	}
	if timeStr == "" {
		return service.ParseDate(date, loc)
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+timeStr, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date/--time (expected YYYY-MM-DD and HH:MM)")
	}
	return t, nil
}
