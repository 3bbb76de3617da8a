package vita

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vitaup/vitacore/internal/api"
	"github.com/vitaup/vitacore/internal/app"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and /metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *app.Runtime) error {
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			server := api.NewApp(api.NewHandler(api.Dependencies{
				Engine:     rt.Engine,
				Journal:    rt.Journal,
				Finder:     rt.Finder,
				Coach:      rt.Coach,
				Location:   rt.Location,
				UserID:     rt.UserID,
				MaxGlasses: rt.MaxGlasses,
				CoachTone:  rt.CoachTone,
				Log:        rt.Log.Named("http"),
			}))

			addr := listenAddr
			if addr == "" {
				addr = rt.Config.ListenAddr
			}
			errCh := make(chan error, 1)
			go func() {
				rt.Log.Info("http server listening", zap.String("addr", addr), zap.String("storage", rt.Config.Storage))
				errCh <- server.Listen(addr)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			rt.Log.Info("shutting down http server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "Listen address (default VITA_LISTEN_ADDR)")
}
