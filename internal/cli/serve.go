package cli

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"specforge/internal/gateway/app"
	"specforge/internal/gateway/config"
)

func newServeCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP, Connect and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.NewWithConfig(ctx, cfg)
			if err != nil {
				return err
			}
			errCh := make(chan error, 1)
			go func() { errCh <- a.Start() }()

			select {
			case err = <-errCh:
			case <-ctx.Done():
				log.Println("Shutting down server...")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if serr := a.Shutdown(shutdownCtx); serr != nil && err == nil {
				err = serr
			}
			return err
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen address, overrides PORT (e.g. :8080)")
	return cmd
}
