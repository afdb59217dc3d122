package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"github.com/balkashynov/wrokdesk/internal/api"
	"github.com/balkashynov/wrokdesk/internal/db"
	"github.com/balkashynov/wrokdesk/internal/engine"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the session engine and reports over HTTP",
	Long: `Serve the session engine and reports over HTTP for the client portal.
State changes are streamed to browsers over server-sent events.

Examples:
  wrokdesk serve
  wrokdesk serve --addr 127.0.0.1:9090`,
	RunE: func(cmd *cobra.Command, args []string) error {
		events := engine.NewBroadcaster()
		a, err := loadApp(engine.WithNotifier(events))
		if err != nil {
			return err
		}
		defer db.Close()

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			a.cfg.Addr = addr
		}

		e := echo.New()
		e.HideBanner = true
		e.HidePort = true
		api.SetupMiddleware(e, a.logger, a.cfg.CORSOrigins)
		api.RegisterRoutes(e, api.NewHandler(api.Dependencies{
			Engine:  a.engine,
			Records: a.store,
			Events:  events,
			Clock:   a.clock,
			Logger:  a.logger,
			Version: version,
		}))

		s := &http.Server{
			Addr:        a.cfg.Addr,
			ReadTimeout: 30 * time.Second,
			IdleTimeout: 120 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- e.StartServer(s)
		}()
		fmt.Printf("🌐 wrokdesk %s listening on %s\n", version, a.cfg.Addr)
		a.logger.Info("server started", "addr", a.cfg.Addr)

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-cmd.Context().Done():
		}

		a.logger.Info("shutting down")
		events.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shut down: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from config, :8080)")
}
