package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/sheetsql/internal/api"
	"github.com/mesh-intelligence/sheetsql/internal/sweeper"
	"github.com/mesh-intelligence/sheetsql/pkg/sqlite"
)

// shutdownTimeout bounds how long in-flight requests may take after a signal.
const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run the retention sweeper",
		Long: "Serve POST /upload-file, POST /execute-query and GET /get-schema/{uuid}\n" +
			"while the retention sweeper deletes expired datasets. Stops on SIGINT or SIGTERM.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				a.cfg.ListenAddr = listen
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config listen_addr)")
	return cmd
}

// serve runs the HTTP server and the sweeper until ctx is cancelled.
func (a *app) serve(ctx context.Context) error {
	store, err := sqlite.NewStore(a.cfg, a.logger)
	if err != nil {
		return sysErr("open store: %v", err)
	}

	sw := sweeper.New(sweeper.ConfigFrom(a.cfg), a.logger)
	sw.Start(ctx)
	defer sw.Stop()

	srv := &http.Server{
		Addr:              a.cfg.ListenAddr,
		Handler:           api.NewServer(store, a.cfg.MaxUploadBytes, a.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening",
			zap.String("addr", a.cfg.ListenAddr),
			zap.String("data_dir", a.cfg.DataDir))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return sysErr("http server: %v", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return sysErr("shutdown: %v", err)
	}
	a.logger.Info("http server stopped")
	return nil
}
