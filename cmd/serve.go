package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nordatlas/atlas-cli/internal/source"
	"github.com/nordatlas/atlas-cli/internal/store"
)

var (
	servePort     int
	servePrefetch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		reg, err := initRegistry()
		if err != nil {
			return err
		}

		var st store.Store
		if cfg.Store.DatabaseURL != "" {
			st, err = initStore(ctx)
			if err != nil {
				zap.L().Warn("place store unavailable", zap.Error(err))
			} else {
				defer st.Close()
			}
		}

		if servePrefetch {
			for id, ferr := range reg.FetchAll(ctx, source.FetchParams{}) {
				zap.L().Warn("prefetch failed", zap.String("source", id), zap.Error(ferr))
			}
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: buildRouter(reg, st, cfg.Search),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&servePrefetch, "prefetch", true, "fetch all sources on startup")
	rootCmd.AddCommand(serveCmd)
}
