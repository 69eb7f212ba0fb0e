package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"asesor/internal/api"
	"asesor/internal/service"
)

// newServeCmd creates the offline backend subcommand.
func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat API from the local knowledge base",
		Long: `Serve exposes POST /api/articulos/search/chat, GET /api/companies and
GET /health backed by the local keyword search, so the web client and
"asesor --config remote.yaml chat" can run without the production backend.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = cfg.Server.Addr
			}
			a, err := newApp(logger)
			if err != nil {
				return err
			}

			router := api.NewRouter(logger, service.NewLocalAssistant(a.search, 0), a.kb.Directory(), api.Config{
				RequestTimeout: time.Duration(cfg.Server.RequestTimeoutSecs) * time.Second,
				AllowedOrigins: cfg.Server.AllowedOrigins,
			})
			srv := &http.Server{
				Addr:              addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			serverErrors := make(chan error, 1)
			go func() {
				logger.Info().
					Str("addr", addr).
					Int("articles", a.kb.ArticleCount()).
					Msg("HTTP server listening")
				serverErrors <- srv.ListenAndServe()
			}()

			shutdown := make(chan os.Signal, 1)
			signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(shutdown)

			select {
			case err := <-serverErrors:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case sig := <-shutdown:
				logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error().Err(err).Msg("Graceful shutdown failed")
				return srv.Close()
			}
			logger.Info().Msg("Server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr from config)")
	return cmd
}
