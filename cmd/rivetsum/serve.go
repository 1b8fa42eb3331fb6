package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rivetq/rivetsum/internal/ratelimit"
	"github.com/rivetq/rivetsum/internal/rest"
	"github.com/rivetq/rivetsum/pkg/checksum"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP checksum API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			server := rest.NewServer(rest.Options{
				Engine:     checksum.Default(),
				Prober:     a.prober(),
				Limiter:    ratelimit.NewLimiter(a.cfg.RateLimit.Capacity, a.cfg.RateLimit.RefillRate),
				TrustProxy: a.cfg.Server.TrustProxy,
			})
			httpServer := &http.Server{
				Addr:              a.cfg.Server.HTTPAddr,
				Handler:           server.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", httpServer.Addr).Str("version", VERSION).Msg("Starting HTTP server")
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return errors.Wrap(err, "http server failed")
				}
				return nil
			case <-ctx.Done():
			}

			log.Info().Msg("Shutting down HTTP server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	}
}
