// File: cmd/serve.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/birdclip/internal/browser"
	"github.com/xkilldash9x/birdclip/internal/config"
	"github.com/xkilldash9x/birdclip/internal/envcache"
	"github.com/xkilldash9x/birdclip/internal/media"
	"github.com/xkilldash9x/birdclip/internal/observability"
	"github.com/xkilldash9x/birdclip/internal/protocol"
	"github.com/xkilldash9x/birdclip/internal/scrape"
	"github.com/xkilldash9x/birdclip/internal/store"
)

func newServeCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local session daemon the UI connects to.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cfg)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger := observability.GetLogger()

	probe, err := browser.NewProbe(ctx, cfg.Browser, logger)
	if err != nil {
		return err
	}
	defer probe.Close()

	kv, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer kv.Close()

	cleared, err := store.EnsureVersion(ctx, kv, Version)
	if err != nil {
		return fmt.Errorf("checking store version: %w", err)
	}
	if cleared {
		logger.Info("Cleared cached environments after version change.", zap.String("version", Version))
	}

	scraper := scrape.NewScraper(probe, cfg.Network, logger)
	deps := protocol.Deps{
		Cache:   envcache.New(kv, scraper, logger),
		Scraper: scraper,
		Probe:   probe,
		Query:   media.NewQuery(cfg.Network, logger),
		Logger:  logger,
	}

	mux := http.NewServeMux()
	mux.Handle("/session", protocol.NewServer(deps))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Session daemon listening.", zap.String("addr", addr))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("Shutting down session daemon.")
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
