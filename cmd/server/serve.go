package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"activity-notes/internal/auth"
	"activity-notes/internal/cache"
	"activity-notes/internal/classify"
	"activity-notes/internal/dashboard"
	"activity-notes/internal/handlers"
	"activity-notes/internal/prefs"
	"activity-notes/internal/pubsub"
	"activity-notes/internal/ssr"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, log := bootstrap()
		defer log.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.GeneratedSecret {
			log.Warn("Generated a random JWT secret; sessions will not survive a restart (set JWT_SECRET to persist)")
		}

		database, err := openDB(ctx, cfg, log)
		if err != nil {
			log.Fatal("Failed to initialize database", "error", err)
		}
		defer database.Close()

		views := cache.New(cfg.CacheSize, cfg.CacheTTL)
		invalidators := dashboard.Invalidators{views}

		if cfg.RedisAddr != "" {
			bus, err := pubsub.New(ctx, cfg.RedisAddr, cfg.RedisChannel, log)
			if err != nil {
				log.Fatal("Failed to connect to redis", "error", err)
			}
			defer bus.Close()
			if err := bus.StartForwarder(ctx, views.Invalidate); err != nil {
				log.Fatal("Failed to subscribe to stale events", "error", err)
			}
			invalidators = append(invalidators, bus)
		}

		svc := dashboard.New(
			database,
			classify.Heuristic{Delay: cfg.GenerateDelay},
			prefs.NewAllowList(cfg.Categories),
			invalidators,
			log,
		)

		pages, err := ssr.New(cfg.Categories)
		if err != nil {
			log.Fatal("Failed to parse templates", "error", err)
		}

		a := auth.New(database, cfg.JWTSecret, log)
		h := handlers.New(svc, views, a, pages, log)

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           h.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			log.Info("Starting Activity Notes server", "addr", srv.Addr, "base_url", cfg.BaseURL)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			log.Info("Shutting down")
			return srv.Shutdown(shutdownCtx)
		})

		if err := g.Wait(); err != nil {
			log.Fatal("Server failed", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
