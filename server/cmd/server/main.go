package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/monstersync/monstersync/server/internal/api"
	"github.com/monstersync/monstersync/server/internal/auth"
	"github.com/monstersync/monstersync/server/internal/config"
	"github.com/monstersync/monstersync/server/internal/receiver"
	"github.com/monstersync/monstersync/server/internal/sink"
	"github.com/monstersync/monstersync/server/internal/store"
	"github.com/monstersync/monstersync/server/internal/ws"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:          "monstersync-server",
		Short:        "Receive monster pushes and serve live session state",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "path to config file")
	return cmd
}

func run(parent context.Context, configPath string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("monstersync-server starting", "config", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		return err
	}

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"session_ttl", cfg.Server.Session.TTL,
		"validation", cfg.Server.Validation.Enabled,
		"kafka", cfg.Server.Kafka.Enabled(),
	)

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Session store with background TTL eviction.
	st := store.New(cfg.Server.Session.TTL, cfg.Server.Session.MaxMonsters)
	go st.Run(ctx)

	hub := ws.New(st, cfg.Server.Stream.Interval)
	go hub.Run(ctx)

	pub := sink.New(cfg.Server.Kafka)
	defer pub.Close() //nolint:errcheck

	rc, err := receiver.New(st, hub, pub, cfg.Server.Validation.Enabled)
	if err != nil {
		return err
	}

	r := mux.NewRouter()
	rc.Register(r, auth.APIKey(
		cfg.Server.Auth.Mode,
		cfg.Server.Auth.EffectiveHeader(),
		cfg.Server.Auth.Key(),
	))
	api.New(st).Register(r)
	r.Handle("/ws/sessions/{session}", hub).Methods(http.MethodGet)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("monstersync-server shutting down")
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
	rc.Wait()
	return nil
}
