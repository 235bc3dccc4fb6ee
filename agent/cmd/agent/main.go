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

	"github.com/spf13/cobra"

	"github.com/monstersync/monstersync/agent/internal/config"
	"github.com/monstersync/monstersync/agent/internal/game"
	"github.com/monstersync/monstersync/agent/internal/push"
	"github.com/monstersync/monstersync/agent/internal/security"
	"github.com/monstersync/monstersync/agent/internal/shipper"
	"github.com/monstersync/monstersync/agent/internal/telemetry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:           "monstersync-agent",
		Short:         "Push changed monster state to a monstersync session server",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "path to config file")
	return cmd
}

func run(parent context.Context, configPath string) error {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("monstersync-agent starting", "config", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		return err
	}
	level.Set(cfg.Agent.Level())
	slog.Info("config loaded",
		"server_endpoint", cfg.Agent.ServerEndpoint,
		"push_enabled", cfg.Agent.Push.Enabled,
		"throttle_interval", cfg.Agent.Push.ThrottleInterval,
		"replay", cfg.Agent.Replay.Path,
	)

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cs := security.Check(ctx, cfg.Agent.ServerEndpoint); cs != nil {
		if cs.Status == security.StatusValid {
			slog.Info("server certificate ok", "days_left", cs.DaysLeft, "issuer", cs.Issuer)
		} else {
			slog.Warn("server certificate problem",
				"status", cs.Status, "days_left", cs.DaysLeft, "not_after", cs.NotAfter)
		}
	}

	sh, err := shipper.New(cfg.Agent)
	if err != nil {
		slog.Error("failed to build shipper", "err", err)
		return err
	}

	svc := push.New(sh, pushOptions(cfg.Agent.Push))
	svc.SetSessionID(cfg.Agent.Session())
	svc.SetState(cfg.Agent.Push.Enabled)
	defer svc.SetState(false)

	if cfg.Agent.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", telemetry.Handler(svc))
		srv := &http.Server{Addr: cfg.Agent.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			slog.Info("metrics listening", "addr", cfg.Agent.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server stopped", "err", err)
			}
		}()
		defer srv.Shutdown(context.Background()) //nolint:errcheck
	}

	// Session ID, push toggle and log level follow the config file; timing
	// changes need a restart.
	go func() {
		if err := config.Watch(ctx, configPath, func(updated *config.Config) {
			level.Set(updated.Agent.Level())
			if session := updated.Agent.Session(); session != svc.SessionID() {
				svc.SetSessionID(session)
				slog.Info("session changed", "session_set", session != "")
			}
			svc.SetState(updated.Agent.Push.Enabled)
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	if cfg.Agent.Replay.Path != "" {
		ticks, err := game.LoadTicks(cfg.Agent.Replay.Path)
		if err != nil {
			return fmt.Errorf("load replay: %w", err)
		}
		slog.Info("replaying recording", "path", cfg.Agent.Replay.Path, "ticks", len(ticks))
		go game.NewReplay(ticks, cfg.Agent.Replay.Interval, cfg.Agent.Replay.Loop, svc).Run(ctx)
	} else {
		slog.Warn("no replay configured — agent will idle until a producer pushes")
	}

	<-ctx.Done()
	slog.Info("monstersync-agent shutting down", "stats", fmt.Sprintf("%+v", svc.Stats()))
	return nil
}

func pushOptions(p config.PushConfig) push.Options {
	return push.Options{
		IdleInterval:     p.IdleInterval,
		ThrottleInterval: p.ThrottleInterval,
		BackoffInterval:  p.BackoffInterval,
		RetryCeiling:     p.RetryCeiling,
		SendTimeout:      p.SendTimeout,
	}
}
