package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/meshlink/internal/connection"
	"github.com/rickgao/meshlink/internal/nodes"
	"github.com/rickgao/meshlink/internal/notify"
	"github.com/rickgao/meshlink/internal/session"
	"github.com/rickgao/meshlink/internal/status"
	"github.com/rickgao/meshlink/internal/version"
)

var quiet bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect and keep the session alive until interrupted",
	RunE:  runClient,
}

func init() {
	runCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print notifications to the terminal")
}

func runClient(cmd *cobra.Command, _ []string) error {
	cfg, logger, closer, err := loadConfig()
	if err != nil {
		return err
	}
	defer closer.Close()

	logger.Info("starting meshlink",
		"version", version.Version,
		"commit", version.Commit,
		"config", configPath,
		"url", cfg.Client.URL,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}
	defer store.Close()

	identity := session.NewIdentity(store, cfg.Session.Key, logger)
	if err := identity.Load(ctx); err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	logger.Info("session loaded", "present", identity.Current() != "")

	var notifier connection.Notifier = notify.NewLog(logger)
	if !quiet {
		notifier = notify.Multi{notifier, notify.NewTerminal(os.Stdout)}
	}

	mgrCfg, err := managerConfig(cfg.Client)
	if err != nil {
		return err
	}

	cache := nodes.NewCache(logger)
	var mgr *connection.Manager
	renderer := connection.RenderFunc(func() {
		logger.Debug("render",
			"state", mgr.State().String(),
			"logged_in", cache.LoggedIn(),
			"nodes", len(cache.IDs()),
		)
	})

	mgr = connection.NewManager(mgrCfg, connection.Deps{
		Identity: identity,
		Notifier: notifier,
		Renderer: renderer,
	}, logger.With("component", "manager"))
	nodes.Register(mgr, cache, notifier, renderer)

	var srv *status.Server
	if !cfg.Status.Disabled {
		srv = status.New(status.Config{
			Addr:        cfg.Status.Addr,
			MetricsPath: cfg.Status.MetricsPath,
		}, mgr, logger)
		if err := srv.Start(); err != nil {
			return fmt.Errorf("start status server: %w", err)
		}
	}

	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("start manager: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if srv != nil {
			if err := srv.Stop(shutdownCtx); err != nil {
				logger.Warn("status server shutdown", "error", err)
			}
		}
		return mgr.Stop(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("meshlink stopped", "stats", fmt.Sprintf("%+v", mgr.Stats()))
	return err
}
