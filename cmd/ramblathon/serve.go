package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/astromechza/ramblathon/pkg/catalog"
	"github.com/astromechza/ramblathon/pkg/config"
	"github.com/astromechza/ramblathon/pkg/deltabuf"
	"github.com/astromechza/ramblathon/pkg/docstore"
	"github.com/astromechza/ramblathon/pkg/gate"
	"github.com/astromechza/ramblathon/pkg/logging"
	"github.com/astromechza/ramblathon/pkg/notify"
	"github.com/astromechza/ramblathon/pkg/scheduler"
	"github.com/astromechza/ramblathon/pkg/server"
	"github.com/astromechza/ramblathon/pkg/session"
	"github.com/astromechza/ramblathon/pkg/supervisor"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the server",
	Long: `Run the websocket server together with the flush and backup tasks.
Any i/o failure on the document or its backups stops the process with a
non-zero exit code.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, afero.NewOsFs(), logger)
}

// serve runs until ctx is done (nil) or something fatal happens (the error).
func serve(ctx context.Context, cfg *config.Config, fs afero.Fs, logger *slog.Logger) error {
	store := docstore.New(fs, cfg.Storage.BufferFile, cfg.Storage.BackupDir)
	if err := store.Ensure(); err != nil {
		return err
	}

	buf := deltabuf.New()
	g := new(gate.Gate)
	sup := supervisor.New(logger)

	flusher := &scheduler.Flusher{Buffer: buf, Store: store, Logger: logger.With("task", "flush")}
	if cfg.Notify.RedisAddr != "" {
		n, rdb, err := notify.Dial(ctx, cfg.Notify.RedisAddr, cfg.Notify.Channel)
		if err != nil {
			return err
		}
		defer rdb.Close()
		flusher.Notifier = n
		logger.Info("publishing flushes to redis", "addr", cfg.Notify.RedisAddr, "channel", cfg.Notify.Channel)
	}

	backup := &scheduler.Backup{Store: store, Logger: logger.With("task", "backup")}
	if cfg.Backup.CatalogPath != "" {
		cat, err := catalog.Open(cfg.Backup.CatalogPath)
		if err != nil {
			return err
		}
		defer cat.Close()
		backup.Recorder = cat
		logger.Info("recording backups", "catalog", cfg.Backup.CatalogPath)
	}

	sessions := &session.Handler{
		Gate:       g,
		Buffer:     buf,
		Store:      store,
		Logger:     logger,
		StickyGate: cfg.Session.StickyGate,
		Fatal:      sup.Fail,
	}
	srv := server.New(cfg.Server.Addr, sessions, g, buf, logger)

	return sup.Run(ctx,
		supervisor.Task{Name: "http", Run: srv.Serve},
		supervisor.Task{Name: "flush", Run: func(ctx context.Context) error {
			return flusher.Run(ctx, cfg.Flush.Interval)
		}},
		supervisor.Task{Name: "backup", Run: func(ctx context.Context) error {
			return backup.Run(ctx, cfg.Backup.Interval)
		}},
	)
}
