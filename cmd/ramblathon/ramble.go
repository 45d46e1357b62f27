package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/astromechza/ramblathon/pkg/client"
	"github.com/astromechza/ramblathon/pkg/config"
	"github.com/astromechza/ramblathon/pkg/logging"
)

var rambleCmd = &cobra.Command{
	Use:   "ramble",
	Short: "Write to a running server from stdin",
	Long: `Connect as the writing session, print the current document, then send
everything read from stdin in batches. Exits when stdin is closed.`,
	Args: cobra.NoArgs,
	RunE: runRamble,
}

func init() {
	rootCmd.AddCommand(rambleCmd)
	rambleCmd.Flags().Duration("send-interval", client.DefaultSendInterval, "how often to send buffered input")
	rambleCmd.Flags().Duration("reconnect-interval", client.DefaultReconnectInterval, "how often to retry a lost connection")
}

func runRamble(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	r := client.NewRambler(client.URL(cfg.Server.Addr), logger)
	if r.SendInterval, err = cmd.Flags().GetDuration("send-interval"); err != nil {
		return err
	}
	if r.ReconnectInterval, err = cmd.Flags().GetDuration("reconnect-interval"); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	r.OnDocument = func(doc string) {
		_, _ = io.WriteString(out, doc)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		defer cancel()
		if _, err := io.Copy(r, cmd.InOrStdin()); err != nil {
			logger.Error("failed to read input", "err", err)
		}
	}()

	return r.Run(ctx)
}
