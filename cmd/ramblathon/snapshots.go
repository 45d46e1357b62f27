package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/astromechza/ramblathon/pkg/catalog"
	"github.com/astromechza/ramblathon/pkg/config"
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List recorded backups",
	Long:  `List the backups recorded in the catalog configured by backup.catalog_path, newest first.`,
	Args:  cobra.NoArgs,
	RunE:  runSnapshots,
}

func init() {
	rootCmd.AddCommand(snapshotsCmd)
}

func runSnapshots(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Backup.CatalogPath == "" {
		return errors.New("backup.catalog_path is not set")
	}

	cat, err := catalog.Open(cfg.Backup.CatalogPath)
	if err != nil {
		return err
	}
	defer cat.Close()

	entries, err := cat.List(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TAKEN\tSIZE\tPATH")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%d\t%s\n", e.TakenAt.Format(time.RFC3339), e.Size, e.Path)
	}
	return w.Flush()
}
