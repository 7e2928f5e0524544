package main

import (
	"fmt"
	"time"

	"github.com/omid3098/conduit-monitor/internal/config"
	"github.com/omid3098/conduit-monitor/internal/database"
	"github.com/omid3098/conduit-monitor/internal/services"
	"github.com/spf13/cobra"
)

func pruneCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete metrics history older than the retention window",
		Long: `Delete metrics history older than the retention window. Without
--older-than the configured METRICS_RETENTION_HOURS is used.`,
		RunE:         runPrune,
		SilenceUsage: true,
	}

	cmd.Flags().Duration("older-than", 0, "Remove snapshots older than this (whole hours, e.g. 168h)")
	return cmd
}

func runPrune(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	hours := cfg.RetentionHours
	if olderThan, _ := cmd.Flags().GetDuration("older-than"); olderThan != 0 {
		if olderThan < time.Hour {
			return fmt.Errorf("--older-than must be at least 1h")
		}
		hours = int(olderThan / time.Hour)
	}

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		return err
	}

	removed, err := services.NewMetricsService(db, cfg.HistoryMaxPoints).Prune(hours)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d snapshot(s) older than %dh.\n", removed, hours)
	return nil
}
