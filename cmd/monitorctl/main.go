package main

import (
	"os"

	"github.com/spf13/cobra"
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitorctl",
		Short: "Administrative tasks for the conduit monitor",
		Long: `monitorctl performs maintenance on a conduit monitor installation. It reads
the same configuration (environment variables and CONFIG_FILE) as the monitor.

Examples:
  monitorctl token --subject dashboard --ttl 720h
  monitorctl prune --older-than 168h`,
	}

	cmd.AddCommand(tokenCommand())
	cmd.AddCommand(pruneCommand())
	return cmd
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
