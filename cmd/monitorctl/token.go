package main

import (
	"fmt"
	"time"

	"github.com/omid3098/conduit-monitor/internal/auth"
	"github.com/omid3098/conduit-monitor/internal/config"
	"github.com/spf13/cobra"
)

func tokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "token",
		Short:        "Issue an API bearer token signed with JWT_SECRET",
		RunE:         runToken,
		SilenceUsage: true,
	}

	cmd.Flags().String("subject", "dashboard", "Subject recorded in the token")
	cmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is not configured; the API does not require tokens")
	}

	subject, _ := cmd.Flags().GetString("subject")
	ttl, _ := cmd.Flags().GetDuration("ttl")
	if ttl <= 0 {
		return fmt.Errorf("--ttl must be positive")
	}

	token, err := auth.NewAuthenticator(cfg.JWTSecret).GenerateToken(subject, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
