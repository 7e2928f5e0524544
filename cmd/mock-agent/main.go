package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/omid3098/conduit-monitor/internal/logger"
	"github.com/omid3098/conduit-monitor/internal/mockagent"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func rootCmd() *cobra.Command {
	var (
		opts     mockagent.Options
		port     int
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "mock-agent",
		Short: "Run a stand-in conduit agent for local testing",
		Long: `mock-agent serves /status and /health like a conduit agent. Host figures
come from the machine it runs on; containers and client countries are synthetic.

Register it with the monitor using the printed conduit:// URI.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Init(logLevel)
			return run(cmd, opts, port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 9090, "Port to listen on")
	cmd.Flags().StringVar(&opts.Secret, "secret", "testsecret", "Shared secret expected in X-Conduit-Auth")
	cmd.Flags().StringVar(&opts.ServerID, "server-id", "test-server-01", "Identifier reported in status responses")
	cmd.Flags().IntVar(&opts.Containers, "containers", 3, "Number of synthetic conduit containers")
	cmd.Flags().DurationVar(&opts.Warmup, "warmup", 0, "Answer 503 on /status for this long after start")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level")

	return cmd
}

func run(cmd *cobra.Command, opts mockagent.Options, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %d", port)
	}

	a := mockagent.New(opts, &mockagent.HostSampler{})
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info().Int("port", port).Msg("Mock agent running")
	fmt.Fprintf(cmd.OutOrStdout(), "Add this server: conduit://%s@localhost:%d\n", opts.Secret, port)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
