package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/avatar-interview-backend/internal/app"
	"github.com/yungbote/avatar-interview-backend/internal/platform/shutdown"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "avatar-interview",
		Short:         "Voice interview backend with a talking-head interviewer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
	rootCmd.AddCommand(
		newServeCmd(),
		newReportCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := shutdown.NotifyContext(parent)
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}
	a.Start()

	errCh := make(chan error, 1)
	go func() { errCh <- a.Run() }()

	select {
	case <-ctx.Done():
		a.Log.Info("Shutdown signal received")
		a.Close()
		return <-errCh
	case err := <-errCh:
		a.Close()
		if err != nil {
			return fmt.Errorf("server exited: %w", err)
		}
		return nil
	}
}
