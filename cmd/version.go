package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/avatar-interview-backend/internal/platform/envutil"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), envutil.String("APP_VERSION", "dev"))
			return err
		},
	}
}
