package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/avatar-interview-backend/internal/app"
	"github.com/yungbote/avatar-interview-backend/internal/data/db"
	interviewrepo "github.com/yungbote/avatar-interview-backend/internal/data/repos/interview"
	"github.com/yungbote/avatar-interview-backend/internal/platform/logger"
	"github.com/yungbote/avatar-interview-backend/internal/services"
)

var errArchiveDisabled = errors.New("ARCHIVE_DRIVER is not set")

// newReportCmd prints an archived interview report as JSON.
func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report <session-id>",
		Short: "Print the archived report of a completed interview",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logMode := os.Getenv("LOG_MODE")
			if logMode == "" {
				logMode = "production"
			}
			log, err := logger.New(logMode)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer log.Sync()

			cfg := app.LoadConfig(nil)
			theDB, err := db.Open(log, db.Config{Driver: cfg.ArchiveDriver, DSN: cfg.ArchiveDSN, Silent: true})
			if err != nil {
				return fmt.Errorf("open archive: %w", err)
			}
			if theDB == nil {
				return errArchiveDisabled
			}
			if sqlDB, err := theDB.DB(); err == nil {
				defer sqlDB.Close()
			}

			archive := services.NewReportArchive(log, interviewrepo.NewReportRepo(theDB, log))
			rep, err := archive.Load(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("load report: %w", err)
			}
			if rep == nil {
				return fmt.Errorf("no archived report for session %q", args[0])
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		},
	}
}
