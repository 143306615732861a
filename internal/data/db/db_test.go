package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/avatar-interview-backend/internal/platform/logger"
)

func TestOpenDisabledWithoutDriver(t *testing.T) {
	db, err := Open(logger.NewNop(), Config{})
	require.NoError(t, err)
	assert.Nil(t, db)
	require.NoError(t, AutoMigrateAll(nil))
}

func TestOpenRejectsBadConfig(t *testing.T) {
	_, err := Open(logger.NewNop(), Config{Driver: "mysql", DSN: "x"})
	assert.Error(t, err)
	_, err = Open(logger.NewNop(), Config{Driver: "postgres"})
	assert.Error(t, err)
}

func TestOpenSQLiteAndMigrate(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "archive.db")
	db, err := Open(logger.NewNop(), Config{Driver: "sqlite", DSN: dsn, Silent: true})
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	require.NoError(t, AutoMigrateAll(db))
	require.NoError(t, EnsureReportIndexes(db))
	assert.True(t, db.Migrator().HasTable("interview_report"))
}
