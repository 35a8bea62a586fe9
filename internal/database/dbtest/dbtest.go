// Package dbtest provides an in-memory store for tests.
package dbtest

import (
	"testing"

	"github.com/RainbowRain9/auto-prompt-sub002/internal/database"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Setup opens a private in-memory SQLite store, migrates it and installs it as database.DB.
func Setup(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.OpenSQLite("file::memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	database.DB = db
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
