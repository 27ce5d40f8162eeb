// Package testdb opens throwaway in-memory databases for tests
package testdb

import (
	"pharmacist/internal/config"
	"pharmacist/internal/database"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// New returns a migrated in-memory sqlite database that is also installed as database.DB.
// Every call gets its own database so tests can run in parallel packages.
func New(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Connect(config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		URL:        "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		MaxRetries: 1,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	previous := database.GetDB()
	database.SetDB(db)

	t.Cleanup(func() {
		database.SetDB(previous)
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return db
}
