// Package dbtest opens throwaway in-memory databases for tests.
package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hookahledger/internal/database"
)

// New returns a migrated, private in-memory sqlite database that is closed
// when the test ends.
func New(t testing.TB) *gorm.DB {
	t.Helper()
	url := "sqlite://file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := database.Open(database.Options{URL: url, LogLevel: logger.Silent})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, database.Migrate(db))
	return db
}
