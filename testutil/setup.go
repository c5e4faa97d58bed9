package testutil

import (
	"testing"

	"github.com/lonely-fr/perofish-server/cache"
	"github.com/lonely-fr/perofish-server/cache/local"
	"github.com/lonely-fr/perofish-server/db/sqlite"
	"github.com/lonely-fr/perofish-server/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// SetupTestDB creates an in-memory SQLite DB and runs AutoMigrate.
// It requires no external services and is safe to use in parallel tests.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err, "SetupTestDB: Open")
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	return db
}

// SetupTestCache creates a LocalCache (no Redis required).
func SetupTestCache(t *testing.T) cache.Cache {
	t.Helper()
	c, err := local.NewCache(local.Config{})
	require.NoError(t, err, "SetupTestCache: NewCache")
	return c
}
