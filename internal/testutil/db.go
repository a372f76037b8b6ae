package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/thetyagiayush/warhol-ringmaster/internal/config"
	"github.com/thetyagiayush/warhol-ringmaster/internal/database"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SetupFilterStore opens a migrated in-memory sqlite filter store that is
// closed when the test ends
func SetupFilterStore(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := &config.FilterStoreConfig{
		Driver: "sqlite",
		Path:   database.MemoryPath,
	}
	db, err := database.NewDatabase(cfg, zap.NewNop())
	require.NoError(t, err, "Failed to open in-memory filter store")

	require.NoError(t, database.Migrate(db, cfg.Driver))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
