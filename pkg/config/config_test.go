package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "REPLACE", cfg.Availability.DefaultMergePolicy)
	assert.True(t, cfg.Availability.LockEnabled)
	assert.Equal(t, 5*time.Minute, cfg.Availability.CacheTTL)
	assert.Equal(t, 1000, cfg.BulkImport.MaxItems)
}

func TestLoadFromEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("AVAILABILITY_SLOT_TYPES", "WORK, VACATION ,")
	t.Setenv("AVAILABILITY_CACHE_TTL", "not-a-duration")
	t.Setenv("BULK_IMPORT_MAX_ITEMS", "50")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"WORK", "VACATION"}, cfg.Availability.SlotTypes)
	assert.Equal(t, 5*time.Minute, cfg.Availability.CacheTTL)
	assert.Equal(t, 50, cfg.BulkImport.MaxItems)
}

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
