package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestKitchenConfigDefaultsWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(wd) }()

	holder, err := NewKitchenConfigHolder(Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, DefaultKitchenConfig(), holder.Get())
}

func TestKitchenConfigReadsExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kitchen.yml")
	content := []byte("kitchen:\n  sweepInterval: 5s\n  sweepTimeout: 2s\n  defaultPrepTime: 8\n  defaultAlertThreshold: 12\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	holder, err := NewKitchenConfigHolder(Config{KitchenConfigPath: path}, zap.NewNop())
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, 5*time.Second, cfg.SweepInterval)
	assert.Equal(t, 2*time.Second, cfg.SweepTimeout)
	assert.Equal(t, 8, cfg.DefaultPrepTime)
	assert.Equal(t, 12, cfg.DefaultAlertThreshold)
}

func TestKitchenConfigRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kitchen.yml")
	content := []byte("kitchen:\n  sweepInterval: 0s\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	_, err := NewKitchenConfigHolder(Config{KitchenConfigPath: path}, zap.NewNop())
	assert.Error(t, err)
}

func TestKitchenConfigHolderNilFallsBackToDefaults(t *testing.T) {
	var holder *KitchenConfigHolder
	assert.Equal(t, DefaultKitchenConfig(), holder.Get())
}
