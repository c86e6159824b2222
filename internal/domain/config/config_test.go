package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, StrategyGit, cfg.Update.Strategy)
	assert.Equal(t, RestartSystemd, cfg.Update.Restart)
	assert.Equal(t, 30, cfg.Update.CheckIntervalMinutes)
}

func TestValidate(t *testing.T) {
	t.Run("無效端口", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Server.Port = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("倉庫格式", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Update.Repository = "orbis-ship"
		assert.Error(t, cfg.Validate())
	})

	t.Run("未知策略", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Update.Strategy = "rsync"
		assert.Error(t, cfg.Validate())
	})

	t.Run("未知重啟策略", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Update.Restart = "reboot"
		assert.Error(t, cfg.Validate())
	})

	t.Run("檢查間隔下限", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Update.CheckIntervalMinutes = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestDeepCopy(t *testing.T) {
	cfg := DefaultConfig()
	cp := cfg.DeepCopy()

	cp.Update.Repository = "other/repo"
	assert.NotEqual(t, cfg.Update.Repository, cp.Update.Repository)

	var nilCfg *Config
	assert.Nil(t, nilCfg.DeepCopy())
}
