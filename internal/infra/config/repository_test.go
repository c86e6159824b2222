package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	domainConfig "github.com/Yat-Muk/orbis-updater/internal/domain/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFileRepository_Load_NonExistent(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nonexistent.yaml")

	repo := NewFileRepository(configPath, zap.NewNop())
	ctx := context.Background()

	// 文件不存在应返回默认配置
	cfg, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, domainConfig.StrategyGit, cfg.Update.Strategy)
}

func TestFileRepository_SaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	repo := NewFileRepository(configPath, zap.NewNop())
	ctx := context.Background()

	cfg := domainConfig.DefaultConfig()
	cfg.Update.Repository = "acme/ship"
	cfg.Update.AutoUpdate = true
	cfg.Server.Port = 9800

	err := repo.Save(ctx, cfg)
	require.NoError(t, err)

	assert.FileExists(t, configPath)

	// 验证文件权限
	info, _ := os.Stat(configPath)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loadedCfg, err := repo.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, "acme/ship", loadedCfg.Update.Repository)
	assert.True(t, loadedCfg.Update.AutoUpdate)
	assert.Equal(t, 9800, loadedCfg.Server.Port)
}

func TestFileRepository_Save_Invalid(t *testing.T) {
	tmpDir := t.TempDir()
	repo := NewFileRepository(filepath.Join(tmpDir, "config.yaml"), zap.NewNop())

	cfg := domainConfig.DefaultConfig()
	cfg.Update.Strategy = "rsync"

	assert.Error(t, repo.Save(context.Background(), cfg))
	assert.Error(t, repo.Save(context.Background(), nil))
}

func TestFileRepository_EnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	repo := NewFileRepository(configPath, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, domainConfig.DefaultConfig()))

	t.Setenv("ORBIS_REPOSITORY", "acme/other")
	t.Setenv("ORBIS_CHECK_INTERVAL", "5")
	t.Setenv("ORBIS_AUTO_UPDATE", "true")

	cfg, err := repo.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, "acme/other", cfg.Update.Repository)
	assert.Equal(t, 5, cfg.Update.CheckIntervalMinutes)
	assert.True(t, cfg.Update.AutoUpdate)
}

func TestFileRepository_CacheIsolation(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	repo := NewFileRepository(configPath, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, domainConfig.DefaultConfig()))

	cfg1, err := repo.Load(ctx)
	require.NoError(t, err)

	// 修改返回值不得影響後續加載
	cfg1.Update.Repository = "hacked/repo"

	cfg2, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, "hacked/repo", cfg2.Update.Repository)
}
