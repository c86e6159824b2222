package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	domainConfig "github.com/Yat-Muk/orbis-updater/internal/domain/config"
)

// FileRepository 基於文件的配置倉庫實現
type FileRepository struct {
	filePath     string
	mu           sync.RWMutex
	fileMu       sync.Mutex // 用於文件 I/O 的互斥鎖
	logger       *zap.Logger
	cachedConfig *domainConfig.Config
	lastModTime  time.Time
}

func NewFileRepository(path string, logger *zap.Logger) *FileRepository {
	return &FileRepository{
		filePath: path,
		logger:   logger,
	}
}

// Load 加載配置（支持緩存與熱重載，環境變量覆蓋在最後生效）
func (r *FileRepository) Load(ctx context.Context) (*domainConfig.Config, error) {
	// 快速路徑：嘗試讀取緩存
	r.mu.RLock()
	stat, err := os.Stat(r.filePath)

	// 文件不存在 -> 返回默認配置，便於首次啟動
	if os.IsNotExist(err) {
		r.mu.RUnlock()
		r.logger.Info("配置文件不存在，初始化默認配置")
		return applyEnv(domainConfig.DefaultConfig()), nil
	}
	if err != nil {
		r.mu.RUnlock()
		return nil, fmt.Errorf("檢查配置文件狀態失敗: %w", err)
	}

	// 緩存命中：緩存存在且文件修改時間未變
	if r.cachedConfig != nil && !stat.ModTime().After(r.lastModTime) {
		// 必須返回深拷貝，避免外部修改污染緩存
		cfg := r.cachedConfig.DeepCopy()
		r.mu.RUnlock()
		return applyEnv(cfg), nil
	}
	r.mu.RUnlock()

	// 慢速路徑：從磁盤重新加載
	r.mu.Lock()
	defer r.mu.Unlock()

	// 雙重檢查，避免鎖切換空檔期的重複 I/O
	stat, err = os.Stat(r.filePath)
	if os.IsNotExist(err) {
		return applyEnv(domainConfig.DefaultConfig()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("檢查配置文件狀態失敗: %w", err)
	}
	if r.cachedConfig != nil && !stat.ModTime().After(r.lastModTime) {
		return applyEnv(r.cachedConfig.DeepCopy()), nil
	}

	r.fileMu.Lock()
	content, err := os.ReadFile(r.filePath)
	r.fileMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("讀取配置文件失敗: %w", err)
	}

	cfg := &domainConfig.Config{}
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件格式失敗: %w", err)
	}

	r.cachedConfig = cfg.DeepCopy()
	r.lastModTime = stat.ModTime()

	r.logger.Info("配置文件已從磁盤重新加載",
		zap.String("path", r.filePath),
		zap.Time("mod_time", r.lastModTime),
	)

	return applyEnv(cfg), nil
}

// Save 保存配置到文件（原子寫入）
func (r *FileRepository) Save(ctx context.Context, cfg *domainConfig.Config) error {
	if cfg == nil {
		return fmt.Errorf("配置對象為空")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("配置校驗失敗: %w", err)
	}

	r.fileMu.Lock()
	defer r.fileMu.Unlock()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("序列化配置失敗: %w", err)
	}

	// 原子寫入：臨時文件 -> Sync -> Rename
	dir := filepath.Dir(r.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("創建配置目錄失敗: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "config.*.yaml.tmp")
	if err != nil {
		return fmt.Errorf("創建臨時文件失敗: %w", err)
	}
	tmpName := tmpFile.Name()

	writeSuccess := false
	defer func() {
		if !writeSuccess {
			tmpFile.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("寫入數據失敗: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("同步磁盤失敗: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("關閉臨時文件失敗: %w", err)
	}
	if err := os.Rename(tmpName, r.filePath); err != nil {
		return fmt.Errorf("替換配置文件失敗: %w", err)
	}
	if err := os.Chmod(r.filePath, 0600); err != nil {
		r.logger.Warn("設置文件權限失敗", zap.Error(err))
	}

	writeSuccess = true

	r.mu.Lock()
	r.cachedConfig = cfg.DeepCopy()
	if stat, err := os.Stat(r.filePath); err == nil {
		r.lastModTime = stat.ModTime()
	}
	r.mu.Unlock()

	return nil
}

// applyEnv 環境變量覆蓋，優先級高於文件內容
//
//	ORBIS_REPOSITORY            倉庫標識 owner/repo
//	ORBIS_CHECK_INTERVAL        檢查間隔（分鐘）
//	ORBIS_AUTO_UPDATE           true/false
//	ORBIS_UPDATE_ENABLED        true/false
//	ORBIS_UPDATE_STRATEGY       git/artifact
func applyEnv(cfg *domainConfig.Config) *domainConfig.Config {
	if v := os.Getenv("ORBIS_REPOSITORY"); v != "" {
		cfg.Update.Repository = v
	}
	if v := os.Getenv("ORBIS_CHECK_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Update.CheckIntervalMinutes = n
		}
	}
	if v := os.Getenv("ORBIS_AUTO_UPDATE"); v != "" {
		cfg.Update.AutoUpdate = v == "true" || v == "1"
	}
	if v := os.Getenv("ORBIS_UPDATE_ENABLED"); v != "" {
		cfg.Update.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("ORBIS_UPDATE_STRATEGY"); v != "" {
		cfg.Update.Strategy = v
	}
	return cfg
}
