package appctx

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths 定義應用程序所有的關鍵路徑
type Paths struct {
	BaseDir     string
	DataDir     string
	LogDir      string
	DownloadDir string

	// AppDir 為受管的 Orbis Ship 安裝目錄，更新流程在此目錄內就地變更
	AppDir string

	ConfigFile string
	// PackageFile 為本地版本元數據（package.json）
	PackageFile string
}

func NewPaths(baseDir, appDir string) (*Paths, error) {
	if baseDir == "" {
		if IsProduction() {
			baseDir = "/etc/orbis-updater"
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("無法獲取用戶主目錄: %w", err)
			}
			baseDir = filepath.Join(home, ".orbis-updater")
		}
	}

	absPath, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("無法解析絕對路徑: %w", err)
	}

	dataDir := filepath.Join(absPath, "data")
	downloadDir := filepath.Join(absPath, "downloads")
	configFile := filepath.Join(absPath, "config.yaml")

	// 日誌目錄邏輯
	logDir := filepath.Join(absPath, "logs")
	if IsProduction() {
		logDir = "/var/log/orbis-updater"
	}

	// 受管應用目錄
	if appDir == "" {
		appDir = "/opt/orbis-ship"
		if !IsProduction() {
			appDir = filepath.Join(absPath, "app")
		}
	}
	appDir, err = filepath.Abs(appDir)
	if err != nil {
		return nil, fmt.Errorf("無法解析應用目錄: %w", err)
	}

	paths := &Paths{
		BaseDir:     absPath,
		DataDir:     dataDir,
		LogDir:      logDir,
		DownloadDir: downloadDir,
		AppDir:      appDir,
		ConfigFile:  configFile,
		PackageFile: filepath.Join(appDir, "package.json"),
	}

	// 確保目錄存在
	dirs := []string{
		paths.BaseDir,
		paths.DataDir,
		paths.LogDir,
		paths.DownloadDir,
	}

	for _, dir := range dirs {
		perm := os.FileMode(0700)
		if dir == paths.LogDir {
			perm = 0755
		}
		if err := os.MkdirAll(dir, perm); err != nil {
			return nil, fmt.Errorf("無法創建目錄 %s: %w", dir, err)
		}
	}

	return paths, nil
}

// IsProduction 以 euid 或 ORBIS_ENV 判定運行模式
func IsProduction() bool {
	return os.Geteuid() == 0 || os.Getenv("ORBIS_ENV") == "production"
}
