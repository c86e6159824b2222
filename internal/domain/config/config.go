package config

import (
	"context"
	"fmt"
	"strings"
)

// Repository 配置倉庫接口
type Repository interface {
	// Load 加載配置
	Load(ctx context.Context) (*Config, error)

	// Save 保存配置
	Save(ctx context.Context, cfg *Config) error
}

// 更新策略標識
const (
	StrategyGit      = "git"
	StrategyArtifact = "artifact"
)

// 重啟策略標識
const (
	RestartSystemd  = "systemd"
	RestartSelfExit = "exit"
)

// Config 主配置結構
type Config struct {
	Version int          `yaml:"version"`
	Server  ServerConfig `yaml:"server"`
	Log     LogConfig    `yaml:"log"`
	Update  UpdateConfig `yaml:"update"`
}

// ServerConfig 控制面 HTTP 服務配置
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LogConfig 日誌配置
type LogConfig struct {
	Level      string `yaml:"level"`
	OutputPath string `yaml:"output_path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// UpdateConfig 更新編排配置
type UpdateConfig struct {
	// Repository 為 GitHub 倉庫標識，形如 owner/repo
	Repository string `yaml:"repository"`

	// Enabled 控制定時檢查是否啟用（生產模式默認啟用）
	Enabled bool `yaml:"enabled"`

	// AutoUpdate 啟用後，定時檢查發現新版本會直接進入更新流程
	AutoUpdate bool `yaml:"auto_update"`

	// CheckIntervalMinutes 定時檢查間隔（分鐘）
	CheckIntervalMinutes int `yaml:"check_interval_minutes"`

	// Strategy 部署模型：git（拉取重建）或 artifact（下載覆蓋）
	Strategy string `yaml:"strategy"`

	// Restart 重啟策略：systemd（委託管理器）或 exit（自退出交給外部守護）
	Restart string `yaml:"restart"`

	// ServiceName 受管應用的 systemd 單元名
	ServiceName string `yaml:"service_name"`

	// ProbeURL 連通性探測地址
	ProbeURL string `yaml:"probe_url"`

	// ProbeTimeoutSeconds 探測硬超時（秒）
	ProbeTimeoutSeconds int `yaml:"probe_timeout_seconds"`

	// StepTimeoutMinutes 單個外部步驟（pull/install/build/下載）超時（分鐘）
	StepTimeoutMinutes int `yaml:"step_timeout_minutes"`

	// ExitGraceSeconds 自退出前的緩衝延遲（秒），讓在途響應沖刷完
	ExitGraceSeconds int `yaml:"exit_grace_seconds"`
}

// DefaultConfig 返回默認配置
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 9720,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		},
		Update: UpdateConfig{
			Repository:           "yat-muk/orbis-ship",
			Enabled:              true,
			AutoUpdate:           false,
			CheckIntervalMinutes: 30,
			Strategy:             StrategyGit,
			Restart:              RestartSystemd,
			ServiceName:          "orbis-ship",
			ProbeURL:             "https://api.github.com",
			ProbeTimeoutSeconds:  5,
			StepTimeoutMinutes:   10,
			ExitGraceSeconds:     3,
		},
	}
}

// Validate 校驗配置
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("無效的監聽端口: %d", c.Server.Port)
	}
	if !strings.Contains(c.Update.Repository, "/") {
		return fmt.Errorf("倉庫標識應為 owner/repo 格式: %q", c.Update.Repository)
	}
	if c.Update.CheckIntervalMinutes < 1 {
		return fmt.Errorf("檢查間隔至少 1 分鐘: %d", c.Update.CheckIntervalMinutes)
	}
	switch c.Update.Strategy {
	case StrategyGit, StrategyArtifact:
	default:
		return fmt.Errorf("未知的更新策略: %q", c.Update.Strategy)
	}
	switch c.Update.Restart {
	case RestartSystemd, RestartSelfExit:
	default:
		return fmt.Errorf("未知的重啟策略: %q", c.Update.Restart)
	}
	return nil
}

// DeepCopy 深拷貝配置，防止外部修改污染緩存
func (c *Config) DeepCopy() *Config {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
