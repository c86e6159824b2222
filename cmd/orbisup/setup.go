package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Yat-Muk/orbis-updater/internal/application"
	domainConfig "github.com/Yat-Muk/orbis-updater/internal/domain/config"
	"github.com/Yat-Muk/orbis-updater/internal/domain/update"
	infraConfig "github.com/Yat-Muk/orbis-updater/internal/infra/config"
	"github.com/Yat-Muk/orbis-updater/internal/infra/deploy"
	"github.com/Yat-Muk/orbis-updater/internal/infra/netprobe"
	"github.com/Yat-Muk/orbis-updater/internal/infra/release"
	"github.com/Yat-Muk/orbis-updater/internal/infra/restart"
	"github.com/Yat-Muk/orbis-updater/internal/infra/snapshot"
	"github.com/Yat-Muk/orbis-updater/internal/infra/system"
	"github.com/Yat-Muk/orbis-updater/internal/pkg/appctx"
	"github.com/Yat-Muk/orbis-updater/internal/server"
)

// AppDependencies 集中管理應用級依賴，啟動時一次性裝配
type AppDependencies struct {
	Log          *zap.Logger
	Paths        *appctx.Paths
	Config       *domainConfig.Config
	Orchestrator *application.Orchestrator
	Server       *server.Server

	systemd system.SystemdManager
}

// Close 釋放持有的外部連接
func (d *AppDependencies) Close() {
	if d.systemd != nil {
		d.systemd.Close()
	}
}

// initializeDependencies 按依賴順序裝配所有組件：
// 配置 -> 版本源 -> 連通性探測 -> 部署策略 -> 重啟策略 -> 編排器 -> 控制面
func initializeDependencies(log *zap.Logger, paths *appctx.Paths) (*AppDependencies, error) {
	repo := infraConfig.NewFileRepository(paths.ConfigFile, log)

	cfg, err := repo.Load(context.Background())
	if err != nil {
		return nil, fmt.Errorf("加載配置失敗: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置校驗失敗: %w", err)
	}

	feed := release.NewFeed(cfg.Update.Repository, paths.PackageFile, log)

	probe := netprobe.New(
		cfg.Update.ProbeURL,
		time.Duration(cfg.Update.ProbeTimeoutSeconds)*time.Second,
		log,
	)

	stepTimeout := time.Duration(cfg.Update.StepTimeoutMinutes) * time.Minute

	var strategy update.Strategy
	switch cfg.Update.Strategy {
	case domainConfig.StrategyArtifact:
		strategy = deploy.NewArtifactStrategy(feed, paths.AppDir, stepTimeout, log)
	default:
		executor := system.NewExecutor(log)
		strategy = deploy.NewGitStrategy(executor, paths.AppDir, stepTimeout, log)
	}

	deps := &AppDependencies{
		Log:    log,
		Paths:  paths,
		Config: cfg,
	}

	grace := time.Duration(cfg.Update.ExitGraceSeconds) * time.Second
	selfExit := restart.NewSelfExitRestarter(grace, os.Exit, log)

	// 自退出策略始終可用；Systemd 不可達時降級而不是啟動失敗
	var restarter update.Restarter = selfExit
	var fallback update.Restarter
	if cfg.Update.Restart == domainConfig.RestartSystemd {
		systemd, err := system.NewSystemdManager(log)
		if err != nil {
			log.Warn("Systemd 不可用，重啟策略降級為自退出", zap.Error(err))
		} else {
			deps.systemd = systemd
			restarter = restart.NewSystemdRestarter(systemd, cfg.Update.ServiceName, log)
			fallback = selfExit
		}
	}

	archiver, err := snapshot.NewManager(
		paths.PackageFile,
		filepath.Join(paths.DataDir, "snapshots"),
		snapshot.RetentionPolicy{MaxFiles: 10, MaxAge: 90 * 24 * time.Hour},
	)
	if err != nil {
		return nil, fmt.Errorf("初始化快照管理器失敗: %w", err)
	}

	orch := application.NewOrchestrator(application.Options{
		Source:     feed,
		Probe:      probe,
		Strategy:   strategy,
		Restarter:  restarter,
		Fallback:   fallback,
		Archiver:   archiver,
		Repository: cfg.Update.Repository,
		Interval:   time.Duration(cfg.Update.CheckIntervalMinutes) * time.Minute,
		AutoUpdate: cfg.Update.AutoUpdate,
		Log:        log,
	})

	deps.Orchestrator = orch
	deps.Server = server.New(orch, log)

	return deps, nil
}
