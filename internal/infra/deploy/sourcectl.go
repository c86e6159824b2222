package deploy

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Yat-Muk/orbis-updater/internal/domain/update"
	"github.com/Yat-Muk/orbis-updater/internal/infra/system"
	"github.com/Yat-Muk/orbis-updater/internal/pkg/errors"
)

// GitStrategy source-control 部署模型：
// git pull -> npm install -> npm run build，每一步帶獨立超時
type GitStrategy struct {
	executor    system.Executor
	appDir      string
	stepTimeout time.Duration
	log         *zap.Logger
}

func NewGitStrategy(executor system.Executor, appDir string, stepTimeout time.Duration, log *zap.Logger) *GitStrategy {
	return &GitStrategy{
		executor:    executor,
		appDir:      appDir,
		stepTimeout: stepTimeout,
		log:         log,
	}
}

func (s *GitStrategy) Name() string { return "git" }

// Apply 推進本地工作副本。pull 無新提交時跳過安裝與構建，
// 保證連續兩次執行第二次無副作用
func (s *GitStrategy) Apply(ctx context.Context, rel *update.Release) (bool, error) {
	s.log.Info("開始源碼模式更新", zap.String("dir", s.appDir))

	// 1. 拉取最新提交
	out, err := s.executor.ExecuteInWithTimeout(ctx, s.stepTimeout, s.appDir,
		"git", "pull", "--ff-only")
	if err != nil {
		return false, errors.Wrap(err, "DEP001", "拉取最新代碼失敗")
	}

	if strings.Contains(out, "Already up to date") {
		s.log.Info("工作副本已是最新，跳過安裝與構建")
		return false, nil
	}

	// 2. 重新安裝依賴
	s.log.Info("正在安裝依賴...")
	if _, err := s.executor.ExecuteInWithTimeout(ctx, s.stepTimeout, s.appDir,
		"npm", "install", "--no-audit", "--no-fund"); err != nil {
		return false, errors.Wrap(err, "DEP002", "安裝依賴失敗")
	}

	// 3. 重新構建
	s.log.Info("正在構建應用...")
	if _, err := s.executor.ExecuteInWithTimeout(ctx, s.stepTimeout, s.appDir,
		"npm", "run", "build"); err != nil {
		return false, errors.Wrap(err, "DEP003", "構建失敗")
	}

	s.log.Info("源碼模式更新完成")
	return true, nil
}
