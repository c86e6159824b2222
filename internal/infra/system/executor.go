package system

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Yat-Muk/orbis-updater/internal/pkg/errors"
)

// Executor 命令執行器接口
// 更新流程的每一步外部調用（pull/install/build）都經由這裡，
// 輸入為命令、工作目錄與超時，輸出為捕獲的合併輸出與退出錯誤
type Executor interface {
	// Execute 執行命令
	Execute(ctx context.Context, name string, args ...string) (string, error)

	// ExecuteIn 在指定工作目錄中執行命令
	ExecuteIn(ctx context.Context, dir, name string, args ...string) (string, error)

	// ExecuteInWithTimeout 帶超時的目錄內命令執行，超時視為該步驟失敗
	ExecuteInWithTimeout(ctx context.Context, timeout time.Duration, dir, name string, args ...string) (string, error)

	// IsAllowed 檢查命令是否在白名單中
	IsAllowed(name string) bool
}

// SafeExecutor 安全的命令執行器
type SafeExecutor struct {
	allowlist map[string]bool
	logger    *zap.Logger
}

// NewExecutor 創建命令執行器
func NewExecutor(logger *zap.Logger) Executor {
	return &SafeExecutor{
		allowlist: map[string]bool{
			// --- 版本控制與構建 ---
			"git":  true,
			"npm":  true,
			"node": true,
			"npx":  true,

			// --- 進程管理 ---
			"systemctl": true,
			"pm2":       true,

			// --- 其他 ---
			"tar":   true,
			"uname": true,
		},
		logger: logger,
	}
}

// Execute 執行命令
func (e *SafeExecutor) Execute(ctx context.Context, name string, args ...string) (string, error) {
	return e.ExecuteIn(ctx, "", name, args...)
}

// ExecuteIn 在指定工作目錄中執行命令
func (e *SafeExecutor) ExecuteIn(ctx context.Context, dir, name string, args ...string) (string, error) {
	// 檢查命令是否在白名單中
	if !e.IsAllowed(name) {
		return "", errors.New("SYS001", fmt.Sprintf("命令 %q 不在白名單中", name))
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	e.logger.Debug("執行命令",
		zap.String("cmd", name),
		zap.Strings("args", args),
		zap.String("dir", dir),
	)

	// 執行並獲取輸出
	output, err := cmd.CombinedOutput()
	outputStr := strings.TrimSpace(string(output))

	if err != nil {
		e.logger.Error("命令執行失敗",
			zap.String("cmd", name),
			zap.Strings("args", args),
			zap.String("output", outputStr),
			zap.Error(err),
		)
		return outputStr, errors.Wrap(errors.ErrProcessFailed, "SYS002",
			fmt.Sprintf("%s: %v", name, err))
	}

	e.logger.Debug("命令執行成功",
		zap.String("cmd", name),
		zap.String("output", outputStr),
	)

	return outputStr, nil
}

// ExecuteInWithTimeout 帶超時的目錄內命令執行
func (e *SafeExecutor) ExecuteInWithTimeout(ctx context.Context, timeout time.Duration, dir, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return e.ExecuteIn(ctx, dir, name, args...)
}

// IsAllowed 檢查命令是否在白名單中
func (e *SafeExecutor) IsAllowed(name string) bool {
	return e.allowlist[name]
}
