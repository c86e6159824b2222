package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/Yat-Muk/orbis-updater/internal/pkg/appctx"
	"github.com/Yat-Muk/orbis-updater/internal/pkg/logger"
	"github.com/Yat-Muk/orbis-updater/internal/pkg/version"
	"github.com/Yat-Muk/orbis-updater/internal/tui"
)

func main() {
	// 1. 命令行參數解析
	var (
		workDir   = flag.String("dir", "", "指定工作目錄 (默認: /etc/orbis-updater 或 ~/.orbis-updater)")
		appDir    = flag.String("app", "", "受管的 Orbis Ship 安裝目錄 (默認: /opt/orbis-ship)")
		notify    = flag.Bool("notify", false, "以狀態面板模式連接運行中的守護進程")
		notifyURL = flag.String("url", "http://127.0.0.1:9720", "狀態面板連接的控制面地址")
		showVer   = flag.Bool("version", false, "顯示版本信息")
		debugFlag = flag.Bool("debug", false, "開啟調試模式")
	)
	flag.Parse()

	if *showVer {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// 狀態面板模式不需要本地環境，直接連接控制面
	if *notify {
		runNotifier(*notifyURL)
		return
	}

	// 2. 環境初始化
	paths, err := appctx.NewPaths(*workDir, *appDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "致命錯誤: 無法初始化路徑: %v\n", err)
		os.Exit(1)
	}

	stdErrFile := filepath.Join(paths.LogDir, "stderr.log")
	redirectStdErr(stdErrFile)

	logConfig := logger.DefaultConfig()
	logConfig.OutputPath = filepath.Join(paths.LogDir, "orbisup.log")
	if *debugFlag {
		logConfig.Level = "debug"
	}

	log, err := logger.New(logConfig)
	if err != nil {
		panic(fmt.Sprintf("日誌初始化失敗: %v", err))
	}
	defer log.Sync()

	log.Info("Orbis Updater 正在啟動",
		zap.String("version", version.Version),
		zap.String("commit", version.GitCommit),
		zap.String("app_dir", paths.AppDir),
	)

	// 3. 依賴注入
	deps, err := initializeDependencies(log, paths)
	if err != nil {
		log.Fatal("依賴初始化失敗", zap.Error(err))
	}
	defer deps.Close()

	// 4. 運行守護進程
	if err := runDaemon(log, deps); err != nil {
		log.Fatal("守護進程退出", zap.Error(err))
	}
}

// runDaemon 啟動調度與控制面，阻塞直到收到終止信號
func runDaemon(log *zap.Logger, deps *AppDependencies) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 定時調度只在生產模式武裝（開發環境由操作員經控制面手動觸發），
	// 控制面始終對外提供
	switch {
	case !deps.Config.Update.Enabled:
		log.Info("定時檢查未啟用，僅提供控制面")
	case !appctx.IsProduction():
		log.Info("非生產模式，定時調度不武裝，僅提供控制面")
	default:
		if err := deps.Orchestrator.Start(); err != nil {
			return err
		}
		defer deps.Orchestrator.Stop()
	}

	return deps.Server.Run(ctx, deps.Config.Server.Host, deps.Config.Server.Port)
}

func runNotifier(base string) {
	model := tui.NewNotifier(tui.NewClient(base))

	p := tea.NewProgram(model, tea.WithAltScreen())

	// 崩潰保護
	defer func() {
		if r := recover(); r != nil {
			p.ReleaseTerminal()
			fmt.Printf("\n\n❌ 程序崩潰: %v\n%s\n", r, string(debug.Stack()))
			os.Exit(1)
		}
	}()

	if _, err := p.Run(); err != nil {
		fmt.Printf("程序運行錯誤: %v\n", err)
		os.Exit(1)
	}
}

func redirectStdErr(filename string) {
	_ = os.MkdirAll(filepath.Dir(filename), 0755)
	f, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err == nil {
		os.Stderr = f
	}
}
