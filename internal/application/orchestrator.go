package application

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Yat-Muk/orbis-updater/internal/domain/update"
	"github.com/Yat-Muk/orbis-updater/internal/pkg/errors"
)

// Options 編排器依賴與策略配置
type Options struct {
	Source     update.Source
	Probe      update.Probe
	Strategy   update.Strategy
	Restarter  update.Restarter
	Fallback   update.Restarter // 主重啟策略失敗後的自退出兜底，可為 nil
	Archiver   update.Archiver  // 更新前的清單存檔，可為 nil
	Repository string
	Interval   time.Duration
	AutoUpdate bool
	Log        *zap.Logger
}

// Orchestrator 更新編排器：版本檢查 -> 更新 -> 重啟 的循環狀態機。
// 每個進程只存在一個實例，由啟動時顯式構造並注入控制面
type Orchestrator struct {
	source     update.Source
	probe      update.Probe
	strategy   update.Strategy
	restarter  update.Restarter
	fallback   update.Restarter
	archiver   update.Archiver
	repository string
	interval   time.Duration
	autoUpdate bool
	log        *zap.Logger

	mu     sync.Mutex
	status update.Status
	stopCh chan struct{}

	// updating 為唯一的重入保護：更新進行中時新的更新命令立即被拒絕
	updating atomic.Bool
}

func NewOrchestrator(opts Options) *Orchestrator {
	return &Orchestrator{
		source:     opts.Source,
		probe:      opts.Probe,
		strategy:   opts.Strategy,
		restarter:  opts.Restarter,
		fallback:   opts.Fallback,
		archiver:   opts.Archiver,
		repository: opts.Repository,
		interval:   opts.Interval,
		autoUpdate: opts.AutoUpdate,
		log:        opts.Log,
		status: update.Status{
			Phase: update.PhaseIdle,
		},
	}
}

// Repository 返回受管倉庫標識
func (o *Orchestrator) Repository() string {
	return o.repository
}

// Start 創建定時調度。重複啟動返回 ErrScheduleActive
func (o *Orchestrator) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stopCh != nil {
		return errors.Wrap(errors.ErrScheduleActive, "ORC001", "調度已在運行")
	}

	o.stopCh = make(chan struct{})
	o.status.Running = true

	go o.run(o.stopCh)

	o.log.Info("更新調度已啟動",
		zap.String("repository", o.repository),
		zap.Duration("interval", o.interval),
	)
	return nil
}

// Stop 銷毀定時調度。無活躍調度時為冪等空操作
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stopCh == nil {
		return
	}

	close(o.stopCh)
	o.stopCh = nil
	o.status.Running = false

	o.log.Info("更新調度已停止")
}

// run 定時循環，一個調度週期對應一次受連通性門控的檢查
func (o *Orchestrator) run(stopCh chan struct{}) {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			o.scheduledTick()
		case <-stopCh:
			return
		}
	}
}

// scheduledTick 定時觸發的檢查。離線時不向版本源發起任何調用
func (o *Orchestrator) scheduledTick() {
	ctx := context.Background()

	if !o.probe.Available(ctx) {
		o.log.Debug("網絡不可達，跳過本輪檢查")
		return
	}

	status, err := o.Check(ctx, false)
	if err != nil {
		// 檢查失敗不中斷調度，下一輪自然重試
		o.log.Warn("定時檢查失敗", zap.Error(err))
		return
	}

	if o.autoUpdate && status.UpdateAvailable {
		o.log.Info("自動更新策略觸發更新", zap.String("latest", status.LatestVersion))
		if err := o.Update(ctx); err != nil {
			o.log.Warn("自動更新派發失敗", zap.Error(err))
		}
	}
}

// Check 立即執行一次版本比較並返回快照。
// manual 表示操作員手動觸發（手動檢查不經過連通性門控，由調用方保證）。
// 版本對比是字面不等判斷，不做語義化排序（沿用歷史行為）
func (o *Orchestrator) Check(ctx context.Context, manual bool) (update.Status, error) {
	o.setPhase(update.PhaseChecking)

	local, err := o.source.LocalVersion()
	if err != nil {
		o.log.Warn("本地版本不可讀", zap.Error(err))
		local = ""
	}

	rel, err := o.source.FetchLatest(ctx)
	if err != nil {
		o.mu.Lock()
		o.status.LastCheck = time.Now()
		o.status.LocalVersion = local
		o.status.LastError = err.Error()
		if !o.updating.Load() {
			o.status.Phase = update.PhaseFailed
		}
		snapshot := o.status
		o.mu.Unlock()

		o.log.Error("查詢發佈源失敗", zap.Error(err), zap.Bool("manual", manual))
		return snapshot, err
	}

	// 兩個版本都確定且不相等才算有更新；解析不出最新版本一律視為無更新
	available := local != "" && rel.HasVersion() && local != rel.Version

	o.mu.Lock()
	o.status.LastCheck = time.Now()
	o.status.LocalVersion = local
	o.status.LatestVersion = rel.Version
	o.status.ReleaseName = rel.Name
	o.status.Notes = rel.Notes
	o.status.PublishedAt = rel.PublishedAt
	o.status.UpdateAvailable = available
	o.status.LastError = ""
	if !o.updating.Load() {
		if available {
			o.status.Phase = update.PhaseUpdateAvailable
		} else {
			o.status.Phase = update.PhaseUpToDate
		}
	}
	snapshot := o.status
	o.mu.Unlock()

	o.log.Info("版本檢查完成",
		zap.String("local", local),
		zap.String("latest", rel.Version),
		zap.Bool("update_available", available),
	)
	return snapshot, nil
}

// Update 派發更新流程並立即返回（結果經由後續 Status 讀取）。
// 更新進行中時的再次調用立即返回 ErrUpdateInProgress，不排隊
func (o *Orchestrator) Update(ctx context.Context) error {
	if !o.updating.CompareAndSwap(false, true) {
		return errors.Wrap(errors.ErrUpdateInProgress, "ORC002", "已有更新在進行中")
	}

	cycleID := uuid.NewString()

	o.mu.Lock()
	o.status.Phase = update.PhaseUpdating
	o.status.CycleID = cycleID
	o.status.LastError = ""
	o.mu.Unlock()

	go o.runUpdate(cycleID)

	return nil
}

// runUpdate 完整更新週期：確認目標版本 -> 執行策略 -> 重啟。
// 一旦開始不支持取消，運行至成功或失敗
func (o *Orchestrator) runUpdate(cycleID string) {
	defer o.updating.Store(false)

	ctx := context.Background()
	log := o.log.With(zap.String("cycle_id", cycleID))

	// 以新快照確認目標版本，避免使用陳舊的檢查結果
	local, err := o.source.LocalVersion()
	if err != nil {
		local = ""
	}
	rel, err := o.source.FetchLatest(ctx)
	if err != nil {
		o.fail(log, "確認目標版本失敗", err)
		return
	}

	// 解析不出最新版本視為無更新，不盲目執行策略
	if !rel.HasVersion() {
		log.Info("最新版本無法確定，更新週期結束")
		o.setPhase(update.PhaseUpToDate)
		return
	}

	if local != "" && local == rel.Version {
		log.Info("已是最新版本，更新週期結束", zap.String("version", local))
		o.setPhase(update.PhaseUpToDate)
		return
	}

	// 變更前存檔當前清單，存檔失敗只記錄不中斷更新
	if o.archiver != nil {
		if err := o.archiver.Snapshot(local); err != nil {
			log.Warn("更新前存檔失敗", zap.Error(err))
		}
	}

	log.Info("開始執行更新策略",
		zap.String("strategy", o.strategy.Name()),
		zap.String("from", local),
		zap.String("to", rel.Version),
	)

	changed, err := o.strategy.Apply(ctx, rel)
	if err != nil {
		// 失敗的步驟不回滾，工作目錄保持失敗時的狀態
		o.fail(log, "更新策略執行失敗", err)
		return
	}

	if !changed {
		log.Info("更新策略無變更，跳過重啟")
		o.setPhase(update.PhaseUpToDate)
		return
	}

	o.setPhase(update.PhaseRestarting)

	if err := o.restarter.Restart(ctx); err != nil {
		log.Warn("主重啟策略失敗",
			zap.String("restarter", o.restarter.Name()),
			zap.Error(err),
		)
		if o.fallback == nil {
			o.fail(log, "重啟失敗且無兜底策略", err)
			return
		}
		if err := o.fallback.Restart(ctx); err != nil {
			o.fail(log, "兜底重啟策略失敗", err)
			return
		}
	}

	// 更新成功後刷新本地版本視圖
	if v, err := o.source.LocalVersion(); err == nil {
		o.mu.Lock()
		o.status.LocalVersion = v
		o.status.UpdateAvailable = false
		o.mu.Unlock()
	}

	log.Info("更新週期完成，等待重啟生效")
}

// Status 返回當前狀態快照
func (o *Orchestrator) Status() update.Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

func (o *Orchestrator) setPhase(p update.Phase) {
	o.mu.Lock()
	// 更新進行中時，並發檢查不得覆蓋 Updating/Restarting 狀態
	if o.updating.Load() && (p == update.PhaseChecking || p == update.PhaseUpdateAvailable) {
		o.mu.Unlock()
		return
	}
	o.status.Phase = p
	o.mu.Unlock()
}

func (o *Orchestrator) fail(log *zap.Logger, msg string, err error) {
	log.Error(msg, zap.Error(err))

	o.mu.Lock()
	o.status.Phase = update.PhaseFailed
	o.status.LastError = err.Error()
	o.mu.Unlock()
}
