package update

import (
	"context"
	"time"
)

// Phase 更新週期狀態
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseChecking        Phase = "checking"
	PhaseUpdateAvailable Phase = "update_available"
	PhaseUpToDate        Phase = "up_to_date"
	PhaseUpdating        Phase = "updating"
	PhaseRestarting      Phase = "restarting"
	PhaseFailed          Phase = "failed"
)

// Release 遠程發佈的不可變快照，每次檢查重新生成
type Release struct {
	Version     string
	Name        string
	PublishedAt time.Time
	Notes       string
	DownloadURL string
}

// HasVersion 報告是否從標題或標籤解析出了版本號
func (r *Release) HasVersion() bool {
	return r != nil && r.Version != ""
}

// Status 對外暴露的狀態快照，只讀
type Status struct {
	Running         bool      `json:"isRunning"`
	Phase           Phase     `json:"phase"`
	LocalVersion    string    `json:"localVersion"`
	LatestVersion   string    `json:"latestVersion"`
	ReleaseName     string    `json:"releaseName"`
	Notes           string    `json:"notes,omitempty"`
	PublishedAt     time.Time `json:"publishedAt,omitempty"`
	LastCheck       time.Time `json:"lastCheck"`
	UpdateAvailable bool      `json:"updateAvailable"`
	LastError       string    `json:"lastError,omitempty"`
	CycleID         string    `json:"cycleId,omitempty"`
}

// Source 版本源接口
type Source interface {
	// LocalVersion 從本地應用元數據讀取版本標識
	LocalVersion() (string, error)

	// FetchLatest 查詢遠程發佈源。解析不出版本號屬於軟失敗：
	// 返回 Version 為空的 Release 而不是錯誤
	FetchLatest(ctx context.Context) (*Release, error)
}

// Probe 連通性探測接口
type Probe interface {
	// Available 在限定時間內探測出站網絡是否可達，任何失敗視為不可達
	Available(ctx context.Context) bool
}

// Strategy 更新策略接口，source-control 與 artifact 兩種實現
type Strategy interface {
	Name() string

	// Apply 執行更新流程。無新內容時返回 changed=false（冪等），
	// 任一步驟失敗返回錯誤且不做回滾
	Apply(ctx context.Context, rel *Release) (changed bool, err error)
}

// Archiver 更新前存檔接口，用於追溯更新前的版本清單
type Archiver interface {
	// Snapshot 存檔當前狀態，tag 為當前本地版本號
	Snapshot(tag string) error
}

// Restarter 重啟策略接口
type Restarter interface {
	Name() string

	// Restart 讓受管應用以新代碼重新啟動
	Restart(ctx context.Context) error
}
