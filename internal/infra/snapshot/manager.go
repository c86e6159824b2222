package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	snapshotFileMode os.FileMode = 0600
	snapshotDirMode  os.FileMode = 0700
	checksumSuffix               = ".sha256"
)

// RetentionPolicy 快照保留策略，按數量與時間雙軌淘汰
type RetentionPolicy struct {
	MaxFiles int
	MaxAge   time.Duration
}

// File 一份歷史快照的元信息
type File struct {
	Name     string
	Path     string
	ModTime  time.Time
	Size     int64
	Verified bool
}

// Manager 更新前快照管理器：每個更新週期開始前把受管應用的
// 版本清單（package.json）存檔一份，供排障時追溯更新前的狀態
type Manager struct {
	srcPath     string
	snapshotDir string
	retention   RetentionPolicy
}

func NewManager(srcPath, snapshotDir string, retention RetentionPolicy) (*Manager, error) {
	if err := os.MkdirAll(snapshotDir, snapshotDirMode); err != nil {
		return nil, fmt.Errorf("創建快照目錄失敗: %w", err)
	}

	return &Manager{
		srcPath:     srcPath,
		snapshotDir: snapshotDir,
		retention:   retention,
	}, nil
}

// Snapshot 存檔當前版本清單。tag 一般為當前本地版本號。
// 內容與上一份快照相同時跳過（去重），源文件不存在不算錯誤
func (m *Manager) Snapshot(tag string) error {
	data, err := os.ReadFile(m.srcPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("讀取源文件失敗: %w", err)
	}

	hash := sha256.Sum256(data)
	hashStr := hex.EncodeToString(hash[:])
	if m.isDuplicateContent(hashStr) {
		return nil
	}

	timestamp := time.Now().Format("20060102-150405")
	name := fmt.Sprintf("manifest-%s.bak", timestamp)
	if tag != "" {
		name = fmt.Sprintf("manifest-%s-%s.bak", timestamp, sanitizeTag(tag))
	}
	dstPath := filepath.Join(m.snapshotDir, name)

	if err := writeAtomic(dstPath, data); err != nil {
		return fmt.Errorf("寫入快照失敗: %w", err)
	}
	if err := writeAtomic(dstPath+checksumSuffix, []byte(hashStr)); err != nil {
		os.Remove(dstPath)
		return fmt.Errorf("生成校驗文件失敗: %w", err)
	}

	m.saveLastHash(hashStr)
	m.enforcePolicy()

	return nil
}

// Restore 把指定快照恢復到源文件位置，恢復前先做完整性校驗
func (m *Manager) Restore(name string) error {
	path := filepath.Join(m.snapshotDir, filepath.Base(name))
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("讀取快照失敗: %w", err)
	}

	if !verifyChecksum(path, data) {
		return fmt.Errorf("快照完整性校驗失敗: %s", name)
	}

	if err := writeAtomic(m.srcPath, data); err != nil {
		return fmt.Errorf("恢復源文件失敗: %w", err)
	}
	return nil
}

// List 按時間倒序列出全部快照
func (m *Manager) List() ([]File, error) {
	entries, err := os.ReadDir(m.snapshotDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []File{}, nil
		}
		return nil, fmt.Errorf("讀取快照目錄失敗: %w", err)
	}

	var files []File
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".bak") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		path := filepath.Join(m.snapshotDir, entry.Name())

		var verified bool
		if data, err := os.ReadFile(path); err == nil {
			verified = verifyChecksum(path, data)
		}

		files = append(files, File{
			Name:     entry.Name(),
			Path:     path,
			ModTime:  info.ModTime(),
			Size:     info.Size(),
			Verified: verified,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})

	return files, nil
}

func (m *Manager) enforcePolicy() {
	files, err := m.List()
	if err != nil {
		return
	}

	now := time.Now()
	for i, f := range files {
		shouldDelete := false
		if m.retention.MaxFiles > 0 && i >= m.retention.MaxFiles {
			shouldDelete = true
		} else if m.retention.MaxAge > 0 && now.Sub(f.ModTime) > m.retention.MaxAge {
			shouldDelete = true
		}

		if shouldDelete {
			os.Remove(f.Path)
			os.Remove(f.Path + checksumSuffix)
		}
	}
}

func (m *Manager) isDuplicateContent(hash string) bool {
	lastHash, err := os.ReadFile(filepath.Join(m.snapshotDir, ".last-hash"))
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(lastHash)) == hash
}

func (m *Manager) saveLastHash(hash string) {
	_ = writeAtomic(filepath.Join(m.snapshotDir, ".last-hash"), []byte(hash))
}

func verifyChecksum(path string, data []byte) bool {
	expected, err := os.ReadFile(path + checksumSuffix)
	if err != nil {
		return false
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:]) == strings.TrimSpace(string(expected))
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, snapshotFileMode); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// sanitizeTag 版本號進入文件名前清洗掉路徑分隔符
func sanitizeTag(tag string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '-'
		}
		return r
	}, tag)
}
