package deploy

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Yat-Muk/orbis-updater/internal/domain/update"
	"github.com/Yat-Muk/orbis-updater/internal/pkg/errors"
)

// versionReader 讀取受管應用當前版本，用於冪等判斷
type versionReader interface {
	LocalVersion() (string, error)
}

// ArtifactStrategy artifact 部署模型：
// 下載發佈包並就地覆蓋安裝目錄，無構建步驟。
// 覆蓋按文件逐個原子替換（tmp 寫入 -> Rename），不提供目錄級事務
type ArtifactStrategy struct {
	source      versionReader
	appDir      string
	stepTimeout time.Duration
	client      *http.Client
	log         *zap.Logger
}

func NewArtifactStrategy(source versionReader, appDir string, stepTimeout time.Duration, log *zap.Logger) *ArtifactStrategy {
	return &ArtifactStrategy{
		source:      source,
		appDir:      appDir,
		stepTimeout: stepTimeout,
		client:      &http.Client{},
		log:         log,
	}
}

func (s *ArtifactStrategy) Name() string { return "artifact" }

// Apply 下載並解壓發佈包。本地版本已等於目標版本時不下載（冪等）
func (s *ArtifactStrategy) Apply(ctx context.Context, rel *update.Release) (bool, error) {
	if rel == nil || rel.DownloadURL == "" {
		return false, errors.New("DEP010", "發佈未攜帶可下載資產")
	}

	// 冪等短路：上一輪解壓已把版本推到目標值
	if local, err := s.source.LocalVersion(); err == nil && rel.Version != "" && local == rel.Version {
		s.log.Info("本地版本已是目標版本，跳過下載",
			zap.String("version", local),
		)
		return false, nil
	}

	s.log.Info("開始下載發佈包", zap.String("url", rel.DownloadURL))

	ctx, cancel := context.WithTimeout(ctx, s.stepTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rel.DownloadURL, nil)
	if err != nil {
		return false, errors.Wrap(err, "DEP011", "構建下載請求失敗")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return false, errors.Wrap(errors.ErrNetworkFailed, "DEP012", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, errors.Wrap(errors.ErrNetworkFailed, "DEP013",
			fmt.Sprintf("下載失敗，HTTP 狀態碼: %d", resp.StatusCode))
	}

	if err := s.extractOver(resp.Body); err != nil {
		return false, err
	}

	s.log.Info("發佈包已覆蓋安裝", zap.String("dir", s.appDir))
	return true, nil
}

// extractOver 將 tar.gz 流解壓覆蓋到安裝目錄
func (s *ArtifactStrategy) extractOver(r io.Reader) error {
	gzr, err := gzip.NewReader(r)
	if err != nil {
		return errors.Wrap(err, "DEP014", "創建 gzip reader 失敗")
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "DEP015", "讀取 tar 失敗")
		}

		rel := stripRoot(header.Name)
		if rel == "" {
			continue
		}

		target, err := securePath(s.appDir, rel)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return errors.Wrap(err, "DEP016", "創建目錄失敗")
			}
		case tar.TypeReg:
			if err := writeFileAtomic(target, tr, header.FileInfo().Mode()); err != nil {
				return err
			}
		default:
			// 符號鏈接等特殊類型一律跳過
			continue
		}
	}

	return nil
}

// stripRoot 去掉歸檔的頂層目錄（GitHub 發佈包慣例 repo-1.2.3/...）
func stripRoot(name string) string {
	name = strings.TrimPrefix(name, "./")
	if idx := strings.IndexByte(name, '/'); idx >= 0 {
		return name[idx+1:]
	}
	return ""
}

// securePath 拒絕路徑穿越，返回安裝目錄內的絕對路徑
func securePath(base, rel string) (string, error) {
	target := filepath.Join(base, rel)
	if !strings.HasPrefix(target, filepath.Clean(base)+string(os.PathSeparator)) {
		return "", errors.New("DEP017", fmt.Sprintf("歸檔條目路徑非法: %q", rel))
	}
	return target, nil
}

// writeFileAtomic 原子寫入：臨時文件 -> Rename 替換舊文件
func writeFileAtomic(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.Wrap(err, "DEP018", "創建父目錄失敗")
	}

	tmpPath := target + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return errors.Wrap(err, "DEP019", "創建臨時文件失敗")
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return errors.Wrap(err, "DEP020", "寫入文件失敗")
	}
	f.Close()

	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "DEP021", "替換文件失敗")
	}

	return nil
}
