package release

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Yat-Muk/orbis-updater/internal/domain/update"
	"github.com/Yat-Muk/orbis-updater/internal/pkg/errors"
)

// 版本提取模式：vMAJOR.MINOR.PATCH[.BUILD]
// 標題中通常是 "Release (v1.2.1)" 這種括號寫法，標籤則是裸 v1.2.1
var (
	titlePattern = regexp.MustCompile(`\(v(\d+\.\d+\.\d+(?:\.\d+)?)\)`)
	tagPattern   = regexp.MustCompile(`^v?(\d+\.\d+\.\d+(?:\.\d+)?)$`)
)

// githubRelease GitHub releases API 的最小響應結構
type githubRelease struct {
	Name        string    `json:"name"`
	TagName     string    `json:"tag_name"`
	PublishedAt time.Time `json:"published_at"`
	Body        string    `json:"body"`
	Assets      []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

// packageMeta 本地應用元數據（package.json）
type packageMeta struct {
	Version string `json:"version"`
}

// Feed 基於 GitHub releases API 的版本源
type Feed struct {
	repo        string
	packageFile string
	baseURL     string
	client      *http.Client
	log         *zap.Logger
}

func NewFeed(repo, packageFile string, log *zap.Logger) *Feed {
	return &Feed{
		repo:        repo,
		packageFile: packageFile,
		baseURL:     "https://api.github.com",
		client:      &http.Client{Timeout: 10 * time.Second},
		log:         log,
	}
}

// LocalVersion 從受管應用的 package.json 讀取版本號
func (f *Feed) LocalVersion() (string, error) {
	content, err := os.ReadFile(f.packageFile)
	if err != nil {
		return "", errors.Wrap(errors.ErrVersionNotFound, "VER001",
			fmt.Sprintf("讀取 %s 失敗", f.packageFile))
	}

	var meta packageMeta
	if err := json.Unmarshal(content, &meta); err != nil {
		return "", errors.Wrap(errors.ErrVersionNotFound, "VER002", "元數據格式無效")
	}
	if meta.Version == "" {
		return "", errors.Wrap(errors.ErrVersionNotFound, "VER003", "元數據缺少 version 字段")
	}

	return meta.Version, nil
}

// FetchLatest 查詢最新發佈。標題解析不出版本時回退到 tag_name，
// 兩者都解析不出屬於軟失敗：返回 Version 為空的快照而非錯誤
func (f *Feed) FetchLatest(ctx context.Context) (*update.Release, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", f.baseURL, f.repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "NET001", "構建請求失敗")
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrNetworkFailed, "NET002", err.Error())
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		return nil, errors.Wrap(errors.ErrRateLimited, "NET003",
			fmt.Sprintf("HTTP %d", resp.StatusCode))
	default:
		return nil, errors.Wrap(errors.ErrNetworkFailed, "NET004",
			fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	var rel githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, errors.Wrap(errors.ErrMalformedResponse, "NET005", err.Error())
	}

	ver := parseVersion(rel.Name, rel.TagName)
	if ver == "" {
		f.log.Warn("發佈標題與標籤均無法解析出版本號",
			zap.String("name", rel.Name),
			zap.String("tag", rel.TagName),
		)
	}

	return &update.Release{
		Version:     ver,
		Name:        rel.Name,
		PublishedAt: rel.PublishedAt,
		Notes:       rel.Body,
		DownloadURL: pickAsset(rel),
	}, nil
}

// parseVersion 先從標題括號中提取，再回退到標籤；返回去掉 v 前綴的點分版本
func parseVersion(title, tag string) string {
	if m := titlePattern.FindStringSubmatch(title); m != nil {
		return m[1]
	}
	if m := tagPattern.FindStringSubmatch(strings.TrimSpace(tag)); m != nil {
		return m[1]
	}
	return ""
}

// pickAsset 優先選 tar.gz 資產，其次第一個資產
func pickAsset(rel githubRelease) string {
	for _, a := range rel.Assets {
		if strings.HasSuffix(a.Name, ".tar.gz") || strings.HasSuffix(a.Name, ".tgz") {
			return a.BrowserDownloadURL
		}
	}
	if len(rel.Assets) > 0 {
		return rel.Assets[0].BrowserDownloadURL
	}
	return ""
}
