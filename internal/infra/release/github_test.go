package release

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Yat-Muk/orbis-updater/internal/pkg/errors"
)

func newTestFeed(t *testing.T, handler http.HandlerFunc) *Feed {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	f := NewFeed("acme/ship", filepath.Join(t.TempDir(), "package.json"), zap.NewNop())
	f.baseURL = srv.URL
	return f
}

func TestParseVersion(t *testing.T) {
	t.Run("標題括號提取", func(t *testing.T) {
		assert.Equal(t, "1.2.1", parseVersion("Release (v1.2.1)", ""))
	})

	t.Run("帶構建號", func(t *testing.T) {
		assert.Equal(t, "1.2.1.7", parseVersion("Hotfix (v1.2.1.7)", ""))
	})

	t.Run("標題無模式時回退標籤", func(t *testing.T) {
		assert.Equal(t, "1.2.0", parseVersion("Summer refresh", "v1.2.0"))
	})

	t.Run("標籤無v前綴", func(t *testing.T) {
		assert.Equal(t, "2.0.0", parseVersion("", "2.0.0"))
	})

	t.Run("兩者均無模式", func(t *testing.T) {
		assert.Equal(t, "", parseVersion("Summer refresh", "latest"))
	})
}

func TestFetchLatest(t *testing.T) {
	f := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/ship/releases/latest", r.URL.Path)
		w.Write([]byte(`{
			"name": "Release (v1.2.1)",
			"tag_name": "v1.2.1",
			"published_at": "2026-08-01T10:00:00Z",
			"body": "修復若干問題",
			"assets": [
				{"name": "ship.zip", "browser_download_url": "https://dl/ship.zip"},
				{"name": "ship.tar.gz", "browser_download_url": "https://dl/ship.tar.gz"}
			]
		}`))
	})

	rel, err := f.FetchLatest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "1.2.1", rel.Version)
	assert.Equal(t, "Release (v1.2.1)", rel.Name)
	assert.Equal(t, "https://dl/ship.tar.gz", rel.DownloadURL, "應優先選擇 tar.gz 資產")
	assert.True(t, rel.HasVersion())
}

func TestFetchLatest_NoVersionToken(t *testing.T) {
	// 標題無模式且標籤不可解析 -> 軟失敗，不是錯誤
	f := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name": "Summer refresh", "tag_name": "latest"}`))
	})

	rel, err := f.FetchLatest(context.Background())
	require.NoError(t, err)
	assert.False(t, rel.HasVersion())
}

func TestFetchLatest_TagFallback(t *testing.T) {
	f := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name": "no token here", "tag_name": "v1.2.0"}`))
	})

	rel, err := f.FetchLatest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", rel.Version)
}

func TestFetchLatest_Errors(t *testing.T) {
	t.Run("限流", func(t *testing.T) {
		f := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})
		_, err := f.FetchLatest(context.Background())
		assert.ErrorIs(t, err, errors.ErrRateLimited)
	})

	t.Run("服務端錯誤", func(t *testing.T) {
		f := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		_, err := f.FetchLatest(context.Background())
		assert.ErrorIs(t, err, errors.ErrNetworkFailed)
	})

	t.Run("響應畸形", func(t *testing.T) {
		f := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"name": `))
		})
		_, err := f.FetchLatest(context.Background())
		assert.ErrorIs(t, err, errors.ErrMalformedResponse)
	})
}

func TestLocalVersion(t *testing.T) {
	tmpDir := t.TempDir()
	pkgFile := filepath.Join(tmpDir, "package.json")

	f := NewFeed("acme/ship", pkgFile, zap.NewNop())

	t.Run("文件缺失", func(t *testing.T) {
		_, err := f.LocalVersion()
		assert.ErrorIs(t, err, errors.ErrVersionNotFound)
	})

	t.Run("正常讀取", func(t *testing.T) {
		require.NoError(t, os.WriteFile(pkgFile,
			[]byte(`{"name": "orbis-ship", "version": "1.2.0"}`), 0644))

		v, err := f.LocalVersion()
		require.NoError(t, err)
		assert.Equal(t, "1.2.0", v)
	})

	t.Run("缺少version字段", func(t *testing.T) {
		require.NoError(t, os.WriteFile(pkgFile, []byte(`{"name": "orbis-ship"}`), 0644))

		_, err := f.LocalVersion()
		assert.ErrorIs(t, err, errors.ErrVersionNotFound)
	})
}
