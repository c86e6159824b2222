package appctx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaths(t *testing.T) {
	tmpDir := t.TempDir()

	paths, err := NewPaths(tmpDir, "")
	require.NoError(t, err)

	assert.Equal(t, tmpDir, paths.BaseDir)
	assert.Equal(t, filepath.Join(tmpDir, "config.yaml"), paths.ConfigFile)
	assert.DirExists(t, paths.DataDir)
	assert.DirExists(t, paths.DownloadDir)

	// PackageFile 必須指向應用目錄內的 package.json
	assert.Equal(t, filepath.Join(paths.AppDir, "package.json"), paths.PackageFile)
}

func TestNewPaths_ExplicitAppDir(t *testing.T) {
	tmpDir := t.TempDir()
	appDir := filepath.Join(tmpDir, "ship")

	paths, err := NewPaths(tmpDir, appDir)
	require.NoError(t, err)

	assert.Equal(t, appDir, paths.AppDir)
	assert.Equal(t, filepath.Join(appDir, "package.json"), paths.PackageFile)
}

func TestNewPaths_RelativeBase(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	require.NoError(t, os.Chdir(tmpDir))
	defer os.Chdir(oldWd)

	paths, err := NewPaths("workdir", "")
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(paths.BaseDir), "基礎目錄應為絕對路徑")
}
