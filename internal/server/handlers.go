package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Yat-Muk/orbis-updater/internal/pkg/errors"
	"github.com/Yat-Muk/orbis-updater/internal/pkg/version"
)

// actionRequest POST /updater 的請求體
type actionRequest struct {
	Action string `json:"action" binding:"required"`
}

// ok 統一成功信封
func ok(c *gin.Context, data gin.H) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// fail 統一失敗信封，錯誤絕不以裸 500 洩漏
func fail(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

// nullable 空字符串在載荷中呈現為 null
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// handleHealth GET /health
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   version.Version,
		"uptime":    time.Since(s.startedAt).Seconds(),
	})
}

// handleHealthHead HEAD /health，供連通性探測使用，空響應體
func (s *Server) handleHealthHead(c *gin.Context) {
	c.Status(http.StatusOK)
}

// handleStatus GET /updater
func (s *Server) handleStatus(c *gin.Context) {
	st := s.updater.Status()

	ok(c, gin.H{
		"isRunning":       st.Running,
		"phase":           st.Phase,
		"localVersion":    nullable(st.LocalVersion),
		"latestVersion":   nullable(st.LatestVersion),
		"releaseName":     st.ReleaseName,
		"notes":           nullable(st.Notes),
		"publishedAt":     st.PublishedAt,
		"repository":      s.updater.Repository(),
		"lastCheck":       st.LastCheck,
		"updateAvailable": st.UpdateAvailable,
		"lastError":       nullable(st.LastError),
	})
}

// handleAction POST /updater，分發 start/stop/check/update 命令
func (s *Server) handleAction(c *gin.Context) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, errors.Wrap(err, "API001", "請求體無效"))
		return
	}

	switch req.Action {
	case "start":
		if err := s.updater.Start(); err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}
		ok(c, gin.H{"message": "update schedule started"})

	case "stop":
		// 無活躍調度時也是冪等成功
		s.updater.Stop()
		ok(c, gin.H{"message": "update schedule stopped"})

	case "check":
		// 手動檢查繞過連通性門控的緩存判斷，立即比較版本
		st, err := s.updater.Check(c.Request.Context(), true)
		if err != nil {
			fail(c, http.StatusInternalServerError, err)
			return
		}
		ok(c, gin.H{
			"message":         "check completed",
			"localVersion":    nullable(st.LocalVersion),
			"latestVersion":   nullable(st.LatestVersion),
			"updateAvailable": st.UpdateAvailable,
		})

	case "update":
		// 異步派發約定：應答只代表“已發起”，結果經由後續 status 輪詢
		if err := s.updater.Update(c.Request.Context()); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, errors.ErrUpdateInProgress) {
				status = http.StatusConflict
			}
			fail(c, status, err)
			return
		}
		ok(c, gin.H{"message": "update initiated"})

	default:
		s.log.Warn("未知操作", zap.String("action", req.Action))
		fail(c, http.StatusBadRequest, errors.New("API002", "未知操作: "+req.Action))
	}
}
