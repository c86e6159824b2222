package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Yat-Muk/orbis-updater/internal/domain/update"
)

// Updater 控制面需要的編排器能力
type Updater interface {
	Start() error
	Stop()
	Check(ctx context.Context, manual bool) (update.Status, error)
	Update(ctx context.Context) error
	Status() update.Status
	Repository() string
}

// Server 更新控制面 HTTP 服務
type Server struct {
	engine    *gin.Engine
	httpSrv   *http.Server
	updater   Updater
	log       *zap.Logger
	startedAt time.Time
}

func New(updater Updater, log *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine:    gin.New(),
		updater:   updater,
		log:       log,
		startedAt: time.Now(),
	}

	s.engine.Use(s.requestLogger(), gin.Recovery())
	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.handleHealth)
	s.engine.HEAD("/health", s.handleHealthHead)

	s.engine.GET("/updater", s.handleStatus)
	s.engine.POST("/updater", s.handleAction)
}

// Run 啟動 HTTP 服務，阻塞直到 ctx 取消後優雅關閉
func (s *Server) Run(ctx context.Context, host string, port int) error {
	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("控制面已監聽", zap.String("addr", s.httpSrv.Addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("控制面正在關閉")
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}

// Handler 暴露底層處理器，便於測試
func (s *Server) Handler() http.Handler {
	return s.engine
}

// requestLogger 基於 zap 的請求日誌中間件
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
