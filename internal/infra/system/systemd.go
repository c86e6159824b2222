package system

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/coreos/go-systemd/v22/dbus"
	"go.uber.org/zap"
)

// SystemdManager Systemd 服務管理器接口
type SystemdManager interface {
	Start(ctx context.Context, service string) error
	Stop(ctx context.Context, service string) error
	Restart(ctx context.Context, service string) error
	IsActive(ctx context.Context, service string) (bool, error)
	Close()
}

type dbusManager struct {
	conn *dbus.Conn
	log  *zap.Logger
	mu   sync.Mutex
}

func NewSystemdManager(log *zap.Logger) (SystemdManager, error) {
	conn, err := dbus.NewSystemdConnectionContext(context.Background())
	if err != nil {
		return nil, fmt.Errorf("無法連接 Systemd DBus: %w", err)
	}
	return &dbusManager{conn: conn, log: log}, nil
}

func (m *dbusManager) Close() {
	if m.conn != nil {
		m.conn.Close()
	}
}

// ensureSuffix 確保服務名以 .service 結尾
func ensureSuffix(service string) string {
	if !strings.HasSuffix(service, ".service") {
		return service + ".service"
	}
	return service
}

func (m *dbusManager) Start(ctx context.Context, service string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	service = ensureSuffix(service)

	ch := make(chan string, 1)
	_, err := m.conn.StartUnitContext(ctx, service, "replace", ch)
	if err != nil {
		return err
	}

	select {
	case result := <-ch:
		if result != "done" {
			return fmt.Errorf("啟動服務失敗: %s", result)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("啟動服務超時: %w", ctx.Err())
	}
}

func (m *dbusManager) Stop(ctx context.Context, service string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	service = ensureSuffix(service)

	ch := make(chan string, 1)
	_, err := m.conn.StopUnitContext(ctx, service, "replace", ch)
	if err != nil {
		return err
	}

	select {
	case result := <-ch:
		if result != "done" {
			return fmt.Errorf("停止服務失敗: %s", result)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("停止服務超時: %w", ctx.Err())
	}
}

func (m *dbusManager) Restart(ctx context.Context, service string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	service = ensureSuffix(service)

	// 重啟前先重載配置，防止 Unit 文件變更未生效
	m.conn.ReloadContext(ctx)

	ch := make(chan string, 1)
	_, err := m.conn.RestartUnitContext(ctx, service, "replace", ch)
	if err != nil {
		return err
	}

	select {
	case result := <-ch:
		if result != "done" {
			return fmt.Errorf("重啟服務失敗: %s", result)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("重啟服務超時: %w", ctx.Err())
	}
}

func (m *dbusManager) IsActive(ctx context.Context, service string) (bool, error) {
	service = ensureSuffix(service)
	units, err := m.conn.ListUnitsByNamesContext(ctx, []string{service})
	if err != nil {
		return false, err
	}
	if len(units) == 0 {
		return false, nil
	}
	return units[0].ActiveState == "active", nil
}
