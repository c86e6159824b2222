package restart

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Yat-Muk/orbis-updater/internal/infra/system"
	"github.com/Yat-Muk/orbis-updater/internal/pkg/errors"
)

// SystemdRestarter 委託外部進程管理器重啟受管服務
type SystemdRestarter struct {
	systemd system.SystemdManager
	service string
	log     *zap.Logger
}

func NewSystemdRestarter(systemd system.SystemdManager, service string, log *zap.Logger) *SystemdRestarter {
	return &SystemdRestarter{
		systemd: systemd,
		service: service,
		log:     log,
	}
}

func (r *SystemdRestarter) Name() string { return "systemd" }

func (r *SystemdRestarter) Restart(ctx context.Context) error {
	r.log.Info("委託 Systemd 重啟服務", zap.String("service", r.service))

	if err := r.systemd.Restart(ctx, r.service); err != nil {
		return errors.Wrap(errors.ErrRestartUnavailable, "RST001", err.Error())
	}
	return nil
}

// SelfExitRestarter 自退出策略：等待固定緩衝延遲讓在途響應沖刷完，
// 然後退出進程，由外部守護（systemd/pm2）拉起新版本
type SelfExitRestarter struct {
	grace time.Duration
	exit  func(code int)
	log   *zap.Logger
}

func NewSelfExitRestarter(grace time.Duration, exit func(code int), log *zap.Logger) *SelfExitRestarter {
	return &SelfExitRestarter{
		grace: grace,
		exit:  exit,
		log:   log,
	}
}

func (r *SelfExitRestarter) Name() string { return "exit" }

func (r *SelfExitRestarter) Restart(ctx context.Context) error {
	r.log.Info("將在緩衝延遲後自退出，交由外部守護重啟",
		zap.Duration("grace", r.grace),
	)

	time.AfterFunc(r.grace, func() {
		r.log.Info("自退出")
		r.exit(0)
	})

	return nil
}
