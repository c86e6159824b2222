package netprobe

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HTTPProbe 基於 HEAD 請求的連通性探測
type HTTPProbe struct {
	url     string
	timeout time.Duration
	client  *http.Client
	log     *zap.Logger
}

func New(url string, timeout time.Duration, log *zap.Logger) *HTTPProbe {
	return &HTTPProbe{
		url:     url,
		timeout: timeout,
		client:  &http.Client{},
		log:     log,
	}
}

// Available 在硬超時內探測出站網絡，超時、中斷與任何失敗一律視為不可達
func (p *HTTPProbe) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Debug("連通性探測失敗", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode < http.StatusBadRequest
}
