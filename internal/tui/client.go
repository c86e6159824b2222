package tui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SurfaceStatus 控制面 GET /updater 返回的數據視圖。
// Notifier 不持有任何權威狀態，每次輪詢都整體替換
type SurfaceStatus struct {
	IsRunning       bool      `json:"isRunning"`
	Phase           string    `json:"phase"`
	LocalVersion    string    `json:"localVersion"`
	LatestVersion   string    `json:"latestVersion"`
	ReleaseName     string    `json:"releaseName"`
	Repository      string    `json:"repository"`
	LastCheck       time.Time `json:"lastCheck"`
	UpdateAvailable bool      `json:"updateAvailable"`
	LastError       string    `json:"lastError"`
}

// envelope 控制面統一信封
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// Client 控制面 HTTP 客戶端
type Client struct {
	base string
	http *http.Client
}

func NewClient(base string) *Client {
	return &Client{
		base: base,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// Status 讀取當前狀態快照
func (c *Client) Status(ctx context.Context) (*SurfaceStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/updater", nil)
	if err != nil {
		return nil, err
	}

	env, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var st SurfaceStatus
	if err := json.Unmarshal(env.Data, &st); err != nil {
		return nil, fmt.Errorf("解析狀態失敗: %w", err)
	}
	return &st, nil
}

// Action 下發 start/stop/check/update 命令，返回服務端消息
func (c *Client) Action(ctx context.Context, action string) (string, error) {
	body, _ := json.Marshal(map[string]string{"action": action})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/updater", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	env, err := c.do(req)
	if err != nil {
		return "", err
	}

	var data struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(env.Data, &data)
	return data.Message, nil
}

func (c *Client) do(req *http.Request) (*envelope, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("解析響應失敗: %w", err)
	}
	if !env.Success {
		return nil, fmt.Errorf("%s", env.Error)
	}
	return &env, nil
}
