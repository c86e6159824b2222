package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// 輪詢間隔：狀態每隔固定時間從控制面整體刷新
const pollInterval = 5 * time.Second

// 配色沿用主題色系
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1AAEFC"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8A8783"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F3F3F0"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#B2FF00"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFDC65"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF007F"))
	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3a3a3a")).
			Padding(1, 2)
	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8A8783"))
)

// 消息類型
type (
	statusMsg  struct{ status *SurfaceStatus }
	statusErr  struct{ err error }
	actionMsg  struct{ message string }
	actionErr  struct{ err error }
	pollTick   struct{}
	clearFlash struct{}
)

// Notifier 狀態面板模型：輪詢控制面、渲染當前階段、提供手動操作
type Notifier struct {
	client  *Client
	status  *SurfaceStatus
	err     error
	flash   string
	busy    bool
	spinner spinner.Model
}

func NewNotifier(client *Client) *Notifier {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#1AAEFC"))

	return &Notifier{
		client:  client,
		spinner: sp,
	}
}

func (m *Notifier) Init() tea.Cmd {
	return tea.Batch(m.fetchStatus(), m.schedulePoll(), m.spinner.Tick)
}

func (m *Notifier) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "c":
			m.busy = true
			return m, m.dispatch("check")
		case "u":
			m.busy = true
			return m, m.dispatch("update")
		case "r":
			return m, m.fetchStatus()
		}

	case statusMsg:
		m.status = msg.status
		m.err = nil
		m.busy = false
		return m, nil

	case statusErr:
		m.err = msg.err
		m.busy = false
		return m, nil

	case actionMsg:
		m.flash = msg.message
		m.busy = false
		// 命令應答後立即刷新一次，保證渲染值來自控制面
		return m, tea.Batch(m.fetchStatus(), m.scheduleClearFlash())

	case actionErr:
		m.flash = msg.err.Error()
		m.busy = false
		return m, m.scheduleClearFlash()

	case pollTick:
		return m, tea.Batch(m.fetchStatus(), m.schedulePoll())

	case clearFlash:
		m.flash = ""
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Notifier) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Orbis Ship 更新面板"))
	b.WriteString("\n\n")

	if m.status == nil {
		if m.err != nil {
			b.WriteString(errStyle.Render("✗ 無法連接控制面: " + m.err.Error()))
		} else {
			b.WriteString(m.spinner.View() + " 正在連接控制面...")
		}
		return borderStyle.Render(b.String())
	}

	st := m.status

	b.WriteString(row("倉庫", valueStyle.Render(st.Repository)))
	b.WriteString(row("調度", renderRunning(st.IsRunning)))
	b.WriteString(row("階段", renderPhase(st.Phase, m.busy, m.spinner.View())))
	b.WriteString(row("本地版本", valueStyle.Render(orDash(st.LocalVersion))))
	b.WriteString(row("最新版本", renderLatest(st)))
	b.WriteString(row("上次檢查", valueStyle.Render(renderTime(st.LastCheck))))

	if st.LastError != "" {
		b.WriteString(row("錯誤", errStyle.Render(st.LastError)))
	}
	if m.err != nil {
		b.WriteString(row("連接", errStyle.Render(m.err.Error())))
	}
	if m.flash != "" {
		b.WriteString("\n" + warnStyle.Render("» "+m.flash) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("c 檢查更新 · u 執行更新 · r 刷新 · q 退出"))

	return borderStyle.Render(b.String())
}

// row 渲染一行標籤與值，標籤按可視寬度對齊
func row(label, value string) string {
	const labelWidth = 10
	padded := label + strings.Repeat(" ", max(0, labelWidth-runewidth.StringWidth(label)))
	return labelStyle.Render(padded) + value + "\n"
}

func renderRunning(running bool) string {
	if running {
		return okStyle.Render("● 運行中")
	}
	return warnStyle.Render("○ 已停止")
}

func renderPhase(phase string, busy bool, spin string) string {
	if busy || phase == "updating" || phase == "checking" || phase == "restarting" {
		return spin + " " + valueStyle.Render(phase)
	}
	switch phase {
	case "failed":
		return errStyle.Render(phase)
	case "update_available":
		return warnStyle.Render(phase)
	case "up_to_date":
		return okStyle.Render(phase)
	}
	return valueStyle.Render(phase)
}

func renderLatest(st *SurfaceStatus) string {
	if st.LatestVersion == "" {
		return labelStyle.Render("未知")
	}
	if st.UpdateAvailable {
		return warnStyle.Render(fmt.Sprintf("%s（可更新）", st.LatestVersion))
	}
	return okStyle.Render(st.LatestVersion)
}

func renderTime(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

func (m *Notifier) fetchStatus() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		st, err := m.client.Status(ctx)
		if err != nil {
			return statusErr{err: err}
		}
		return statusMsg{status: st}
	}
}

func (m *Notifier) dispatch(action string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		msg, err := m.client.Action(ctx, action)
		if err != nil {
			return actionErr{err: err}
		}
		return actionMsg{message: msg}
	}
}

func (m *Notifier) schedulePoll() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg {
		return pollTick{}
	})
}

func (m *Notifier) scheduleClearFlash() tea.Cmd {
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return clearFlash{}
	})
}
