package tui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/updater", r.URL.Path)
		w.Write([]byte(`{"success":true,"data":{
			"isRunning":true,"phase":"up_to_date","localVersion":"1.2.0",
			"latestVersion":"1.2.0","repository":"acme/ship","updateAvailable":false
		}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	st, err := c.Status(context.Background())
	require.NoError(t, err)

	assert.True(t, st.IsRunning)
	assert.Equal(t, "1.2.0", st.LocalVersion)
	assert.Equal(t, "acme/ship", st.Repository)
}

func TestClient_Action(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Write([]byte(`{"success":true,"data":{"message":"update initiated"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	msg, err := c.Action(context.Background(), "update")
	require.NoError(t, err)
	assert.Equal(t, "update initiated", msg)
}

func TestClient_Action_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"success":false,"error":"update already in progress"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Action(context.Background(), "update")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "in progress")
}

func TestNotifier_StatusMessage(t *testing.T) {
	m := NewNotifier(NewClient("http://127.0.0.1:0"))

	st := &SurfaceStatus{
		IsRunning:       true,
		Phase:           "update_available",
		LocalVersion:    "1.2.0",
		LatestVersion:   "1.2.1",
		Repository:      "acme/ship",
		LastCheck:       time.Now(),
		UpdateAvailable: true,
	}

	model, _ := m.Update(statusMsg{status: st})
	n := model.(*Notifier)

	view := n.View()
	assert.Contains(t, view, "acme/ship")
	assert.Contains(t, view, "1.2.0")
	assert.Contains(t, view, "1.2.1")
	assert.Contains(t, view, "可更新")
}

func TestNotifier_ConnectionError(t *testing.T) {
	m := NewNotifier(NewClient("http://127.0.0.1:0"))

	model, _ := m.Update(statusErr{err: assert.AnError})
	n := model.(*Notifier)

	assert.Contains(t, n.View(), "無法連接控制面")
}

func TestNotifier_QuitKey(t *testing.T) {
	m := NewNotifier(NewClient("http://127.0.0.1:0"))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestNotifier_ActionFlash(t *testing.T) {
	m := NewNotifier(NewClient("http://127.0.0.1:0"))
	m.status = &SurfaceStatus{Repository: "acme/ship"}

	model, _ := m.Update(actionMsg{message: "update initiated"})
	n := model.(*Notifier)

	assert.Contains(t, n.View(), "update initiated")

	model, _ = n.Update(clearFlash{})
	n = model.(*Notifier)
	assert.NotContains(t, n.View(), "update initiated")
}
