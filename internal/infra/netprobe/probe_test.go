package netprobe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
	}))
	defer srv.Close()

	p := New(srv.URL, time.Second, zap.NewNop())
	assert.True(t, p.Available(context.Background()))
}

func TestAvailable_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := New(srv.URL, time.Second, zap.NewNop())
	assert.False(t, p.Available(context.Background()))
}

func TestAvailable_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	p := New(srv.URL, 20*time.Millisecond, zap.NewNop())
	assert.False(t, p.Available(context.Background()))
}

func TestAvailable_Unreachable(t *testing.T) {
	// 關閉的端口必然探測失敗
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	p := New(srv.URL, time.Second, zap.NewNop())
	assert.False(t, p.Available(context.Background()))
}
