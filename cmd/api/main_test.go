package main

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zhouzirui/copilot-extension/backend/internal/config"
	"github.com/zhouzirui/copilot-extension/backend/internal/service/backend"
)

func TestNewBackendRemote(t *testing.T) {
	cfg := &config.Config{Backend: config.BackendConfig{Mode: config.BackendModeRemote, BaseURL: "http://localhost:8000"}}
	b, err := newBackend(context.Background(), cfg, backend.NewHTTPTransport(nil), zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &backend.Client{}, b)
}

func TestNewBackendModelRequiresCredentials(t *testing.T) {
	cfg := &config.Config{Backend: config.BackendConfig{Mode: config.BackendModeModel}}
	_, err := newBackend(context.Background(), cfg, backend.NewHTTPTransport(nil), zap.NewNop())
	assert.Error(t, err)
}

func TestRunServerStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	srv := &http.Server{Addr: addr, Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- runServer(ctx, srv) }()

	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
