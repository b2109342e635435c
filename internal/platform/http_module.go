package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// HTTPModule serves a handler on Addr for as long as the polis is started.
type HTTPModule struct {
	ModuleName string
	Addr       string
	Handler    http.Handler
	Logger     *slog.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

func (m *HTTPModule) Name() string { return m.ModuleName }

func (m *HTTPModule) Start(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.server != nil {
		return nil
	}
	ln, err := net.Listen("tcp", m.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", m.Addr, err)
	}
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	srv := &http.Server{Handler: m.Handler, ReadHeaderTimeout: 5 * time.Second}
	m.server, m.listener = srv, ln
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http module stopped", slog.String("module", m.ModuleName), slog.Any("error", err))
		}
	}()
	logger.Info("http module listening", slog.String("module", m.ModuleName), slog.String("addr", ln.Addr().String()))
	return nil
}

func (m *HTTPModule) Stop(ctx context.Context) error {
	m.mu.Lock()
	srv := m.server
	m.server, m.listener = nil, nil
	m.mu.Unlock()
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// ListenAddr is the bound address while started, useful with ":0".
func (m *HTTPModule) ListenAddr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listener == nil {
		return ""
	}
	return m.listener.Addr().String()
}
