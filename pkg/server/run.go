package server

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Run starts the listeners and blocks until a shutdown signal.
func (s *Server) Run() error {
	if s.creds == nil {
		return fmt.Errorf("server: missing credential store dependency")
	}
	slog.Info("credentials loaded", "users", s.creds.Count())

	if err := s.StartTCP(); err != nil {
		return err
	}
	if err := s.StartWS(); err != nil {
		return err
	}
	s.StartMetricsHTTP()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down...")
	s.Shutdown()
	return nil
}

// Shutdown stops accepting new connections and closes the listeners.
// Active sessions end when their transports close.
func (s *Server) Shutdown() {
	s.cancel()
	if s.ln != nil {
		_ = s.ln.Close()
	}
	if s.wsServer != nil {
		_ = s.wsServer.Close()
	}
	if s.metricsServer != nil {
		_ = s.metricsServer.Close()
	}
}

// StartMetricsHTTP starts a lightweight HTTP server exposing /metrics
// (Prometheus) and /healthz. Disabled when no MetricsAddr is
// configured.
func (s *Server) StartMetricsHTTP() {
	addr := s.cfg.MetricsAddr
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.metricsServer = srv

	go func() {
		slog.Info("metrics HTTP listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics HTTP error", "err", err)
		}
	}()
}

// listenForHTTP binds an HTTP server's address eagerly so bind errors
// surface at startup instead of inside the serving goroutine.
func listenForHTTP(srv *http.Server) (net.Listener, error) {
	return net.Listen("tcp", srv.Addr)
}
