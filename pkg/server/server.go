// Package server implements the confab chat server: per-connection
// session workers over two lock-guarded registries (connected clients,
// group membership) and a stateless message router.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/marcwhitt/confab/pkg/credentials"
	"github.com/marcwhitt/confab/pkg/model"
)

// Dependencies holds external collaborators for the server.
type Dependencies struct {
	Creds credentials.Store
}

// Server is the confab chat server.
type Server struct {
	cfg     Config
	creds   credentials.Store
	clients *ClientRegistry
	groups  *GroupRegistry
	router  *MessageRouter
	metrics *Metrics

	ln            net.Listener
	wsServer      *http.Server
	metricsServer *http.Server

	nextID atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Server instance.
func New(cfg Config, deps Dependencies) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	metrics := NewMetrics()
	clients := NewClientRegistry()
	groups := NewGroupRegistry()
	return &Server{
		cfg:     cfg,
		creds:   deps.Creds,
		clients: clients,
		groups:  groups,
		router:  NewMessageRouter(clients, groups, metrics),
		metrics: metrics,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Clients returns the client registry.
func (s *Server) Clients() *ClientRegistry {
	return s.clients
}

// Groups returns the group registry.
func (s *Server) Groups() *GroupRegistry {
	return s.groups
}

// Metrics returns the server metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// StartTCP starts the TCP listener and its accept loop.
func (s *Server) StartTCP() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	s.ln = ln
	slog.Info("chat server listening", "addr", s.cfg.ListenAddr)

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
					slog.Error("accept error", "err", err)
					continue
				}
			}
			go s.runSession(newTCPPeer(conn))
		}
	}()

	return nil
}

// runSession assigns a session id and drives the connection to
// completion. One goroutine per connection; the worker owns cleanup on
// every exit path.
func (s *Server) runSession(peer Peer) {
	id := model.SessionID(s.nextID.Add(1))
	s.metrics.ConnectionsTotal.Inc()
	slog.Debug("new connection", "session", id, "remote", peer.RemoteAddr())

	newSessionWorker(id, peer, s).Run()
}
