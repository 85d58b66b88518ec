package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsPeer adapts a WebSocket connection to the Peer interface: each text
// message is one protocol line in either direction, so browser clients
// speak the same command grammar as raw TCP ones.
type wsPeer struct {
	conn *websocket.Conn

	wmu sync.Mutex
}

func newWSPeer(conn *websocket.Conn) *wsPeer {
	conn.SetReadLimit(maxLineBytes)
	return &wsPeer{conn: conn}
}

func (p *wsPeer) ReadLine() (string, error) {
	for {
		msgType, data, err := p.conn.ReadMessage()
		if err != nil {
			return "", err
		}
		if msgType != websocket.TextMessage {
			continue
		}
		return string(data), nil
	}
}

func (p *wsPeer) WriteLine(text string) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	return p.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

func (p *wsPeer) Close() error {
	return p.conn.Close()
}

func (p *wsPeer) RemoteAddr() string {
	return p.conn.RemoteAddr().String()
}

// StartWS starts the optional WebSocket listener on cfg.WSAddr. The
// endpoint is /ws; upgraded connections run the same session worker as
// TCP connections.
func (s *Server) StartWS() error {
	if s.cfg.WSAddr == "" {
		return nil
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// Authentication happens in-protocol; the endpoint itself is as
		// open as the TCP listener.
		CheckOrigin: func(*http.Request) bool { return true },
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
			return
		}
		go s.runSession(newWSPeer(conn))
	})

	srv := &http.Server{
		Addr:              s.cfg.WSAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.wsServer = srv

	ln, err := listenForHTTP(srv)
	if err != nil {
		return fmt.Errorf("server: listen websocket: %w", err)
	}
	slog.Info("websocket listening", "addr", s.cfg.WSAddr)

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("websocket server error", "err", err)
		}
	}()

	return nil
}
