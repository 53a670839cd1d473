// Package transport accepts client-facing WebSocket connections and
// hands each one to a fresh session, the same upgrade-then-hand-off shape
// as a broadcast hub's connection handler, but one session per
// connection instead of a shared registry.
package transport

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/relayguard/relayguard/internal/session"
)

// conn adapts a *websocket.Conn to session.Conn.
type conn struct {
	ws *websocket.Conn
}

func (c *conn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

func (c *conn) WriteMessage(data []byte) error {
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *conn) Close() error {
	return c.ws.Close()
}

// SessionFactory builds a new session for an accepted client connection.
type SessionFactory func(client session.Conn, remoteIP string) *session.Session

// Server upgrades inbound HTTP connections to WebSocket and runs one
// session per connection until it closes.
type Server struct {
	upgrader websocket.Upgrader
	newSess  SessionFactory
	logger   *slog.Logger
}

// NewServer builds the relay-facing WebSocket endpoint.
func NewServer(newSess SessionFactory, logger *slog.Logger) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		newSess: newSess,
		logger:  logger,
	}
}

// ServeHTTP upgrades the connection and runs its session to completion.
// The session runs under the request context and checks it between
// client frames; the session ends when the client connection closes.
func (srv *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := srv.upgrader.Upgrade(w, r, nil)
	if err != nil {
		srv.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	remoteIP := remoteIP(r)
	sess := srv.newSess(&conn{ws: ws}, remoteIP)
	if err := sess.Run(r.Context()); err != nil {
		srv.logger.Info("session ended", "remote_ip", remoteIP, "error", err)
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
