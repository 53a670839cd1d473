// Package upstream establishes and owns the one outbound relay
// connection each session forwards through (§4.9). Reconnection is
// deliberately not transparent: a drop ends the session.
package upstream

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/relayguard/relayguard/internal/session"
)

// RelayList is the configured, ordered set of candidate relay URLs; only
// the first enabled entry is dialed, per §4.9.
type RelayList struct {
	URLs []string
}

// FirstEnabled returns the first configured relay URL.
func (r RelayList) FirstEnabled() (string, error) {
	if len(r.URLs) == 0 {
		return "", fmt.Errorf("upstream: no relay URLs configured")
	}
	return r.URLs[0], nil
}

// Dialer dials the first enabled relay with gorilla/websocket and adapts
// the resulting connection to session.Conn.
type Dialer struct {
	Relays RelayList
}

// Dial implements session.Dialer.
func (d Dialer) Dial(ctx context.Context) (session.Conn, error) {
	url, err := d.Relays.FirstEnabled()
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("upstream: dial %s: %w", url, err)
	}
	return &link{conn: conn}, nil
}

// link adapts a *websocket.Conn to the session.Conn interface. Writes
// may block on the upstream socket's buffer, which is acceptable per the
// concurrency model — the session must never block on logging or admin
// I/O, but blocking on its own upstream write is the natural backpressure
// point.
type link struct {
	conn *websocket.Conn
}

func (l *link) ReadMessage() ([]byte, error) {
	_, data, err := l.conn.ReadMessage()
	return data, err
}

func (l *link) WriteMessage(data []byte) error {
	return l.conn.WriteMessage(websocket.TextMessage, data)
}

func (l *link) Close() error {
	return l.conn.Close()
}
