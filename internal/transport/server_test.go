package transport

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayguard/relayguard/internal/dsl"
	"github.com/relayguard/relayguard/internal/policy"
	"github.com/relayguard/relayguard/internal/refcache"
	"github.com/relayguard/relayguard/internal/session"
)

type loopbackDialer struct{ conn session.Conn }

func (d loopbackDialer) Dial(ctx context.Context) (session.Conn, error) { return d.conn, nil }

type discardConn struct{ closed chan struct{} }

func (d *discardConn) ReadMessage() ([]byte, error) {
	<-d.closed
	return nil, io.EOF
}
func (d *discardConn) WriteMessage([]byte) error { return nil }
func (d *discardConn) Close() error {
	select {
	case <-d.closed:
	default:
		close(d.closed)
	}
	return nil
}

type noopLogSink struct{}

func (noopLogSink) PushRejection(ctx context.Context, rec session.RejectionRecord)   {}
func (noopLogSink) PushConnection(ctx context.Context, rec session.ConnectionRecord) {}

type staticRuleSet []policy.Rule

func (r staticRuleSet) ActiveRules() []policy.Rule { return r }

func TestServerUpgradesAndRunsSession(t *testing.T) {
	store := policy.NewStore()
	store.Swap(&policy.Lists{
		BannedIPs: map[string]bool{}, WhitelistIPs: map[string]bool{}, BannedNpubs: map[string]bool{},
		Safelist: map[string]policy.SafelistEntry{"": {PostAllowed: true}},
	})
	refs := refcache.New(10, time.Minute)
	res, err := dsl.ValidateQuery(`kind == 1`)
	require.Nil(t, err)
	pipeline := policy.NewPipeline(store, staticRuleSet{{ID: 1, Node: res.Compiled}}, refs)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv := NewServer(func(client session.Conn, remoteIP string) *session.Session {
		upstream := &discardConn{closed: make(chan struct{})}
		return session.New(client, loopbackDialer{conn: upstream}, pipeline, refs, noopLogSink{}, remoteIP, nil)
	}, logger)

	ts := httptest.NewServer(srv)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	c, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.WriteMessage(websocket.TextMessage,
		[]byte(`["EVENT", {"id":"e1","pubkey":"deadbeef","kind":1,"created_at":1,"tags":[],"content":"hi","sig":"x"}]`)))

	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := c.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), `"OK"`)
}
