// Package session implements the per-connection state machine: handshake
// with the upstream relay, subscription tracking, policy-gated event
// forwarding, and teardown bookkeeping (§4.7).
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relayguard/relayguard/internal/metrics"
	"github.com/relayguard/relayguard/internal/policy"
	"github.com/relayguard/relayguard/internal/refcache"
	"github.com/relayguard/relayguard/internal/wire"
)

// State is one of the four points in the session lifecycle.
type State int

const (
	Opening State = iota
	Ready
	Draining
	Closed
)

func (s State) String() string {
	switch s {
	case Opening:
		return "opening"
	case Ready:
		return "ready"
	case Draining:
		return "draining"
	default:
		return "closed"
	}
}

// Conn is the minimal surface a client or upstream transport must offer.
// The transport and upstream packages provide gorilla/websocket-backed
// implementations; tests use an in-memory fake.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage([]byte) error
	Close() error
}

// Dialer establishes the per-session upstream connection.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// RejectionRecord is what push_rejection carries (§6).
type RejectionRecord struct {
	SessionID string
	EventID   string
	PubkeyHex string
	Npub      string
	IP        string
	Kind      int64
	Reason    policy.Reason
	At        time.Time
}

// ConnectionRecord is what push_connection carries on teardown (§6).
type ConnectionRecord struct {
	SessionID      string
	IP             string
	ConnectedAt    time.Time
	DisconnectedAt time.Time
	EventCount     int64
	RejectedCount  int64
}

// LogSink is the fire-and-forget log collaborator (§6); internal/logsink
// provides the production adapter.
type LogSink interface {
	PushRejection(ctx context.Context, rec RejectionRecord)
	PushConnection(ctx context.Context, rec ConnectionRecord)
}

// Session owns all per-connection state exclusively for the life of the
// client connection; only the reference cache is shared with other
// sessions, and only by reference.
type Session struct {
	ID               string
	RemoteIP         string
	ReqKindBlacklist map[int64]bool

	pipeline *policy.Pipeline
	refs     *refcache.Cache
	logs     LogSink
	client   Conn
	dial     Dialer

	mu            sync.Mutex
	state         State
	upstream      Conn
	subs          map[string]bool
	eventCount    int64
	rejectedCount int64
	startedAt     time.Time
	endedAt       time.Time
}

// New builds a session in the Opening state. Run must be called to
// establish the upstream link and begin forwarding.
func New(client Conn, dial Dialer, pipeline *policy.Pipeline, refs *refcache.Cache, logs LogSink, remoteIP string, reqKindBlacklist map[int64]bool) *Session {
	return &Session{
		ID:               uuid.NewString(),
		RemoteIP:         remoteIP,
		ReqKindBlacklist: reqKindBlacklist,
		pipeline:         pipeline,
		refs:             refs,
		logs:             logs,
		client:           client,
		dial:             dial,
		state:            Opening,
		subs:             map[string]bool{},
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Run dials upstream, forwards both directions until either side closes
// or the context is cancelled, and emits the connection-log record on
// teardown. It blocks until the session reaches Closed.
func (s *Session) Run(ctx context.Context) error {
	s.startedAt = time.Now()

	upstream, err := s.dial.Dial(ctx)
	if err != nil {
		s.setState(Draining)
		s.finish(ctx)
		s.setState(Closed)
		return fmt.Errorf("session: upstream dial: %w", err)
	}
	s.upstream = upstream
	s.setState(Ready)
	metrics.SessionsActive.Inc()

	upstreamDone := make(chan struct{})
	go func() {
		s.readUpstreamLoop()
		close(upstreamDone)
	}()

	s.readClientLoop(ctx)

	s.setState(Draining)
	s.upstream.Close()
	<-upstreamDone
	metrics.SessionsActive.Dec()

	s.finish(ctx)
	s.setState(Closed)
	return nil
}

func (s *Session) finish(ctx context.Context) {
	s.endedAt = time.Now()
	s.mu.Lock()
	rec := ConnectionRecord{
		SessionID: s.ID, IP: s.RemoteIP, ConnectedAt: s.startedAt, DisconnectedAt: s.endedAt,
		EventCount: s.eventCount, RejectedCount: s.rejectedCount,
	}
	s.mu.Unlock()
	s.logs.PushConnection(ctx, rec)
}

func (s *Session) readClientLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		raw, err := s.client.ReadMessage()
		if err != nil {
			return
		}
		s.handleClientFrame(ctx, raw)
	}
}

func (s *Session) readUpstreamLoop() {
	for {
		raw, err := s.upstream.ReadMessage()
		if err != nil {
			return
		}
		if ev, ok := wire.IsKind1Event(raw); ok {
			s.refs.Insert(ev.ID, ev.CreatedAt)
		}
		if err := s.client.WriteMessage(raw); err != nil {
			return
		}
	}
}

func (s *Session) handleClientFrame(ctx context.Context, raw []byte) {
	frame, err := wire.DecodeClientFrame(raw)
	if err != nil {
		s.client.WriteMessage(wire.EncodeNotice("invalid: " + err.Error()))
		return
	}

	switch frame.Kind {
	case wire.EventFrame:
		s.handleEvent(ctx, frame)
	case wire.ReqFrame:
		s.handleReq(frame)
	case wire.CloseFrame:
		s.mu.Lock()
		delete(s.subs, frame.SubID)
		s.mu.Unlock()
		s.upstream.WriteMessage(frame.Raw)
	default:
		s.upstream.WriteMessage(frame.Raw)
	}
}

func (s *Session) handleEvent(ctx context.Context, frame wire.ClientFrame) {
	ev := *frame.Event
	view := ev.View()

	if refID, ok := view.Tags.First('e'); ok {
		if createdAt, hit := s.refs.Lookup(refID); hit {
			view.ReferencedCreatedAt = createdAt
			view.ReferencedPresent = true
		}
	}

	verdict := s.pipeline.Evaluate(view, s.RemoteIP)
	if !verdict.Accept {
		s.mu.Lock()
		s.rejectedCount++
		s.mu.Unlock()
		metrics.EventsRejected.WithLabelValues(string(verdict.Reason)).Inc()
		s.client.WriteMessage(wire.EncodeOK(ev.ID, false, string(verdict.Reason)))
		s.logs.PushRejection(ctx, RejectionRecord{
			SessionID: s.ID, EventID: ev.ID, PubkeyHex: ev.PubKey, Npub: view.Npub,
			IP: s.RemoteIP, Kind: ev.Kind, Reason: verdict.Reason, At: time.Now(),
		})
		return
	}

	s.mu.Lock()
	s.eventCount++
	s.mu.Unlock()
	metrics.EventsForwarded.Inc()
	s.upstream.WriteMessage(frame.Raw)
}

func (s *Session) handleReq(frame wire.ClientFrame) {
	for _, k := range frame.FilterKinds {
		if s.ReqKindBlacklist[k] {
			s.client.WriteMessage(wire.EncodeClosed(frame.SubID, "blocked: kind not permitted"))
			return
		}
	}
	s.mu.Lock()
	s.subs[frame.SubID] = true
	s.mu.Unlock()
	s.upstream.WriteMessage(frame.Raw)
}

// Counts returns the accepted and rejected event counts so far, for
// tests and metrics.
func (s *Session) Counts() (events, rejected int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eventCount, s.rejectedCount
}
