// Package logsink adapts the session's fire-and-forget rejection and
// connection records onto a bounded queue drained into a Redis stream
// (§6 log sink contract, §5 "log enqueue is best-effort only").
package logsink

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/relayguard/relayguard/internal/session"
)

const (
	rejectionStream  = "relayguard:rejections"
	connectionStream = "relayguard:connections"
)

// DroppedTotal counts records dropped because the queue was full,
// surfaced in metrics per §5.
var DroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "relayguard_log_queue_dropped_total",
	Help: "Records dropped because the log queue was full.",
})

type record struct {
	stream string
	fields map[string]interface{}
}

// Sink is a bounded-channel queue drained by a single background worker
// into Redis. A full queue drops the newest record rather than blocking
// the session that tried to enqueue it.
type Sink struct {
	rdb    *redis.Client
	logger *slog.Logger
	queue  chan record
	done   chan struct{}
}

// New connects to redisURL and starts the drain worker. capacity bounds
// the in-memory queue; it should match LOG_QUEUE_CAPACITY.
func New(redisURL string, capacity int, logger *slog.Logger) (*Sink, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	s := &Sink{
		rdb:    redis.NewClient(opt),
		logger: logger,
		queue:  make(chan record, capacity),
		done:   make(chan struct{}),
	}
	go s.drain()
	return s, nil
}

// PushRejection implements session.LogSink.
func (s *Sink) PushRejection(ctx context.Context, rec session.RejectionRecord) {
	s.enqueue(record{
		stream: rejectionStream,
		fields: map[string]interface{}{
			"session_id": rec.SessionID,
			"event_id":   rec.EventID,
			"pubkey_hex": rec.PubkeyHex,
			"npub":       rec.Npub,
			"ip":         rec.IP,
			"kind":       rec.Kind,
			"reason":     string(rec.Reason),
			"at":         rec.At.Unix(),
		},
	})
}

// PushConnection implements session.LogSink.
func (s *Sink) PushConnection(ctx context.Context, rec session.ConnectionRecord) {
	s.enqueue(record{
		stream: connectionStream,
		fields: map[string]interface{}{
			"session_id":      rec.SessionID,
			"ip":              rec.IP,
			"connected_at":    rec.ConnectedAt.Unix(),
			"disconnected_at": rec.DisconnectedAt.Unix(),
			"event_count":     rec.EventCount,
			"rejected_count":  rec.RejectedCount,
		},
	})
}

func (s *Sink) enqueue(r record) {
	select {
	case s.queue <- r:
	default:
		DroppedTotal.Inc()
		s.logger.Warn("log queue full, dropping record", "stream", r.stream)
	}
}

func (s *Sink) drain() {
	for {
		select {
		case r, ok := <-s.queue:
			if !ok {
				return
			}
			s.write(r)
		case <-s.done:
			return
		}
	}
}

func (s *Sink) write(r record) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.rdb.XAdd(ctx, &redis.XAddArgs{Stream: r.stream, Values: r.fields}).Err(); err != nil {
		s.logger.Warn("failed to write log record to redis", "stream", r.stream, "error", err)
	}
}

// Close stops the drain worker and closes the Redis client.
func (s *Sink) Close() error {
	close(s.done)
	return s.rdb.Close()
}
