package logsink

import (
	"io"
	"log/slog"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func droppedCount(t *testing.T) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, DroppedTotal.Write(m))
	return m.GetCounter().GetValue()
}

// TestEnqueueDropsWhenQueueFull exercises the bounded-channel drop path
// directly, without a live Redis connection: the drain worker is never
// started, so the queue fills after its first send.
func TestEnqueueDropsWhenQueueFull(t *testing.T) {
	s := &Sink{logger: testLogger(), queue: make(chan record, 1), done: make(chan struct{})}

	before := droppedCount(t)
	s.enqueue(record{stream: "s", fields: map[string]interface{}{"a": 1}})
	s.enqueue(record{stream: "s", fields: map[string]interface{}{"b": 2}})

	assert.Len(t, s.queue, 1)
	assert.Equal(t, before+1, droppedCount(t))
}
