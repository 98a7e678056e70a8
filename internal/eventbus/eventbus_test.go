package eventbus

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/annel0/navgrid/internal/logging"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope(t *testing.T) {
	ev := NewEnvelope("test", "PlacementSpawn", []byte(`{}`))

	_, err := uuid.Parse(ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "test", ev.Source)
	assert.Equal(t, "PlacementSpawn", ev.EventType)
	assert.Equal(t, 1, ev.Version)
	assert.Equal(t, time.UTC, ev.Timestamp.Location())
	assert.NotEqual(t, ev.ID, NewEnvelope("test", "PlacementSpawn", nil).ID)
}

func TestMemoryBus_FilterByType(t *testing.T) {
	bus := NewMemoryBus(16)

	var spawns, all atomic.Int32
	_, err := bus.Subscribe(context.Background(), Filter{Types: []string{"PlacementSpawn"}}, func(ctx context.Context, ev *Envelope) {
		spawns.Add(1)
	})
	require.NoError(t, err)
	_, err = bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		all.Add(1)
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), NewEnvelope("test", "PlacementSpawn", nil)))
	require.NoError(t, bus.Publish(context.Background(), NewEnvelope("test", "PlacementMove", nil)))

	assert.Eventually(t, func() bool {
		return spawns.Load() == 1 && all.Load() == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(2), bus.Metrics().Published)
}

func TestMemoryBus_Unsubscribe(t *testing.T) {
	bus := NewMemoryBus(4)

	var got atomic.Int32
	sub, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		got.Add(1)
	})
	require.NoError(t, err)
	sub.Unsubscribe()

	require.NoError(t, bus.Publish(context.Background(), NewEnvelope("test", "PlacementMove", nil)))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), got.Load())
}

func TestGlobalPublishWithoutBus(t *testing.T) {
	Init(nil)
	assert.Nil(t, Global())
	assert.NoError(t, Publish(context.Background(), NewEnvelope("test", "PlacementMove", nil)))
	assert.NoError(t, Close())
}

func TestMetricsExporter_CollectDeltas(t *testing.T) {
	bus := NewMemoryBus(16)
	reg := prometheus.NewRegistry()
	me := NewMetricsExporter(bus, reg)

	require.NoError(t, bus.Publish(context.Background(), NewEnvelope("test", "A", nil)))
	require.NoError(t, bus.Publish(context.Background(), NewEnvelope("test", "B", nil)))
	me.Collect()
	me.Collect()

	assert.Equal(t, 2.0, testutil.ToFloat64(me.published))
}

func TestMemoryBus_PreservesOrderPerSubscriber(t *testing.T) {
	bus := NewMemoryBus(64)

	var (
		mu  sync.Mutex
		got []string
	)
	_, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		mu.Lock()
		got = append(got, ev.EventType)
		mu.Unlock()
	})
	require.NoError(t, err)

	want := []string{"PlacementSpawn", "PlacementMove", "PlacementMove", "PlacementDespawn"}
	for _, typ := range want {
		ev := NewEnvelope("test", typ, nil)
		ev.Priority = PriorityHigh
		require.NoError(t, bus.Publish(context.Background(), ev))
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == len(want)
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Equal(t, want, got, "Обработчик получает события в порядке публикации")
	mu.Unlock()
}

func TestMemoryBus_Close(t *testing.T) {
	bus := NewMemoryBus(4)
	_, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {})
	require.NoError(t, err)

	closer, ok := bus.(Closer)
	require.True(t, ok, "MemoryBus закрывается через Closer")
	require.NoError(t, closer.Close())
	require.NoError(t, closer.Close())

	assert.ErrorIs(t, bus.Publish(context.Background(), NewEnvelope("test", "A", nil)), ErrBusClosed)
	_, err = bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {})
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestMemoryBus_DropsLowPriorityWhenFull(t *testing.T) {
	bus := NewMemoryBus(1)
	block := make(chan struct{})
	defer close(block)
	_, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		<-block
	})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, bus.Publish(context.Background(), NewEnvelope("test", "Noise", nil)))
	}
	assert.Eventually(t, func() bool { return bus.Metrics().Dropped > 0 }, time.Second, 5*time.Millisecond)
}

// syncBuffer буфер, безопасный для записи из обработчика шины
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestLoggingListener_PlacementFields(t *testing.T) {
	bus := NewMemoryBus(8)
	defer bus.(Closer).Close()

	var out syncBuffer
	sub, err := StartLoggingListener(context.Background(), bus, logging.NewConsoleLogger("events", &out, logging.DEBUG), "PlacementSpawn")
	require.NoError(t, err)
	defer sub.Unsubscribe()

	payload := []byte(`{"entity_type":"tree","random":true,"region":{"x":1,"y":-2},"ground":["sand"],"note":"x"}`)
	require.NoError(t, bus.Publish(context.Background(), NewEnvelope("rest_api", "PlacementSpawn", payload)))
	require.NoError(t, bus.Publish(context.Background(), NewEnvelope("rest_api", "ChatEvent", payload)))

	assert.Eventually(t, func() bool { return strings.Contains(out.String(), "PlacementSpawn") }, time.Second, 5*time.Millisecond)
	line := out.String()
	assert.Contains(t, line, `entity_type="tree" region={"x":1,"y":-2} random=true ground=["sand"] extra=note`)
	assert.NotContains(t, line, "ChatEvent")
}

func TestDescribePayload(t *testing.T) {
	assert.Equal(t, "size=3B", describePayload([]byte("abc")))
	assert.Equal(t, "size=0B", describePayload(nil))
	assert.Equal(t, "{}", describePayload([]byte("{}")))
	assert.Equal(t, "entity_id=7 x=1.5", describePayload([]byte(`{"x":1.5,"entity_id":7}`)))
}
