package engine

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aboosoyeed/flyq/internal/codec"
)

func newTestEngine(t *testing.T, autoCreate bool) *Engine {
	t.Helper()
	eng, err := Load(t.TempDir(), 1<<20, autoCreate, zap.NewNop(), NewMetrics(prometheus.NewRegistry()))
	require.NoError(t, err)
	return eng
}

func TestProduceAutoCreatesTopic(t *testing.T) {
	eng := newTestEngine(t, true)

	partition, offset, err := eng.Produce("events", codec.Record{Value: []byte("hi")})
	require.NoError(t, err)
	require.Equal(t, uint64(0), offset)

	rec, recOffset, found, err := eng.Consume("events", partition, 0)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(0), recOffset)
	require.Equal(t, []byte("hi"), rec.Value)
}

func TestProduceWithoutAutoCreateFails(t *testing.T) {
	eng := newTestEngine(t, false)
	_, _, err := eng.Produce("missing", codec.Record{Value: []byte("x")})
	require.ErrorIs(t, err, ErrNoTopic)
}

func TestConsumeWithGroupDoesNotAutoAdvance(t *testing.T) {
	eng := newTestEngine(t, true)
	_, err := eng.CreateTopic("orders", 1)
	require.NoError(t, err)

	_, _, err = eng.Produce("orders", codec.Record{Value: []byte("first")})
	require.NoError(t, err)
	_, _, err = eng.Produce("orders", codec.Record{Value: []byte("second")})
	require.NoError(t, err)

	rec, offset, found, err := eng.ConsumeWithGroup("orders", 0, "workers")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(0), offset)
	require.Equal(t, []byte("first"), rec.Value)

	rec, offset, found, err = eng.ConsumeWithGroup("orders", 0, "workers")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(0), offset, "offset should not have advanced without an explicit commit")
	require.Equal(t, []byte("first"), rec.Value)

	require.NoError(t, eng.CommitOffset("orders", 0, "workers", offset+1))
	rec, offset, found, err = eng.ConsumeWithGroup("orders", 0, "workers")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(1), offset)
	require.Equal(t, []byte("second"), rec.Value)
}

func TestConsumerLagReflectsUncommittedRecords(t *testing.T) {
	eng := newTestEngine(t, true)
	_, err := eng.CreateTopic("orders", 1)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, _, err := eng.Produce("orders", codec.Record{Value: []byte("x")})
		require.NoError(t, err)
	}

	total, breakdown, err := eng.ConsumerLag("workers", []string{"orders"})
	require.NoError(t, err)
	require.Equal(t, uint64(2), total) // high watermark is the last offset written, not a count of records
	require.Len(t, breakdown, 1)
	require.Equal(t, uint64(0), breakdown[0].Committed)
	require.Equal(t, uint64(2), breakdown[0].High)

	require.NoError(t, eng.CommitOffset("orders", 0, "workers", 2))
	total, _, err = eng.ConsumerLag("workers", []string{"orders"})
	require.NoError(t, err)
	require.Equal(t, uint64(0), total)
}

func TestGetPartitionHealthReportsWatermarks(t *testing.T) {
	eng := newTestEngine(t, true)
	_, _, err := eng.Produce("events", codec.Record{Value: []byte("a")})
	require.NoError(t, err)

	health, err := eng.GetPartitionHealth("events", 0)
	require.NoError(t, err)
	require.Equal(t, uint32(1), health.SegmentCount)
	require.Equal(t, uint64(0), health.High) // high watermark is the last offset written, not a count
	require.Equal(t, uint64(1), health.LogEnd)
	require.Nil(t, health.LastCleanup)
}
