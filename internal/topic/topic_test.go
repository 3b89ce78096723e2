package topic

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aboosoyeed/flyq/internal/codec"
)

func TestProduceRoundRobinWithoutKey(t *testing.T) {
	tp, err := New(t.TempDir(), "events", 3, 1<<20)
	require.NoError(t, err)

	seen := make(map[uint32]int)
	for i := 0; i < 9; i++ {
		partition, _, err := tp.Produce(codec.Record{Value: []byte("v")})
		require.NoError(t, err)
		seen[partition]++
	}
	require.Equal(t, 3, len(seen))
	for _, count := range seen {
		require.Equal(t, 3, count)
	}
}

func TestProduceSameKeyAlwaysSamePartition(t *testing.T) {
	tp, err := New(t.TempDir(), "events", 4, 1<<20)
	require.NoError(t, err)

	first, _, err := tp.Produce(codec.Record{Key: []byte("user-42"), Value: []byte("a")})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		partition, _, err := tp.Produce(codec.Record{Key: []byte("user-42"), Value: []byte("b")})
		require.NoError(t, err)
		require.Equal(t, first, partition)
	}
}

func TestScanExistingRecoversPartitions(t *testing.T) {
	base := t.TempDir()
	tp, err := New(base, "orders", 2, 1<<20)
	require.NoError(t, err)

	partition, offset, err := tp.Produce(codec.Record{Key: []byte("k"), Value: []byte("v")})
	require.NoError(t, err)

	recovered, err := ScanExisting(tp.dir, 1<<20)
	require.NoError(t, err)
	require.NotNil(t, recovered)
	require.Equal(t, "orders", recovered.Name)

	p, ok := recovered.Partition(partition)
	require.True(t, ok)
	_, recOffset, found, err := p.ReadOne(offset)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, offset, recOffset)
}

func TestScanExistingRejectsNonTopicDir(t *testing.T) {
	recovered, err := ScanExisting(t.TempDir(), 1<<20)
	require.NoError(t, err)
	require.Nil(t, recovered)
}
