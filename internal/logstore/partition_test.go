package logstore

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/aboosoyeed/flyq/internal/codec"
	"github.com/stretchr/testify/require"
)

func TestPartitionAppendAndRead(t *testing.T) {
	dir := t.TempDir()
	p, err := OpenPartition(dir, 0, 1024)
	require.NoError(t, err)

	rec := codec.Record{Key: []byte("k"), Value: []byte("v"), Timestamp: 1}
	offset, err := p.Append(rec)
	require.NoError(t, err)

	got, gotOffset, found, err := p.ReadOne(offset)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, offset, gotOffset)
	require.Equal(t, rec.Value, got.Value)
}

func TestPartitionSegmentRotationOnAppend(t *testing.T) {
	dir := t.TempDir()
	p, err := OpenPartition(dir, 0, 50)
	require.NoError(t, err)

	const msgCount = 10
	var offsets []uint64
	for i := 0; i < msgCount; i++ {
		rec := codec.Record{
			Key:       []byte(fmt.Sprintf("key-%d", i)),
			Value:     []byte(fmt.Sprintf("value-%d", i)),
			Timestamp: uint64(1000 + i),
		}
		offset, err := p.Append(rec)
		require.NoError(t, err)
		offsets = append(offsets, offset)
	}

	it, err := p.StreamFromOffset(offsets[0])
	require.NoError(t, err)
	defer it.Close()

	var i int
	for {
		_, rec, err := it.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("value-%d", i), string(rec.Value))
		i++
	}
	require.Equal(t, msgCount, i)
	require.Greater(t, len(p.segments), 1, "expected segment rotation to occur")
}

func TestPartitionRetentionNeverEvictsActiveSegment(t *testing.T) {
	dir := t.TempDir()
	p, err := OpenPartition(dir, 0, 50)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		rec := codec.Record{Value: []byte(fmt.Sprintf("payload-%d", i)), Timestamp: uint64(i)}
		_, err := p.Append(rec)
		require.NoError(t, err)
	}
	before := p.SegmentCount()
	require.Greater(t, before, 1)

	// Immediate retention window: everything old enough to evict except the
	// still-open active segment.
	evicted, err := p.MaybeCleanup(time.Nanosecond, nil, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, before-1, evicted)

	after := p.SegmentCount()
	require.Equal(t, 1, after, "only the active segment should survive")
	require.NotNil(t, p.LastCleanup())
}

func TestPartitionPersistMetaRoundTrips(t *testing.T) {
	dir := t.TempDir()
	p, err := OpenPartition(dir, 0, 1024)
	require.NoError(t, err)

	_, err = p.Append(codec.Record{Value: []byte("v")})
	require.NoError(t, err)
	require.NoError(t, p.PersistMeta())

	reopened, err := OpenPartition(dir, 0, 1024)
	require.NoError(t, err)
	_, high, logEnd := reopened.Watermark()
	require.Equal(t, uint64(0), high)
	require.Equal(t, uint64(1), logEnd)
}
