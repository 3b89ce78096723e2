package logstore

import (
	"io"
	"os"
	"testing"

	"github.com/aboosoyeed/flyq/internal/codec"
	"github.com/stretchr/testify/require"
)

func TestSegmentReadWithoutIndexFile(t *testing.T) {
	dir := t.TempDir()
	seg, err := newSegment(dir, 0)
	require.NoError(t, err)

	for i := uint64(0); i < 3; i++ {
		rec := codec.Record{Key: []byte("key"), Value: []byte("val"), Timestamp: 1000 + i}
		require.NoError(t, seg.append(i, codec.EncodeForLog(i, rec)))
	}
	require.NoError(t, seg.close())

	require.NoError(t, os.Remove(seg.indexPath))

	recovered, _, err := recoverSegment(dir, segmentFilename(0))
	require.NoError(t, err)

	it, err := recovered.streamFromOffset(1)
	require.NoError(t, err)
	defer it.close()

	offset, rec, err := it.next()
	require.NoError(t, err)
	require.Equal(t, uint64(1), offset)
	require.Equal(t, []byte("val"), rec.Value)
}

func TestSegmentSparseIndexReadAll(t *testing.T) {
	dir := t.TempDir()
	seg, err := newSegment(dir, 0)
	require.NoError(t, err)
	seg.indexInterval = 3
	seg.indexCounter = 3

	for i := uint64(0); i < 5; i++ {
		rec := codec.Record{Key: []byte("k"), Value: []byte{byte('0' + i)}, Timestamp: 1000 + i}
		require.NoError(t, seg.append(i, codec.EncodeForLog(i, rec)))
	}
	require.NoError(t, seg.indexFile.Sync())
	require.NoError(t, seg.close())

	recovered, _, err := recoverSegment(dir, segmentFilename(0))
	require.NoError(t, err)

	it, err := recovered.streamFromOffset(0)
	require.NoError(t, err)
	defer it.close()

	var values []byte
	for {
		_, rec, err := it.next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		values = append(values, rec.Value...)
	}
	require.Equal(t, []byte("01234"), values)
}
