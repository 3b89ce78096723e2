package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordBodyRoundTrip(t *testing.T) {
	rec := Record{
		Key:       []byte("k1"),
		Value:     []byte("payload"),
		Timestamp: 1234567890,
		Headers:   []Header{{Name: "trace-id", Value: []byte("abc")}},
	}
	buf := EncodeBody(7, rec)

	offset, decoded, err := DecodeBody(buf)
	require.NoError(t, err)
	require.Equal(t, uint64(7), offset)
	require.Equal(t, rec.Key, decoded.Key)
	require.Equal(t, rec.Value, decoded.Value)
	require.Equal(t, rec.Timestamp, decoded.Timestamp)
	require.Equal(t, rec.Headers, decoded.Headers)
}

func TestRecordBodyNoKeyNoHeaders(t *testing.T) {
	rec := Record{Value: []byte("v")}
	buf := EncodeBody(0, rec)

	offset, decoded, err := DecodeBody(buf)
	require.NoError(t, err)
	require.Equal(t, uint64(0), offset)
	require.Nil(t, decoded.Key)
	require.Nil(t, decoded.Headers)
	require.Equal(t, []byte("v"), decoded.Value)
}

func TestEncodeForLogPrependsLengthPrefix(t *testing.T) {
	rec := Record{Value: []byte("v")}
	body := EncodeBody(3, rec)
	logEntry := EncodeForLog(3, rec)

	require.Len(t, logEntry, 4+len(body))

	c := newCursor(logEntry)
	n, err := c.u32()
	require.NoError(t, err)
	require.Equal(t, uint32(len(body)), n)
	require.Equal(t, body, c.remaining())
}
