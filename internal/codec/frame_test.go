package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	f := Frame{Version: ProtocolVersion, Type: FrameRequest, CorrelationID: 42, Payload: []byte("hello")}
	buf := f.Encode(nil)

	decoded, consumed, err := DecodeFrame(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), consumed)
	require.Equal(t, f.Version, decoded.Version)
	require.Equal(t, f.Type, decoded.Type)
	require.Equal(t, f.CorrelationID, decoded.CorrelationID)
	require.Equal(t, f.Payload, decoded.Payload)
}

func TestDecodeFrameIncomplete(t *testing.T) {
	f := Frame{Version: ProtocolVersion, Type: FrameResponse, CorrelationID: 1, Payload: []byte("partial")}
	buf := f.Encode(nil)

	decoded, consumed, err := DecodeFrame(buf[:len(buf)-2])
	require.NoError(t, err)
	require.Nil(t, decoded)
	require.Equal(t, 0, consumed)
}

func TestDecodeFrameChecksumMismatch(t *testing.T) {
	f := Frame{Version: ProtocolVersion, Type: FrameRequest, CorrelationID: 1, Payload: []byte("data")}
	buf := f.Encode(nil)
	buf[len(buf)-1] ^= 0xFF // corrupt the last payload byte without touching the header

	_, _, err := DecodeFrame(buf)
	require.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestDecodeFrameUnknownType(t *testing.T) {
	f := Frame{Version: ProtocolVersion, Type: FrameRequest, CorrelationID: 1, Payload: nil}
	buf := f.Encode(nil)
	buf[1] = 0x99 // stomp the frame_type byte with an invalid value

	_, _, err := DecodeFrame(buf)
	require.ErrorIs(t, err, ErrUnknownFrameType)
}

func TestTwoFramesBackToBack(t *testing.T) {
	f1 := Frame{Version: ProtocolVersion, Type: FrameRequest, CorrelationID: 1, Payload: []byte("a")}
	f2 := Frame{Version: ProtocolVersion, Type: FrameRequest, CorrelationID: 2, Payload: []byte("bb")}
	buf := f1.Encode(nil)
	buf = f2.Encode(buf)

	first, consumed, err := DecodeFrame(buf)
	require.NoError(t, err)
	require.Equal(t, uint32(1), first.CorrelationID)

	second, _, err := DecodeFrame(buf[consumed:])
	require.NoError(t, err)
	require.Equal(t, uint32(2), second.CorrelationID)
	require.Equal(t, []byte("bb"), second.Payload)
}
