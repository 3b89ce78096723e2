package codec

import (
	"github.com/cespare/xxhash/v2"
)

// FrameType identifies what a Frame carries.
type FrameType uint8

const (
	FrameRequest   FrameType = 1
	FrameResponse  FrameType = 2
	FrameError     FrameType = 3
	FrameHeartbeat FrameType = 4
)

func (t FrameType) valid() bool {
	switch t {
	case FrameRequest, FrameResponse, FrameError, FrameHeartbeat:
		return true
	default:
		return false
	}
}

// fixedHeaderSize is version(1) + frame_type(1) + correlation_id(4) +
// payload_len(4) — the prefix a decoder needs before it even knows how
// many payload bytes to wait for.
const fixedHeaderSize = 10

// frameHeaderSize is fixedHeaderSize plus the trailing checksum(4).
const frameHeaderSize = fixedHeaderSize + 4

// ProtocolVersion is the only frame version this broker speaks.
const ProtocolVersion uint8 = 1

// Frame is the outermost wire envelope every request and response travels
// in. See the protocol section of the design doc for the exact byte layout.
type Frame struct {
	Version       uint8
	Type          FrameType
	CorrelationID uint32
	Payload       []byte
}

// checksum hashes a payload the way every frame on the wire is checksummed.
// No 32-bit xxhash implementation is available anywhere in the dependency
// set this broker is built from, so the 64-bit digest is truncated; see
// DESIGN.md for the reasoning.
func checksum(payload []byte) uint32 {
	return uint32(xxhash.Sum64(payload))
}

// Encode appends the wire representation of f to buf and returns the result.
func (f Frame) Encode(buf []byte) []byte {
	buf = append(buf, f.Version, uint8(f.Type))
	buf = putU32(buf, f.CorrelationID)
	buf = putU32(buf, uint32(len(f.Payload)))
	buf = putU32(buf, checksum(f.Payload))
	buf = append(buf, f.Payload...)
	return buf
}

// DecodeFrame attempts to parse one frame from the front of buf.
//
// A nil frame with a nil error means the buffer doesn't yet hold a complete
// frame; the caller should read more and try again without having consumed
// anything. consumed reports how many leading bytes of buf made up the
// decoded frame so the caller can advance its read buffer.
func DecodeFrame(buf []byte) (frame *Frame, consumed int, err error) {
	if len(buf) < fixedHeaderSize {
		return nil, 0, nil
	}

	version := buf[0]
	rawType := buf[1]
	correlationID := beUint32(buf[2:6])
	payloadLen := int(beUint32(buf[6:10]))

	if len(buf) < frameHeaderSize+payloadLen {
		return nil, 0, nil
	}

	expectedChecksum := beUint32(buf[10:14])

	frameType := FrameType(rawType)
	if !frameType.valid() {
		return nil, 0, ErrUnknownFrameType
	}

	payload := make([]byte, payloadLen)
	copy(payload, buf[frameHeaderSize:frameHeaderSize+payloadLen])

	if actual := checksum(payload); actual != expectedChecksum {
		return nil, 0, ErrChecksumMismatch
	}

	return &Frame{
		Version:       version,
		Type:          frameType,
		CorrelationID: correlationID,
		Payload:       payload,
	}, frameHeaderSize + payloadLen, nil
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
