// Package codec implements FlyQ's on-disk record format and wire protocol:
// frame envelopes, request/response payloads, and the per-opcode message
// shapes described in the protocol section of the design doc.
package codec

import "errors"

var (
	// ErrUnexpectedEOF is returned when a buffer runs out of bytes mid-field.
	ErrUnexpectedEOF = errors.New("codec: unexpected end of input")

	// ErrInvalidUTF8 is returned when a header name or topic/group string
	// fails UTF-8 validation. Record values and keys are never validated.
	ErrInvalidUTF8 = errors.New("codec: invalid utf-8")

	// ErrInvalidFormat wraps a malformed field that isn't a short read.
	ErrInvalidFormat = errors.New("codec: invalid format")

	// ErrChecksumMismatch is returned by DecodeFrame when the payload's
	// checksum does not match the checksum carried in the frame header.
	ErrChecksumMismatch = errors.New("codec: checksum mismatch")

	// ErrUnknownFrameType is returned for a frame_type byte outside 1-4.
	ErrUnknownFrameType = errors.New("codec: unknown frame type")

	// ErrUnknownOpCode is returned for an opcode byte this broker doesn't
	// implement.
	ErrUnknownOpCode = errors.New("codec: unknown opcode")

	// ErrEmptyPayload is returned when a request/response payload is too
	// short to contain even the leading opcode byte.
	ErrEmptyPayload = errors.New("codec: empty payload")
)
