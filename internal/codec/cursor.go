package codec

import (
	"encoding/binary"
	"unicode/utf8"
)

// cursor walks a byte slice field by field, the way the original
// implementation's read_bytes helper shrinks a &[u8] as it parses. It never
// copies; callers that need to retain a slice beyond the cursor's lifetime
// must copy it themselves.
type cursor struct {
	buf []byte
}

func newCursor(buf []byte) *cursor {
	return &cursor{buf: buf}
}

func (c *cursor) take(n int) ([]byte, error) {
	if len(c.buf) < n {
		return nil, ErrUnexpectedEOF
	}
	head := c.buf[:n]
	c.buf = c.buf[n:]
	return head, nil
}

func (c *cursor) u32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (c *cursor) u64() (uint64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (c *cursor) u8() (uint8, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// bytesField reads a u32 length prefix followed by that many raw bytes,
// copying them out so the result survives independent of the source buffer.
func (c *cursor) bytesField() ([]byte, error) {
	n, err := c.u32()
	if err != nil {
		return nil, err
	}
	raw, err := c.take(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

// stringField reads a u32 length prefix followed by that many UTF-8 bytes.
func (c *cursor) stringField() (string, error) {
	raw, err := c.bytesField()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", ErrInvalidUTF8
	}
	return string(raw), nil
}

func (c *cursor) remaining() []byte {
	return c.buf
}

func putU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func putU64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func putString(buf []byte, s string) []byte {
	buf = putU32(buf, uint32(len(s)))
	return append(buf, s...)
}

func putBytesField(buf []byte, b []byte) []byte {
	buf = putU32(buf, uint32(len(b)))
	return append(buf, b...)
}
