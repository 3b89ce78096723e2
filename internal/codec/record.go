package codec

// Header is a single (name, value) pair attached to a Record. Names are
// validated as UTF-8 on decode; values are treated as opaque bytes.
type Header struct {
	Name  string
	Value []byte
}

// Record is the logical message a producer writes and a consumer reads
// back. Key is nil when the record was produced without one.
type Record struct {
	Key       []byte
	Value     []byte
	Timestamp uint64
	Headers   []Header
}

// StoredRecord pairs a Record with the absolute partition offset it was
// assigned at append time. It's the unit a segment file holds.
type StoredRecord struct {
	Offset uint64
	Record Record
}

// EncodeBody writes offset, timestamp, key, value and headers in the order
// described by the on-disk record layout, omitting the leading record_len
// prefix. This is exactly what travels on the wire in a Consume/ConsumeWithGroup
// response, and it's also what EncodeForLog wraps with a length prefix.
func EncodeBody(offset uint64, rec Record) []byte {
	size := 8 + 8 + 4 + len(rec.Key) + 4 + len(rec.Value) + 4
	for _, h := range rec.Headers {
		size += 4 + len(h.Name) + 4 + len(h.Value)
	}
	buf := make([]byte, 0, size)
	buf = putU64(buf, offset)
	buf = putU64(buf, rec.Timestamp)
	buf = putBytesField(buf, rec.Key)
	buf = putBytesField(buf, rec.Value)
	buf = putU32(buf, uint32(len(rec.Headers)))
	for _, h := range rec.Headers {
		buf = putString(buf, h.Name)
		buf = putBytesField(buf, h.Value)
	}
	return buf
}

// EncodeForLog prepends the 4-byte record_len prefix that segment files use
// to delimit one record from the next.
func EncodeForLog(offset uint64, rec Record) []byte {
	body := EncodeBody(offset, rec)
	out := make([]byte, 0, 4+len(body))
	out = putU32(out, uint32(len(body)))
	out = append(out, body...)
	return out
}

// DecodeBody parses a record body (no length prefix) as produced by
// EncodeBody. keyLen == 0 means "no key", matching the wire format's
// convention.
func DecodeBody(buf []byte) (uint64, Record, error) {
	c := newCursor(buf)

	offset, err := c.u64()
	if err != nil {
		return 0, Record{}, err
	}
	ts, err := c.u64()
	if err != nil {
		return 0, Record{}, err
	}

	key, err := c.bytesField()
	if err != nil {
		return 0, Record{}, err
	}
	if len(key) == 0 {
		key = nil
	}

	value, err := c.bytesField()
	if err != nil {
		return 0, Record{}, err
	}

	headerCount, err := c.u32()
	if err != nil {
		return 0, Record{}, err
	}

	var headers []Header
	if headerCount > 0 {
		headers = make([]Header, 0, headerCount)
		for i := uint32(0); i < headerCount; i++ {
			name, err := c.stringField()
			if err != nil {
				return 0, Record{}, err
			}
			val, err := c.bytesField()
			if err != nil {
				return 0, Record{}, err
			}
			headers = append(headers, Header{Name: name, Value: val})
		}
	}

	return offset, Record{
		Key:       key,
		Value:     value,
		Timestamp: ts,
		Headers:   headers,
	}, nil
}
