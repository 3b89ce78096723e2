package codec

// ConsumeRequest: [u32 tlen][topic][u32 partition][u64 offset]
type ConsumeRequest struct {
	Topic     string
	Partition uint32
	Offset    uint64
}

func (r ConsumeRequest) Encode() []byte {
	buf := make([]byte, 0, 4+len(r.Topic)+12)
	buf = putString(buf, r.Topic)
	buf = putU32(buf, r.Partition)
	buf = putU64(buf, r.Offset)
	return buf
}

func DecodeConsumeRequest(buf []byte) (ConsumeRequest, error) {
	c := newCursor(buf)
	topic, err := c.stringField()
	if err != nil {
		return ConsumeRequest{}, err
	}
	partition, err := c.u32()
	if err != nil {
		return ConsumeRequest{}, err
	}
	offset, err := c.u64()
	if err != nil {
		return ConsumeRequest{}, err
	}
	return ConsumeRequest{Topic: topic, Partition: partition, Offset: offset}, nil
}

// ConsumeWithGroupRequest: [u32 tlen][topic][u32 partition][u32 glen][group]
type ConsumeWithGroupRequest struct {
	Topic     string
	Partition uint32
	Group     string
}

func (r ConsumeWithGroupRequest) Encode() []byte {
	buf := make([]byte, 0, 8+len(r.Topic)+len(r.Group))
	buf = putString(buf, r.Topic)
	buf = putU32(buf, r.Partition)
	buf = putString(buf, r.Group)
	return buf
}

func DecodeConsumeWithGroupRequest(buf []byte) (ConsumeWithGroupRequest, error) {
	c := newCursor(buf)
	topic, err := c.stringField()
	if err != nil {
		return ConsumeWithGroupRequest{}, err
	}
	partition, err := c.u32()
	if err != nil {
		return ConsumeWithGroupRequest{}, err
	}
	group, err := c.stringField()
	if err != nil {
		return ConsumeWithGroupRequest{}, err
	}
	return ConsumeWithGroupRequest{Topic: topic, Partition: partition, Group: group}, nil
}

// ConsumeResponse: empty payload if no record; else [u64 offset][record-wire]
type ConsumeResponse struct {
	Found  bool
	Offset uint64
	Record Record
}

// Encode returns the record-wire form: EncodeBody already leads with the
// offset, so there is no separate offset field ahead of it on the wire.
func (r ConsumeResponse) Encode() []byte {
	if !r.Found {
		return nil
	}
	return EncodeBody(r.Offset, r.Record)
}

func DecodeConsumeResponse(buf []byte) (ConsumeResponse, error) {
	if len(buf) == 0 {
		return ConsumeResponse{Found: false}, nil
	}
	offset, rec, err := DecodeBody(buf)
	if err != nil {
		return ConsumeResponse{}, err
	}
	return ConsumeResponse{Found: true, Offset: offset, Record: rec}, nil
}
