package codec

// ProduceRequest: [u32 tlen][topic][u32 mlen][message]
//
// "message" is the raw value payload a producer wants appended. The broker
// builds the Record server-side: key is always nil and timestamp is always
// assigned at append time, matching the reference produce handler.
type ProduceRequest struct {
	Topic   string
	Message []byte
}

func (r ProduceRequest) Encode() []byte {
	buf := make([]byte, 0, 8+len(r.Topic)+len(r.Message))
	buf = putString(buf, r.Topic)
	buf = putBytesField(buf, r.Message)
	return buf
}

func DecodeProduceRequest(buf []byte) (ProduceRequest, error) {
	c := newCursor(buf)
	topic, err := c.stringField()
	if err != nil {
		return ProduceRequest{}, err
	}
	message, err := c.bytesField()
	if err != nil {
		return ProduceRequest{}, err
	}
	return ProduceRequest{Topic: topic, Message: message}, nil
}

// ProduceResponse: [u32 partition][u64 offset]
type ProduceResponse struct {
	Partition uint32
	Offset    uint64
}

func (r ProduceResponse) Encode() []byte {
	buf := make([]byte, 0, 12)
	buf = putU32(buf, r.Partition)
	buf = putU64(buf, r.Offset)
	return buf
}

func DecodeProduceResponse(buf []byte) (ProduceResponse, error) {
	c := newCursor(buf)
	partition, err := c.u32()
	if err != nil {
		return ProduceResponse{}, err
	}
	offset, err := c.u64()
	if err != nil {
		return ProduceResponse{}, err
	}
	return ProduceResponse{Partition: partition, Offset: offset}, nil
}
