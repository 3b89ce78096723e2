package codec

// WatermarkRequest: [u32 tlen][topic][u32 partition]
type WatermarkRequest struct {
	Topic     string
	Partition uint32
}

func (r WatermarkRequest) Encode() []byte {
	buf := make([]byte, 0, 4+len(r.Topic)+4)
	buf = putString(buf, r.Topic)
	buf = putU32(buf, r.Partition)
	return buf
}

func DecodeWatermarkRequest(buf []byte) (WatermarkRequest, error) {
	c := newCursor(buf)
	topic, err := c.stringField()
	if err != nil {
		return WatermarkRequest{}, err
	}
	partition, err := c.u32()
	if err != nil {
		return WatermarkRequest{}, err
	}
	return WatermarkRequest{Topic: topic, Partition: partition}, nil
}

// WatermarkResponse: [u64 low][u64 high][u64 log_end]
type WatermarkResponse struct {
	Low    uint64
	High   uint64
	LogEnd uint64
}

func (r WatermarkResponse) Encode() []byte {
	buf := make([]byte, 0, 24)
	buf = putU64(buf, r.Low)
	buf = putU64(buf, r.High)
	buf = putU64(buf, r.LogEnd)
	return buf
}

func DecodeWatermarkResponse(buf []byte) (WatermarkResponse, error) {
	c := newCursor(buf)
	low, err := c.u64()
	if err != nil {
		return WatermarkResponse{}, err
	}
	high, err := c.u64()
	if err != nil {
		return WatermarkResponse{}, err
	}
	logEnd, err := c.u64()
	if err != nil {
		return WatermarkResponse{}, err
	}
	return WatermarkResponse{Low: low, High: high, LogEnd: logEnd}, nil
}
