package codec

// PartitionHealthRequest: [u32 tlen][topic][u32 partition]
type PartitionHealthRequest struct {
	Topic     string
	Partition uint32
}

func (r PartitionHealthRequest) Encode() []byte {
	buf := make([]byte, 0, 4+len(r.Topic)+4)
	buf = putString(buf, r.Topic)
	buf = putU32(buf, r.Partition)
	return buf
}

func DecodePartitionHealthRequest(buf []byte) (PartitionHealthRequest, error) {
	c := newCursor(buf)
	topic, err := c.stringField()
	if err != nil {
		return PartitionHealthRequest{}, err
	}
	partition, err := c.u32()
	if err != nil {
		return PartitionHealthRequest{}, err
	}
	return PartitionHealthRequest{Topic: topic, Partition: partition}, nil
}

// PartitionHealthResponse:
// [u32 tlen][topic][u32 partition][u32 seg_cnt][u64 size][u64 low][u64 high]
// [u64 log_end][u8 has_cleanup][if 1: u64 ts]
type PartitionHealthResponse struct {
	Topic        string
	Partition    uint32
	SegmentCount uint32
	TotalBytes   uint64
	Low          uint64
	High         uint64
	LogEnd       uint64
	LastCleanup  *uint64 // nil means "never run"
}

func (r PartitionHealthResponse) Encode() []byte {
	buf := make([]byte, 0, 4+len(r.Topic)+4+4+8+8+8+8+1+8)
	buf = putString(buf, r.Topic)
	buf = putU32(buf, r.Partition)
	buf = putU32(buf, r.SegmentCount)
	buf = putU64(buf, r.TotalBytes)
	buf = putU64(buf, r.Low)
	buf = putU64(buf, r.High)
	buf = putU64(buf, r.LogEnd)
	if r.LastCleanup != nil {
		buf = append(buf, 1)
		buf = putU64(buf, *r.LastCleanup)
	} else {
		buf = append(buf, 0)
	}
	return buf
}

func DecodePartitionHealthResponse(buf []byte) (PartitionHealthResponse, error) {
	c := newCursor(buf)
	topic, err := c.stringField()
	if err != nil {
		return PartitionHealthResponse{}, err
	}
	partition, err := c.u32()
	if err != nil {
		return PartitionHealthResponse{}, err
	}
	segmentCount, err := c.u32()
	if err != nil {
		return PartitionHealthResponse{}, err
	}
	totalBytes, err := c.u64()
	if err != nil {
		return PartitionHealthResponse{}, err
	}
	low, err := c.u64()
	if err != nil {
		return PartitionHealthResponse{}, err
	}
	high, err := c.u64()
	if err != nil {
		return PartitionHealthResponse{}, err
	}
	logEnd, err := c.u64()
	if err != nil {
		return PartitionHealthResponse{}, err
	}
	hasCleanup, err := c.u8()
	if err != nil {
		return PartitionHealthResponse{}, err
	}
	var lastCleanup *uint64
	if hasCleanup == 1 {
		ts, err := c.u64()
		if err != nil {
			return PartitionHealthResponse{}, err
		}
		lastCleanup = &ts
	}
	return PartitionHealthResponse{
		Topic:        topic,
		Partition:    partition,
		SegmentCount: segmentCount,
		TotalBytes:   totalBytes,
		Low:          low,
		High:         high,
		LogEnd:       logEnd,
		LastCleanup:  lastCleanup,
	}, nil
}
