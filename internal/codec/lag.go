package codec

// ConsumerLagRequest: [u32 glen][group][u8 has_topics][if 1: u32 n [u32 tlen][topic]×n]
type ConsumerLagRequest struct {
	Group  string
	Topics []string // nil means "all topics under the engine"
}

func (r ConsumerLagRequest) Encode() []byte {
	buf := make([]byte, 0, 4+len(r.Group)+1)
	buf = putString(buf, r.Group)
	if r.Topics == nil {
		buf = append(buf, 0)
		return buf
	}
	buf = append(buf, 1)
	buf = putU32(buf, uint32(len(r.Topics)))
	for _, t := range r.Topics {
		buf = putString(buf, t)
	}
	return buf
}

func DecodeConsumerLagRequest(buf []byte) (ConsumerLagRequest, error) {
	c := newCursor(buf)
	group, err := c.stringField()
	if err != nil {
		return ConsumerLagRequest{}, err
	}
	hasTopics, err := c.u8()
	if err != nil {
		return ConsumerLagRequest{}, err
	}
	if hasTopics == 0 {
		return ConsumerLagRequest{Group: group, Topics: nil}, nil
	}
	n, err := c.u32()
	if err != nil {
		return ConsumerLagRequest{}, err
	}
	topics := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		t, err := c.stringField()
		if err != nil {
			return ConsumerLagRequest{}, err
		}
		topics = append(topics, t)
	}
	return ConsumerLagRequest{Group: group, Topics: topics}, nil
}

// PartitionLag is one entry of a ConsumerLagResponse's per-partition
// breakdown: [u32 tlen][topic][u32 partition][u64 committed][u64 high][u64 lag]
type PartitionLag struct {
	Topic     string
	Partition uint32
	Committed uint64
	High      uint64
	Lag       uint64
}

func (p PartitionLag) encode(buf []byte) []byte {
	buf = putString(buf, p.Topic)
	buf = putU32(buf, p.Partition)
	buf = putU64(buf, p.Committed)
	buf = putU64(buf, p.High)
	buf = putU64(buf, p.Lag)
	return buf
}

func decodePartitionLag(c *cursor) (PartitionLag, error) {
	topic, err := c.stringField()
	if err != nil {
		return PartitionLag{}, err
	}
	partition, err := c.u32()
	if err != nil {
		return PartitionLag{}, err
	}
	committed, err := c.u64()
	if err != nil {
		return PartitionLag{}, err
	}
	high, err := c.u64()
	if err != nil {
		return PartitionLag{}, err
	}
	lag, err := c.u64()
	if err != nil {
		return PartitionLag{}, err
	}
	return PartitionLag{Topic: topic, Partition: partition, Committed: committed, High: high, Lag: lag}, nil
}

// ConsumerLagResponse: [u32 glen][group][u64 total][u32 m][per-partition ×m]
type ConsumerLagResponse struct {
	Group      string
	Total      uint64
	Partitions []PartitionLag
}

func (r ConsumerLagResponse) Encode() []byte {
	buf := make([]byte, 0, 4+len(r.Group)+12)
	buf = putString(buf, r.Group)
	buf = putU64(buf, r.Total)
	buf = putU32(buf, uint32(len(r.Partitions)))
	for _, p := range r.Partitions {
		buf = p.encode(buf)
	}
	return buf
}

func DecodeConsumerLagResponse(buf []byte) (ConsumerLagResponse, error) {
	c := newCursor(buf)
	group, err := c.stringField()
	if err != nil {
		return ConsumerLagResponse{}, err
	}
	total, err := c.u64()
	if err != nil {
		return ConsumerLagResponse{}, err
	}
	n, err := c.u32()
	if err != nil {
		return ConsumerLagResponse{}, err
	}
	partitions := make([]PartitionLag, 0, n)
	for i := uint32(0); i < n; i++ {
		p, err := decodePartitionLag(c)
		if err != nil {
			return ConsumerLagResponse{}, err
		}
		partitions = append(partitions, p)
	}
	return ConsumerLagResponse{Group: group, Total: total, Partitions: partitions}, nil
}
