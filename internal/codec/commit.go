package codec

// CommitOffsetRequest: [u32 tlen][topic][u32 partition][u32 glen][group][u64 offset]
type CommitOffsetRequest struct {
	Topic     string
	Partition uint32
	Group     string
	Offset    uint64
}

func (r CommitOffsetRequest) Encode() []byte {
	buf := make([]byte, 0, 4+len(r.Topic)+4+4+len(r.Group)+8)
	buf = putString(buf, r.Topic)
	buf = putU32(buf, r.Partition)
	buf = putString(buf, r.Group)
	buf = putU64(buf, r.Offset)
	return buf
}

func DecodeCommitOffsetRequest(buf []byte) (CommitOffsetRequest, error) {
	c := newCursor(buf)
	topic, err := c.stringField()
	if err != nil {
		return CommitOffsetRequest{}, err
	}
	partition, err := c.u32()
	if err != nil {
		return CommitOffsetRequest{}, err
	}
	group, err := c.stringField()
	if err != nil {
		return CommitOffsetRequest{}, err
	}
	offset, err := c.u64()
	if err != nil {
		return CommitOffsetRequest{}, err
	}
	return CommitOffsetRequest{Topic: topic, Partition: partition, Group: group, Offset: offset}, nil
}
