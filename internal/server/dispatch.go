package server

import (
	"fmt"
	"time"

	"github.com/aboosoyeed/flyq/internal/codec"
)

// fatalDecodeError marks a decode-layer failure (malformed frame payload,
// unknown opcode, bad UTF-8). These close the connection rather than
// round-trip as an Error frame.
type fatalDecodeError struct{ err error }

func (e *fatalDecodeError) Error() string { return e.err.Error() }
func (e *fatalDecodeError) Unwrap() error { return e.err }

func fatalf(format string, args ...any) error {
	return &fatalDecodeError{err: fmt.Errorf(format, args...)}
}

// dispatch decodes one request payload, calls the matching engine operation,
// and encodes the response payload. connID carries no protocol meaning and
// is not used by dispatch itself.
func (s *Server) dispatch(payload []byte, connID string) ([]byte, error) {
	req, err := codec.DecodeRequestPayload(payload)
	if err != nil {
		return nil, fatalf("decode request: %w", err)
	}

	switch req.Op {
	case codec.OpProduce:
		return s.handleProduce(req.Data)
	case codec.OpConsume:
		return s.handleConsume(req.Data)
	case codec.OpConsumeWithGroup:
		return s.handleConsumeWithGroup(req.Data)
	case codec.OpCommitOffset:
		return s.handleCommitOffset(req.Data)
	case codec.OpWatermark:
		return s.handleWatermark(req.Data)
	case codec.OpGetConsumerLag:
		return s.handleGetConsumerLag(req.Data)
	case codec.OpGetPartitionHealth:
		return s.handleGetPartitionHealth(req.Data)
	default:
		return nil, fatalf("dispatch: %w", codec.ErrUnknownOpCode)
	}
}

func respond(op codec.OpCode, data []byte) []byte {
	return codec.ResponsePayload{Op: op, Data: data}.Encode()
}

func (s *Server) handleProduce(data []byte) ([]byte, error) {
	req, err := codec.DecodeProduceRequest(data)
	if err != nil {
		return nil, fatalf("decode produce: %w", err)
	}
	rec := codec.Record{Value: req.Message, Timestamp: uint64(time.Now().UnixMilli())}
	partition, offset, err := s.Engine.Produce(req.Topic, rec)
	if err != nil {
		return nil, fmt.Errorf("produce: %w", err)
	}
	resp := codec.ProduceResponse{Partition: partition, Offset: offset}
	return respond(codec.OpProduce, resp.Encode()), nil
}

func (s *Server) handleConsume(data []byte) ([]byte, error) {
	req, err := codec.DecodeConsumeRequest(data)
	if err != nil {
		return nil, fatalf("decode consume: %w", err)
	}
	rec, offset, found, err := s.Engine.Consume(req.Topic, req.Partition, req.Offset)
	if err != nil {
		return nil, engineErr("consume", err)
	}
	resp := codec.ConsumeResponse{Found: found, Offset: offset, Record: rec}
	return respond(codec.OpConsume, resp.Encode()), nil
}

func (s *Server) handleConsumeWithGroup(data []byte) ([]byte, error) {
	req, err := codec.DecodeConsumeWithGroupRequest(data)
	if err != nil {
		return nil, fatalf("decode consume_with_group: %w", err)
	}
	rec, offset, found, err := s.Engine.ConsumeWithGroup(req.Topic, req.Partition, req.Group)
	if err != nil {
		return nil, engineErr("consume_with_group", err)
	}
	resp := codec.ConsumeResponse{Found: found, Offset: offset, Record: rec}
	return respond(codec.OpConsumeWithGroup, resp.Encode()), nil
}

func (s *Server) handleCommitOffset(data []byte) ([]byte, error) {
	req, err := codec.DecodeCommitOffsetRequest(data)
	if err != nil {
		return nil, fatalf("decode commit_offset: %w", err)
	}
	if err := s.Engine.CommitOffset(req.Topic, req.Partition, req.Group, req.Offset); err != nil {
		return nil, engineErr("commit_offset", err)
	}
	return respond(codec.OpCommitOffset, nil), nil
}

func (s *Server) handleWatermark(data []byte) ([]byte, error) {
	req, err := codec.DecodeWatermarkRequest(data)
	if err != nil {
		return nil, fatalf("decode watermark: %w", err)
	}
	low, high, logEnd, err := s.Engine.Watermark(req.Topic, req.Partition)
	if err != nil {
		return nil, engineErr("watermark", err)
	}
	resp := codec.WatermarkResponse{Low: low, High: high, LogEnd: logEnd}
	return respond(codec.OpWatermark, resp.Encode()), nil
}

func (s *Server) handleGetConsumerLag(data []byte) ([]byte, error) {
	req, err := codec.DecodeConsumerLagRequest(data)
	if err != nil {
		return nil, fatalf("decode get_consumer_lag: %w", err)
	}
	total, breakdown, err := s.Engine.ConsumerLag(req.Group, req.Topics)
	if err != nil {
		return nil, engineErr("get_consumer_lag", err)
	}
	partitions := make([]codec.PartitionLag, 0, len(breakdown))
	for _, pl := range breakdown {
		partitions = append(partitions, codec.PartitionLag{
			Topic: pl.Topic, Partition: pl.Partition, Committed: pl.Committed, High: pl.High, Lag: pl.Lag,
		})
	}
	resp := codec.ConsumerLagResponse{Group: req.Group, Total: total, Partitions: partitions}
	return respond(codec.OpGetConsumerLag, resp.Encode()), nil
}

func (s *Server) handleGetPartitionHealth(data []byte) ([]byte, error) {
	req, err := codec.DecodePartitionHealthRequest(data)
	if err != nil {
		return nil, fatalf("decode get_partition_health: %w", err)
	}
	health, err := s.Engine.GetPartitionHealth(req.Topic, req.Partition)
	if err != nil {
		return nil, engineErr("get_partition_health", err)
	}
	resp := codec.PartitionHealthResponse{
		Topic: health.Topic, Partition: health.Partition, SegmentCount: health.SegmentCount,
		TotalBytes: health.TotalBytes, Low: health.Low, High: health.High, LogEnd: health.LogEnd,
		LastCleanup: health.LastCleanup,
	}
	return respond(codec.OpGetPartitionHealth, resp.Encode()), nil
}

func engineErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
