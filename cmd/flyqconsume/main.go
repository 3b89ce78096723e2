// Command flyqconsume is a thin reference client: it reads records from one
// topic/partition, either from an explicit offset or on behalf of a
// consumer group, and prints each one as it arrives.
package main

import (
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/aboosoyeed/flyq/internal/codec"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "localhost:9092", "broker address")
	topic := flag.String("topic", "", "topic to consume from")
	partition := flag.Uint("partition", 0, "partition to consume from")
	offset := flag.Uint64("offset", 0, "offset to start from, ignored when -group is set")
	group := flag.String("group", "", "consumer group name; when set, consumes from the group's committed offset and commits after each record")
	follow := flag.Bool("follow", false, "keep polling once the log end is reached")
	flag.Parse()

	if *topic == "" {
		return fmt.Errorf("flyqconsume: -topic is required")
	}

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		return fmt.Errorf("flyqconsume: dial %s: %w", *addr, err)
	}
	defer conn.Close()

	next := uint64(*offset)
	for {
		resp, found, err := consumeOne(conn, *topic, uint32(*partition), next, *group)
		if err != nil {
			return fmt.Errorf("flyqconsume: %w", err)
		}
		if !found {
			if !*follow {
				return nil
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		fmt.Printf("offset=%d value=%q\n", resp.Offset, resp.Record.Value)
		next = resp.Offset + 1

		if *group != "" {
			if err := commitOffset(conn, *topic, uint32(*partition), *group, next); err != nil {
				return fmt.Errorf("flyqconsume: commit offset: %w", err)
			}
		}
	}
}

func consumeOne(conn net.Conn, topic string, partition uint32, offset uint64, group string) (codec.ConsumeResponse, bool, error) {
	var req codec.RequestPayload
	if group != "" {
		req = codec.RequestPayload{
			Op:   codec.OpConsumeWithGroup,
			Data: codec.ConsumeWithGroupRequest{Topic: topic, Partition: partition, Group: group}.Encode(),
		}
	} else {
		req = codec.RequestPayload{
			Op:   codec.OpConsume,
			Data: codec.ConsumeRequest{Topic: topic, Partition: partition, Offset: offset}.Encode(),
		}
	}

	respFrame, err := roundTrip(conn, req)
	if err != nil {
		return codec.ConsumeResponse{}, false, err
	}
	if respFrame.Type == codec.FrameError {
		return codec.ConsumeResponse{}, false, fmt.Errorf("broker error: %s", respFrame.Payload)
	}

	resp, err := codec.DecodeResponsePayload(respFrame.Payload)
	if err != nil {
		return codec.ConsumeResponse{}, false, fmt.Errorf("decode response: %w", err)
	}
	consumeResp, err := codec.DecodeConsumeResponse(resp.Data)
	if err != nil {
		return codec.ConsumeResponse{}, false, fmt.Errorf("decode consume response: %w", err)
	}
	return consumeResp, consumeResp.Found, nil
}

func commitOffset(conn net.Conn, topic string, partition uint32, group string, offset uint64) error {
	req := codec.RequestPayload{
		Op:   codec.OpCommitOffset,
		Data: codec.CommitOffsetRequest{Topic: topic, Partition: partition, Group: group, Offset: offset}.Encode(),
	}
	respFrame, err := roundTrip(conn, req)
	if err != nil {
		return err
	}
	if respFrame.Type == codec.FrameError {
		return fmt.Errorf("broker error: %s", respFrame.Payload)
	}
	return nil
}

func roundTrip(conn net.Conn, req codec.RequestPayload) (*codec.Frame, error) {
	frame := codec.Frame{
		Version:       codec.ProtocolVersion,
		Type:          codec.FrameRequest,
		CorrelationID: 1,
		Payload:       req.Encode(),
	}
	if _, err := conn.Write(frame.Encode(nil)); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}
	return readFrame(conn)
}

func readFrame(conn net.Conn) (*codec.Frame, error) {
	buf := make([]byte, 0, 256)
	tmp := make([]byte, 4096)
	for {
		if decoded, _, err := codec.DecodeFrame(buf); err == nil && decoded != nil {
			return decoded, nil
		} else if err != nil {
			return nil, err
		}
		n, err := conn.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
		}
		if err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("connection closed before a full response arrived")
			}
			return nil, err
		}
	}
}
