// Command flyqproduce is a thin reference client: it sends a single Produce
// request over the wire protocol and prints the partition/offset it landed
// at.
package main

import (
	"flag"
	"fmt"
	"io"
	"net"
	"os"

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
	topic := flag.String("topic", "", "topic to produce to")
	message := flag.String("message", "", "message value to send")
	flag.Parse()

	if *topic == "" || *message == "" {
		return fmt.Errorf("flyqproduce: -topic and -message are required")
	}

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		return fmt.Errorf("flyqproduce: dial %s: %w", *addr, err)
	}
	defer conn.Close()

	req := codec.RequestPayload{
		Op:   codec.OpProduce,
		Data: codec.ProduceRequest{Topic: *topic, Message: []byte(*message)}.Encode(),
	}
	respFrame, err := roundTrip(conn, req)
	if err != nil {
		return fmt.Errorf("flyqproduce: %w", err)
	}
	if respFrame.Type == codec.FrameError {
		return fmt.Errorf("flyqproduce: broker error: %s", respFrame.Payload)
	}

	resp, err := codec.DecodeResponsePayload(respFrame.Payload)
	if err != nil {
		return fmt.Errorf("flyqproduce: decode response: %w", err)
	}
	produceResp, err := codec.DecodeProduceResponse(resp.Data)
	if err != nil {
		return fmt.Errorf("flyqproduce: decode produce response: %w", err)
	}

	fmt.Printf("partition=%d offset=%d\n", produceResp.Partition, produceResp.Offset)
	return nil
}

// roundTrip sends one request frame and reads back exactly one response
// frame. cmd/flyqconsume carries an identical copy rather than sharing it
// through an internal package.
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

// readFrame reads exactly one frame off conn, growing its buffer as needed.
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
