package server

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aboosoyeed/flyq/internal/codec"
	"github.com/aboosoyeed/flyq/internal/engine"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	eng, err := engine.Load(t.TempDir(), 1<<20, true, zap.NewNop(), engine.NewMetrics(prometheus.NewRegistry()))
	require.NoError(t, err)
	return &Server{Engine: eng, Log: zap.NewNop()}
}

func TestDispatchProduceThenConsume(t *testing.T) {
	s := newTestServer(t)

	produceReq := codec.RequestPayload{
		Op:   codec.OpProduce,
		Data: codec.ProduceRequest{Topic: "events", Message: []byte("ping")}.Encode(),
	}
	respBytes, err := s.dispatch(produceReq.Encode(), "conn-1")
	require.NoError(t, err)

	resp, err := codec.DecodeResponsePayload(respBytes)
	require.NoError(t, err)
	require.Equal(t, codec.OpProduce, resp.Op)

	produceResp, err := codec.DecodeProduceResponse(resp.Data)
	require.NoError(t, err)
	require.Equal(t, uint64(0), produceResp.Offset)

	consumeReq := codec.RequestPayload{
		Op:   codec.OpConsume,
		Data: codec.ConsumeRequest{Topic: "events", Partition: produceResp.Partition, Offset: 0}.Encode(),
	}
	respBytes, err = s.dispatch(consumeReq.Encode(), "conn-1")
	require.NoError(t, err)

	resp, err = codec.DecodeResponsePayload(respBytes)
	require.NoError(t, err)
	consumeResp, err := codec.DecodeConsumeResponse(resp.Data)
	require.NoError(t, err)
	require.True(t, consumeResp.Found)
	require.Equal(t, []byte("ping"), consumeResp.Record.Value)
}

func TestDispatchConsumeNoTopicIsNonFatal(t *testing.T) {
	s := &Server{Engine: mustLoadNoAutoCreate(t), Log: zap.NewNop()}

	req := codec.RequestPayload{
		Op:   codec.OpConsume,
		Data: codec.ConsumeRequest{Topic: "missing", Partition: 0, Offset: 0}.Encode(),
	}
	_, err := s.dispatch(req.Encode(), "conn-1")
	require.Error(t, err)

	var fatal *fatalDecodeError
	require.False(t, errors.As(err, &fatal))
}

func TestDispatchUnknownOpCodeIsFatal(t *testing.T) {
	s := newTestServer(t)
	_, err := s.dispatch([]byte{0xFF}, "conn-1")
	require.Error(t, err)

	var fatal *fatalDecodeError
	require.True(t, errors.As(err, &fatal))
}

func mustLoadNoAutoCreate(t *testing.T) *engine.Engine {
	t.Helper()
	eng, err := engine.Load(filepath.Join(t.TempDir(), "base"), 1<<20, false, zap.NewNop(), engine.NewMetrics(prometheus.NewRegistry()))
	require.NoError(t, err)
	return eng
}
