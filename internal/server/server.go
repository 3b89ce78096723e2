// Package server implements FlyQ's TCP listener: it accepts connections,
// decodes framed requests, dispatches them to the engine, and frames the
// responses back.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aboosoyeed/flyq/internal/codec"
	"github.com/aboosoyeed/flyq/internal/engine"
)

// Server accepts TCP connections on Addr and dispatches framed requests
// against Engine until its context is cancelled.
type Server struct {
	Addr   string
	Engine *engine.Engine
	Log    *zap.Logger
}

// ListenAndServe binds Addr and serves connections until ctx is cancelled,
// at which point it stops accepting and returns once in-flight connections
// have drained.
func (s *Server) ListenAndServe(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.Addr, err)
	}
	s.Log.Info("broker listening", zap.String("addr", s.Addr))

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var conns sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				conns.Wait()
				return nil
			}
			return fmt.Errorf("server: accept: %w", err)
		}
		connID := uuid.NewString()
		s.Log.Debug("new connection", zap.String("conn_id", connID), zap.String("remote", conn.RemoteAddr().String()))
		conns.Add(1)
		go func() {
			defer conns.Done()
			s.handleConnection(ctx, conn, connID)
		}()
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn, connID string) {
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, 0, 4096)
	read := make([]byte, 4096)

	for {
		n, err := conn.Read(read)
		if n > 0 {
			buf = append(buf, read[:n]...)
		}
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}

		for {
			frame, consumed, decodeErr := codec.DecodeFrame(buf)
			if decodeErr != nil {
				s.Log.Warn("dropping connection: malformed frame", zap.String("conn_id", connID), zap.Error(decodeErr))
				return
			}
			if frame == nil {
				break // need more bytes
			}
			buf = buf[consumed:]

			if frame.Type != codec.FrameRequest {
				continue
			}

			respPayload, dispatchErr := s.dispatch(frame.Payload, connID)
			respType := codec.FrameResponse
			if dispatchErr != nil {
				var fatal *fatalDecodeError
				if errors.As(dispatchErr, &fatal) {
					s.Log.Warn("dropping connection: malformed request", zap.String("conn_id", connID), zap.Error(dispatchErr))
					return
				}
				s.Log.Warn("request failed", zap.String("conn_id", connID), zap.Error(dispatchErr))
				respType = codec.FrameError
				respPayload = []byte(dispatchErr.Error())
			}

			respFrame := codec.Frame{
				Version:       codec.ProtocolVersion,
				Type:          respType,
				CorrelationID: frame.CorrelationID,
				Payload:       respPayload,
			}
			out := respFrame.Encode(make([]byte, 0, 64))
			if _, err := conn.Write(out); err != nil {
				return
			}
		}
	}
}
