package rpc

import (
	"context"
	"log"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/strandline/quality-controller/internal/controller"
	"github.com/strandline/quality-controller/internal/quality"
)

// #region server
// Server serves quality.v1.QualityService over a Backend.
type Server struct {
	backend Backend

	done     chan struct{}
	shutdown sync.Once
}

// NewServer creates a service implementation for backend.
func NewServer(backend Backend) *Server {
	return &Server{backend: backend, done: make(chan struct{})}
}

// Shutdown ends every open WatchTransitions stream so GracefulStop can
// complete. Unary calls keep working.
func (s *Server) Shutdown() {
	s.shutdown.Do(func() { close(s.done) })
}

// Register attaches the service to a grpc server.
func (s *Server) Register(g grpc.ServiceRegistrar) {
	RegisterQualityServiceServer(g, s)
}

// #endregion server

// #region unary
func (s *Server) GetLevel(_ context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return wrapperspb.String(string(s.backend.Snapshot().Level)), nil
}

func (s *Server) GetSettings(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return settingsReply(s.backend.Snapshot().Settings)
}

// SetLevel validates the level name before handing it to the backend.
func (s *Server) SetLevel(_ context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	level, err := quality.Parse(in.GetValue())
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "set level: %v", err)
	}
	log.Printf("[RPC] set level %s", level)
	s.backend.SetLevel(level)
	return settingsReply(s.backend.Snapshot().Settings)
}

func (s *Server) GetMetrics(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	st, err := toStruct(reportFrom(s.backend.Snapshot()))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "get metrics: %v", err)
	}
	return st, nil
}

// ReportVisibility applies a page visibility change and returns the level after it.
func (s *Server) ReportVisibility(_ context.Context, in *wrapperspb.BoolValue) (*wrapperspb.StringValue, error) {
	s.backend.SetHidden(in.GetValue())
	return wrapperspb.String(string(s.backend.Snapshot().Level)), nil
}

func settingsReply(settings quality.Settings) (*structpb.Struct, error) {
	st, err := toStruct(settings)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode settings: %v", err)
	}
	return st, nil
}

// #endregion unary

// #region stream
// watchBuffer bounds transitions queued for a slow stream reader.
const watchBuffer = 16

// WatchTransitions streams every committed transition until the client
// goes away or the server shuts down. Transitions that overflow the buffer
// are dropped.
func (s *Server) WatchTransitions(_ *emptypb.Empty, stream grpc.ServerStream) error {
	ch := make(chan controller.Transition, watchBuffer)
	unsubscribe := s.backend.Subscribe(func(t controller.Transition) {
		select {
		case ch <- t:
		default:
			log.Printf("[RPC] watch buffer full, dropping %s -> %s", t.From, t.To)
		}
	})
	defer unsubscribe()

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case t := <-ch:
			st, err := toStruct(t)
			if err != nil {
				return status.Errorf(codes.Internal, "encode transition: %v", err)
			}
			if err := stream.SendMsg(st); err != nil {
				return err
			}
		}
	}
}

// #endregion stream
