package rpc

import (
	"context"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/bobg/blocksync/store"
)

var _ storeHandler = &Server{}

// Server exposes a blob store to gRPC clients.
type Server struct {
	s store.Store
}

// NewServer produces a Server for s.
func NewServer(s store.Store) *Server {
	return &Server{s: s}
}

// Register adds the store service to gs.
func (s *Server) Register(gs *grpc.Server) {
	gs.RegisterService(&serviceDesc, s)
}

func (s *Server) get(ctx context.Context, req *wrapperspb.BytesValue) (proto.Message, error) {
	ref := store.RefFromBytes(req.Value)
	blob, err := s.s.Get(ctx, ref)
	if store.IsNotFound(err) {
		return nil, status.Errorf(codes.NotFound, "blob %s not found", ref)
	}
	if err != nil {
		return nil, err
	}
	return wrapperspb.Bytes(blob), nil
}

func (s *Server) put(ctx context.Context, req *wrapperspb.BytesValue) (proto.Message, error) {
	ref, added, err := s.s.Put(ctx, req.Value)
	if err != nil {
		return nil, err
	}
	resp, err := structpb.NewStruct(map[string]interface{}{
		"ref":   ref.String(),
		"added": added,
	})
	return resp, errors.Wrap(err, "building response")
}

func (s *Server) delete(ctx context.Context, req *wrapperspb.BytesValue) (proto.Message, error) {
	err := store.Delete(ctx, s.s, store.RefFromBytes(req.Value))
	if errors.Is(err, store.ErrNotDeleter) {
		return nil, status.Error(codes.Unimplemented, err.Error())
	}
	if err != nil {
		return nil, err
	}
	return new(emptypb.Empty), nil
}

func (s *Server) listRefs(req *wrapperspb.BytesValue, stream grpc.ServerStream) error {
	return s.s.ListRefs(stream.Context(), store.RefFromBytes(req.Value), func(ref store.Ref) error {
		return stream.SendMsg(wrapperspb.Bytes(ref[:]))
	})
}
