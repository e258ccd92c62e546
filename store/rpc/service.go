// Package rpc serves a blob store over gRPC and provides a client for it,
// so that journals can be kept on another machine.
//
// The service uses protobuf well-known types as its messages:
// refs and blobs travel as BytesValue,
// and Put's result is a Struct with "ref" (hex) and "added" fields.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const serviceName = "blocksync.journal.Store"

func method(name string) string {
	return "/" + serviceName + "/" + name
}

// Implemented by *Server.
// The gRPC runtime checks registered servers against it.
type storeHandler interface {
	get(context.Context, *wrapperspb.BytesValue) (proto.Message, error)
	put(context.Context, *wrapperspb.BytesValue) (proto.Message, error)
	delete(context.Context, *wrapperspb.BytesValue) (proto.Message, error)
	listRefs(*wrapperspb.BytesValue, grpc.ServerStream) error
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*storeHandler)(nil),
	Methods: []grpc.MethodDesc{
		unary("Get", storeHandler.get),
		unary("Put", storeHandler.put),
		unary("Delete", storeHandler.delete),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "ListRefs",
			Handler:       listRefsHandler,
			ServerStreams: true,
		},
	},
}

func unary(name string, f func(storeHandler, context.Context, *wrapperspb.BytesValue) (proto.Message, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(wrapperspb.BytesValue)
			if err := dec(in); err != nil {
				return nil, err
			}
			h := srv.(storeHandler)
			if interceptor == nil {
				return f(h, ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: method(name),
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return f(h, ctx, req.(*wrapperspb.BytesValue))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func listRefsHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(wrapperspb.BytesValue)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(storeHandler).listRefs(in, stream)
}
