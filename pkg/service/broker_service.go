// Package service exposes the broker as a gRPC service. Messages travel as
// google.protobuf.Struct values holding the same JSON envelope the HTTP
// transport accepts.
package service

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dasmlab/kashi/pkg/broker"
	"github.com/sirupsen/logrus"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "kashi.v1.Broker"
	// DispatchMethod is the full method name of the Dispatch RPC.
	DispatchMethod = "/" + ServiceName + "/Dispatch"
)

// BrokerServer is the server API for the Broker service.
type BrokerServer interface {
	Dispatch(ctx context.Context, msg *structpb.Struct) (*structpb.Struct, error)
}

// MessageHandler answers one broker message.
type MessageHandler interface {
	Handle(ctx context.Context, req broker.Request) broker.Response
}

// BrokerService implements BrokerServer on top of a message handler.
type BrokerService struct {
	// Handler answers decoded messages.
	Handler MessageHandler

	// Logger for service operations.
	Logger *logrus.Logger
}

// NewBrokerService creates a new BrokerService instance.
func NewBrokerService(handler MessageHandler, logger *logrus.Logger) *BrokerService {
	if logger == nil {
		logger = logrus.New()
	}
	return &BrokerService{
		Handler: handler,
		Logger:  logger,
	}
}

// Dispatch handles one message. Operation failures are reported in the
// response body; only an undecodable envelope is an RPC error.
func (s *BrokerService) Dispatch(ctx context.Context, msg *structpb.Struct) (*structpb.Struct, error) {
	data, err := protojson.Marshal(msg)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "encode message: %v", err)
	}

	req, err := broker.DecodeRequest(data)
	if err != nil {
		s.Logger.WithError(err).Debug("[gRPC] Rejected message envelope")
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	s.Logger.WithFields(logrus.Fields{
		"type": req.Type,
	}).Debug("[gRPC] Dispatch request received")

	body, err := broker.Encode(s.Handler.Handle(ctx, req))
	if err != nil {
		s.Logger.WithError(err).Error("[gRPC] Failed to encode response")
		return nil, status.Error(codes.Internal, "failed to encode response")
	}

	out := &structpb.Struct{}
	if err := protojson.Unmarshal(body, out); err != nil {
		s.Logger.WithError(err).Error("[gRPC] Failed to convert response")
		return nil, status.Error(codes.Internal, "failed to convert response")
	}
	return out, nil
}

// RegisterBrokerServer registers srv with the gRPC server.
func RegisterBrokerServer(s grpc.ServiceRegistrar, srv BrokerServer) {
	s.RegisterService(&BrokerServiceDesc, srv)
}

// BrokerServiceDesc describes the Broker service.
var BrokerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BrokerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Dispatch",
			Handler:    dispatchHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "kashi/v1/broker.proto",
}

func dispatchHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BrokerServer).Dispatch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: DispatchMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BrokerServer).Dispatch(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// BrokerClient is the client API for the Broker service.
type BrokerClient struct {
	cc grpc.ClientConnInterface
}

// NewBrokerClient creates a client over an established connection.
func NewBrokerClient(cc grpc.ClientConnInterface) *BrokerClient {
	return &BrokerClient{cc: cc}
}

// Dispatch sends one message and returns the broker's response.
func (c *BrokerClient) Dispatch(ctx context.Context, msg *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, DispatchMethod, msg, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
