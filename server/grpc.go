package server

import (
	"context"
	"net"

	"connectrpc.com/connect"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/chazu/lama/wire"
)

// evaluationServer is the handler type registered with grpc.Server.
type evaluationServer interface {
	evaluateGRPC(ctx context.Context, req *wire.EvaluateRequest) (*wire.EvaluateResponse, error)
	checkSyntaxGRPC(ctx context.Context, req *wire.CheckSyntaxRequest) (*wire.CheckSyntaxResponse, error)
}

func (s *EvalService) evaluateGRPC(ctx context.Context, req *wire.EvaluateRequest) (*wire.EvaluateResponse, error) {
	resp, err := s.evaluate(ctx, req)
	if err != nil {
		return nil, grpcError(err)
	}
	return resp, nil
}

func (s *EvalService) checkSyntaxGRPC(_ context.Context, req *wire.CheckSyntaxRequest) (*wire.CheckSyntaxResponse, error) {
	return s.checkSyntax(req), nil
}

// grpcError maps a connect error onto the gRPC status with the same code.
// The two protocols share their code numbering.
func grpcError(err error) error {
	return status.Error(codes.Code(connect.CodeOf(err)), err.Error())
}

func evaluateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wire.EvaluateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(evaluationServer).evaluateGRPC(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: EvaluateProcedure}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(evaluationServer).evaluateGRPC(ctx, req.(*wire.EvaluateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func checkSyntaxHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wire.CheckSyntaxRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(evaluationServer).checkSyntaxGRPC(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CheckSyntaxProcedure}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(evaluationServer).checkSyntaxGRPC(ctx, req.(*wire.CheckSyntaxRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// evaluationServiceDesc describes the service for grpc.Server. Messages
// are CBOR, so there is no generated protobuf code behind it.
var evaluationServiceDesc = grpc.ServiceDesc{
	ServiceName: EvaluationServiceName,
	HandlerType: (*evaluationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Evaluate", Handler: evaluateHandler},
		{MethodName: "CheckSyntax", Handler: checkSyntaxHandler},
	},
	Streams: []grpc.StreamDesc{},
}

// NewGRPCServer returns a grpc.Server speaking CBOR with the evaluation
// service registered.
func NewGRPCServer(svc *EvalService, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.ForceServerCodec(wire.CBORCodec{}),
		grpc.UnaryInterceptor(logUnaryGRPC),
	}, opts...)
	gs := grpc.NewServer(opts...)
	gs.RegisterService(&evaluationServiceDesc, svc)
	return gs
}

func logUnaryGRPC(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	resp, err := handler(ctx, req)
	if err != nil {
		log.Infof("grpc %s: %s", info.FullMethod, err)
	} else {
		log.Infof("grpc %s", info.FullMethod)
	}
	return resp, err
}

// ServeGRPC serves gs on lis until it stops.
func ServeGRPC(gs *grpc.Server, lis net.Listener) error {
	log.Noticef("gRPC (CBOR) listening on %s", lis.Addr())
	return gs.Serve(lis)
}

// GRPCClient calls the evaluation service over a gRPC connection.
type GRPCClient struct {
	conn grpc.ClientConnInterface
}

// NewGRPCClient wraps conn. The connection should be dialed with
// GRPCDialOptions so calls use the CBOR codec.
func NewGRPCClient(conn grpc.ClientConnInterface) *GRPCClient {
	return &GRPCClient{conn: conn}
}

// GRPCDialOptions returns the call options the client side needs.
func GRPCDialOptions() []grpc.DialOption {
	return []grpc.DialOption{
		grpc.WithDefaultCallOptions(grpc.ForceCodec(wire.CBORCodec{})),
	}
}

// Evaluate runs a program remotely.
func (c *GRPCClient) Evaluate(ctx context.Context, req *wire.EvaluateRequest) (*wire.EvaluateResponse, error) {
	out := new(wire.EvaluateResponse)
	if err := c.conn.Invoke(ctx, EvaluateProcedure, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CheckSyntax parses a program remotely.
func (c *GRPCClient) CheckSyntax(ctx context.Context, req *wire.CheckSyntaxRequest) (*wire.CheckSyntaxResponse, error) {
	out := new(wire.CheckSyntaxResponse)
	if err := c.conn.Invoke(ctx, CheckSyntaxProcedure, req, out); err != nil {
		return nil, err
	}
	return out, nil
}
