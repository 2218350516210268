package callable

import (
	"AltarProject/logger"
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// GRPCServiceName 函数统一挂在 /callable.Functions/<name> 下，无需 .proto 生成代码
const GRPCServiceName = "callable.Functions"

const grpcRequestIDKey = "x-request-id"

func grpcMethod(name string) string {
	return "/" + GRPCServiceName + "/" + name
}

// ConnProvider rpc.Manager 满足该接口；断线时返回 Unavailable
type ConnProvider interface {
	Conn() (*grpc.ClientConn, error)
}

type staticConn struct{ cc *grpc.ClientConn }

func (s staticConn) Conn() (*grpc.ClientConn, error) { return s.cc, nil }

// StaticConn 直接使用一个已建立的连接
func StaticConn(cc *grpc.ClientConn) ConnProvider {
	return staticConn{cc: cc}
}

type GRPCClient struct {
	conns ConnProvider
	opts  []grpc.CallOption
}

func NewGRPCClient(conns ConnProvider, opts ...grpc.CallOption) *GRPCClient {
	return &GRPCClient{conns: conns, opts: opts}
}

func (c *GRPCClient) Call(ctx context.Context, name string, payload map[string]any) (any, error) {
	cc, err := c.conns.Conn()
	if err != nil {
		return nil, FromError(err)
	}
	req, err := structpb.NewStruct(payload)
	if err != nil {
		return nil, NewError(StatusInvalidArgument, "encode payload: %v", err).WithCause(err)
	}
	if id := RequestIDFromContext(ctx); id != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, grpcRequestIDKey, id)
	}
	resp := &structpb.Value{}
	if err := cc.Invoke(ctx, grpcMethod(name), req, resp, c.opts...); err != nil {
		st := status.Convert(err)
		return nil, NewError(StatusFromGRPC(st.Code()), "%s", st.Message()).WithCause(err)
	}
	return resp.AsInterface(), nil
}

// GRPCHandler 作为 grpc.UnknownServiceHandler 挂载，把 /callable.Functions/<name> 分发到 Registry
func GRPCHandler(reg *Registry) grpc.StreamHandler {
	log := logger.L("callable.grpc")
	return func(_ any, stream grpc.ServerStream) error {
		method, ok := grpc.MethodFromServerStream(stream)
		if !ok {
			return status.Error(codes.Internal, "missing method")
		}
		prefix := "/" + GRPCServiceName + "/"
		if !strings.HasPrefix(method, prefix) {
			return status.Errorf(codes.Unimplemented, "unknown service method %s", method)
		}
		name := strings.TrimPrefix(method, prefix)

		req := &structpb.Struct{}
		if err := stream.RecvMsg(req); err != nil {
			return status.Errorf(codes.InvalidArgument, "decode payload: %v", err)
		}

		ctx := stream.Context()
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get(grpcRequestIDKey); len(v) > 0 {
				ctx = WithRequestID(ctx, v[0])
			}
		}

		res, err := reg.Call(ctx, name, req.AsMap())
		if err != nil {
			return FromError(err).GRPCStatus().Err()
		}
		out, err := toValue(res)
		if err != nil {
			log.Error("encode result", zap.String("function", name), zap.Error(err))
			return status.Errorf(codes.Internal, "encode result: %v", err)
		}
		return stream.SendMsg(out)
	}
}

// NewGRPCServer 构造仅承载 callable 分发的 gRPC server
func NewGRPCServer(reg *Registry, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.UnknownServiceHandler(GRPCHandler(reg)))
	return grpc.NewServer(opts...)
}

// toValue 先经过一次 JSON，使结构体结果也能装进 structpb
func toValue(v any) (*structpb.Value, error) {
	if v == nil {
		return structpb.NewNullValue(), nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return structpb.NewValue(generic)
}
