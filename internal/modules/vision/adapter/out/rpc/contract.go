package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	PluginMapKey      = "classifier"
	serviceName       = "nightwatch.vision.v1.Classifier"
	jsonCodecName     = "json"
	methodGetMetadata = "/" + serviceName + "/GetMetadata"
	methodClassify    = "/" + serviceName + "/Classify"
)

var HandshakeConfig = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "NIGHTWATCH_CLASSIFIER",
	MagicCookieValue: "nightwatch",
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return jsonCodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type Empty struct{}

type Metadata struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Capabilities []string `json:"capabilities"`
	Labels       []string `json:"labels"`
}

// ClassifyRequest mirrors the vision flow input: one screenshot as a data URI.
type ClassifyRequest struct {
	ScreenImage string `json:"screen_image"`
}

type ClassifyResponse struct {
	GameState  string  `json:"game_state"`
	Confidence float64 `json:"confidence"`
}

type ClassifierServer interface {
	GetMetadata(ctx context.Context, in *Empty) (*Metadata, error)
	Classify(ctx context.Context, in *ClassifyRequest) (*ClassifyResponse, error)
}

type ClassifierClient interface {
	GetMetadata(ctx context.Context) (*Metadata, error)
	Classify(ctx context.Context, in *ClassifyRequest) (*ClassifyResponse, error)
}

type classifierClient struct {
	conn *grpc.ClientConn
}

func NewClassifierClient(conn *grpc.ClientConn) ClassifierClient {
	return &classifierClient{conn: conn}
}

func (c *classifierClient) GetMetadata(ctx context.Context) (*Metadata, error) {
	out := &Metadata{}
	if err := c.conn.Invoke(ctx, methodGetMetadata, &Empty{}, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *classifierClient) Classify(ctx context.Context, in *ClassifyRequest) (*ClassifyResponse, error) {
	out := &ClassifyResponse{}
	if err := c.conn.Invoke(ctx, methodClassify, in, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

// unary adapts a typed method to the grpc handler shape, honouring an
// optional interceptor.
func unary[Req any, Resp any](fullMethod string, call func(context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*Req)
			if !ok {
				return nil, fmt.Errorf("%s: unexpected request %T", fullMethod, req)
			}
			return call(ctx, typed)
		})
	}
}

func RegisterClassifierServer(server grpc.ServiceRegistrar, impl ClassifierServer) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*ClassifierServer)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "GetMetadata", Handler: unary(methodGetMetadata, impl.GetMetadata)},
			{MethodName: "Classify", Handler: unary(methodClassify, impl.Classify)},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "nightwatch/vision/classifier.v1",
	}, impl)
}

type GRPCPlugin struct {
	plugin.NetRPCUnsupportedPlugin
	Impl ClassifierServer
}

func (p *GRPCPlugin) GRPCServer(_ *plugin.GRPCBroker, server *grpc.Server) error {
	RegisterClassifierServer(server, p.Impl)
	return nil
}

func (p *GRPCPlugin) GRPCClient(_ context.Context, _ *plugin.GRPCBroker, conn *grpc.ClientConn) (any, error) {
	return NewClassifierClient(conn), nil
}

func PluginMap(impl ClassifierServer) map[string]plugin.Plugin {
	return map[string]plugin.Plugin{
		PluginMapKey: &GRPCPlugin{Impl: impl},
	}
}
