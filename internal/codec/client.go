package codec

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region types
// GenerateRequest is the input of a Generate RPC call.
type GenerateRequest struct {
	Prompt      string
	Model       string
	Temperature float32
	TopP        float32
	MaxTokens   int
}

// GenerateResult holds the response from a Generate RPC call.
type GenerateResult struct {
	Text  string
	Model string
}

// ErrMalformedResponse is returned when a reply lacks an expected field.
var ErrMalformedResponse = errors.New("malformed codec response")
// #endregion types

// #region methods
// Full method names on the inference service. Payloads are
// google.protobuf.Struct messages on both sides.
const (
	MethodGenerate = "/susquery.InferenceService/Generate"
	MethodEmbed    = "/susquery.InferenceService/Embed"
)
// #endregion methods

// #region client-struct
// CodecClient wraps the gRPC connection to the inference service.
type CodecClient struct {
	conn *grpc.ClientConn
	cc   grpc.ClientConnInterface
	addr string
}
// #endregion client-struct

// #region constructor
// NewCodecClient connects to the inference gRPC server.
func NewCodecClient(addr string) (*CodecClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &CodecClient{conn: conn, cc: conn, addr: addr}, nil
}

// NewCodecClientWithConn creates a CodecClient over an injected connection.
// Used for testing without a real gRPC server.
func NewCodecClientWithConn(cc grpc.ClientConnInterface) *CodecClient {
	return &CodecClient{cc: cc, addr: "injected"}
}
// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *CodecClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
// #endregion close

// #region generate
// Generate sends a prompt to the inference service.
func (c *CodecClient) Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	in, err := structpb.NewStruct(map[string]any{
		"prompt":      req.Prompt,
		"model":       req.Model,
		"temperature": float64(req.Temperature),
		"top_p":       float64(req.TopP),
		"max_tokens":  float64(req.MaxTokens),
	})
	if err != nil {
		return GenerateResult{}, fmt.Errorf("build generate request: %w", err)
	}

	out := &structpb.Struct{}
	if err := c.cc.Invoke(ctx, MethodGenerate, in, out); err != nil {
		return GenerateResult{}, fmt.Errorf("generate rpc: %w", err)
	}

	text, ok := out.GetFields()["text"]
	if !ok {
		return GenerateResult{}, fmt.Errorf("%w: missing text", ErrMalformedResponse)
	}
	return GenerateResult{
		Text:  text.GetStringValue(),
		Model: out.GetFields()["model"].GetStringValue(),
	}, nil
}
// #endregion generate

// #region embed
// Embed sends text to the inference service for embedding.
func (c *CodecClient) Embed(ctx context.Context, text string) ([]float32, error) {
	in, err := structpb.NewStruct(map[string]any{"text": text})
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}

	out := &structpb.Struct{}
	if err := c.cc.Invoke(ctx, MethodEmbed, in, out); err != nil {
		return nil, fmt.Errorf("embed rpc: %w", err)
	}

	list := out.GetFields()["embedding"].GetListValue()
	if list == nil || len(list.GetValues()) == 0 {
		return nil, fmt.Errorf("%w: missing embedding", ErrMalformedResponse)
	}
	vec := make([]float32, len(list.GetValues()))
	for i, v := range list.GetValues() {
		vec[i] = float32(v.GetNumberValue())
	}
	return vec, nil
}

// Name identifies the service for cache keys.
func (c *CodecClient) Name() string {
	return "codec:" + c.addr
}
// #endregion embed
