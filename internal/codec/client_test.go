package codec

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region mock
type mockConn struct {
	lastMethod string
	lastReq    *structpb.Struct
	resp       map[string]any
	err        error
}

func (m *mockConn) Invoke(_ context.Context, method string, args, reply any, _ ...grpc.CallOption) error {
	m.lastMethod = method
	m.lastReq = args.(*structpb.Struct)
	if m.err != nil {
		return m.err
	}
	out, err := structpb.NewStruct(m.resp)
	if err != nil {
		return err
	}
	proto.Merge(reply.(*structpb.Struct), out)
	return nil
}

func (m *mockConn) NewStream(context.Context, *grpc.StreamDesc, string, ...grpc.CallOption) (grpc.ClientStream, error) {
	return nil, errors.New("streams not supported")
}

// #endregion mock

// #region constructor-tests
func TestNewCodecClientInvalidAddr(t *testing.T) {
	client, err := NewCodecClient("localhost:0")
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}
	defer client.Close()
	if client.Name() != "codec:localhost:0" {
		t.Errorf("unexpected name %q", client.Name())
	}
}

func TestNewCodecClientWithConn(t *testing.T) {
	c := NewCodecClientWithConn(&mockConn{})
	if c == nil || c.cc == nil {
		t.Fatal("expected non-nil client")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close of injected client: %v", err)
	}
}

// #endregion constructor-tests

// #region generate-tests
func TestGenerate_Success(t *testing.T) {
	mock := &mockConn{resp: map[string]any{"text": "SQL: SELECT 1", "model": "llama3"}}
	c := NewCodecClientWithConn(mock)

	res, err := c.Generate(context.Background(), GenerateRequest{Prompt: "hi", Model: "llama3", Temperature: 0.1, MaxTokens: 2048})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "SQL: SELECT 1" || res.Model != "llama3" {
		t.Errorf("unexpected result %+v", res)
	}
	if mock.lastMethod != MethodGenerate {
		t.Errorf("method: got %q", mock.lastMethod)
	}
	if got := mock.lastReq.GetFields()["prompt"].GetStringValue(); got != "hi" {
		t.Errorf("prompt: got %q", got)
	}
	if got := mock.lastReq.GetFields()["max_tokens"].GetNumberValue(); got != 2048 {
		t.Errorf("max_tokens: got %v", got)
	}
}

func TestGenerate_Error(t *testing.T) {
	c := NewCodecClientWithConn(&mockConn{err: errors.New("unavailable")})
	if _, err := c.Generate(context.Background(), GenerateRequest{Prompt: "x"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestGenerate_MissingText(t *testing.T) {
	c := NewCodecClientWithConn(&mockConn{resp: map[string]any{"model": "x"}})
	_, err := c.Generate(context.Background(), GenerateRequest{Prompt: "x"})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

// #endregion generate-tests

// #region embed-tests
func TestEmbed_Success(t *testing.T) {
	mock := &mockConn{resp: map[string]any{"embedding": []any{0.5, -0.25, 1.0}}}
	c := NewCodecClientWithConn(mock)

	vec, err := c.Embed(context.Background(), "asthma")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float32{0.5, -0.25, 1}
	if len(vec) != len(want) {
		t.Fatalf("expected %d dims, got %d", len(want), len(vec))
	}
	for i := range want {
		if vec[i] != want[i] {
			t.Errorf("index %d: got %f want %f", i, vec[i], want[i])
		}
	}
	if mock.lastMethod != MethodEmbed {
		t.Errorf("method: got %q", mock.lastMethod)
	}
}

func TestEmbed_Empty(t *testing.T) {
	c := NewCodecClientWithConn(&mockConn{resp: map[string]any{"embedding": []any{}}})
	if _, err := c.Embed(context.Background(), "x"); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestEmbed_Error(t *testing.T) {
	c := NewCodecClientWithConn(&mockConn{err: errors.New("deadline")})
	if _, err := c.Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
}

// #endregion embed-tests
