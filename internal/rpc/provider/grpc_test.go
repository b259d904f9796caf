package provider

import (
	"context"
	"strings"
	"testing"

	"google.golang.org/grpc"
)

// Connection setup is lazy, so no listener is needed for these.

func TestGRPCProvider_GenericCallUnsupported(t *testing.T) {
	p, err := NewGRPCProvider("cosmos", "localhost:9090")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Close()

	_, err = p.Call(context.Background(), "cosmos.bank.v1beta1.Query/Balance", nil)
	if err == nil {
		t.Fatal("expected error for generic call")
	}
	if !strings.Contains(err.Error(), "invalid operation") {
		t.Fatalf("error should read as permanent so it is not retried, got %q", err)
	}
}

func TestGRPCProvider_Do(t *testing.T) {
	p, err := NewGRPCProvider("cosmos", "localhost:9090")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Close()

	result, err := p.Do(context.Background(), func(ctx context.Context, conn grpc.ClientConnInterface) (any, error) {
		if conn == nil {
			t.Fatal("handler should receive the connection")
		}
		return "height:42", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "height:42" {
		t.Fatalf("result = %v, want height:42", result)
	}
}
