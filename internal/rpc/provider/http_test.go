package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPProvider_Call(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode body: %v", err)
			return
		}

		if body["jsonrpc"] != "2.0" {
			t.Errorf("expected jsonrpc 2.0, got %v", body["jsonrpc"])
		}
		if body["method"] != "eth_blockNumber" {
			t.Errorf("expected method eth_blockNumber, got %v", body["method"])
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      1,
			"result":  "0x10d4f",
		})
	}))
	defer server.Close()

	p := NewHTTPProvider("mock", server.URL, 5*time.Second)
	defer p.Close()

	result, err := p.Call(context.Background(), "eth_blockNumber", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "0x10d4f" {
		t.Fatalf("result = %v, want 0x10d4f", result)
	}
}

func TestHTTPProvider_RPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      1,
			"error":   map[string]any{"code": -32602, "message": "invalid params"},
		})
	}))
	defer server.Close()

	p := NewHTTPProvider("mock", server.URL, 5*time.Second)
	defer p.Close()

	_, err := p.Call(context.Background(), "eth_getBalance", []any{"bad"})
	if err == nil {
		t.Fatal("expected rpc error")
	}
	if !strings.Contains(err.Error(), "invalid params") {
		t.Fatalf("error should carry rpc message, got %q", err)
	}
}

func TestHTTPProvider_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := NewHTTPProvider("mock", server.URL, 5*time.Second)
	defer p.Close()

	_, err := p.Call(context.Background(), "eth_blockNumber", nil)
	if err == nil {
		t.Fatal("expected rate limit error")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("error should carry status code for classification, got %q", err)
	}
}

func TestHTTPProvider_ThrottleInBody(t *testing.T) {
	// Some providers answer 200 and bury the rate limit in the rpc error.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      1,
			"error":   map[string]any{"code": -32005, "message": "Daily request count exceeded"},
		})
	}))
	defer server.Close()

	p := NewHTTPProvider("mock", server.URL, 5*time.Second)
	defer p.Close()

	_, err := p.Call(context.Background(), "eth_blockNumber", nil)
	if err == nil {
		t.Fatal("expected throttle error")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("soft throttle should carry a 429 token for classification, got %q", err)
	}
	if !strings.Contains(err.Error(), "Daily request count exceeded") {
		t.Fatalf("error should keep the provider message, got %q", err)
	}
}

func TestHTTPProvider_BatchThrottleInBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"jsonrpc": "2.0", "id": 1, "error": map[string]any{"code": -32005, "message": "project rate limit reached"}},
		})
	}))
	defer server.Close()

	p := NewHTTPProvider("mock", server.URL, 5*time.Second)
	defer p.Close()

	responses, err := p.BatchCall(context.Background(), []BatchRequest{{Method: "eth_blockNumber"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if responses[0].Error == nil || !strings.Contains(responses[0].Error.Error(), "429") {
		t.Fatalf("batch soft throttle should carry a 429 token, got %v", responses[0].Error)
	}
}

func TestHTTPProvider_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	p := NewHTTPProvider("mock", server.URL, 5*time.Second)
	defer p.Close()

	_, err := p.Call(context.Background(), "eth_blockNumber", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Fatalf("error should carry status code, got %q", err)
	}
}

func TestHTTPProvider_BatchCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var batch []map[string]any
		if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
			t.Errorf("failed to decode batch: %v", err)
			return
		}
		if len(batch) != 2 {
			t.Errorf("expected 2 requests, got %d", len(batch))
		}

		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"jsonrpc": "2.0", "id": 1, "result": "0x1"},
			{"jsonrpc": "2.0", "id": 2, "error": map[string]any{"code": -32601, "message": "method not found"}},
		})
	}))
	defer server.Close()

	p := NewHTTPProvider("mock", server.URL, 5*time.Second)
	defer p.Close()

	responses, err := p.BatchCall(context.Background(), []BatchRequest{
		{Method: "eth_blockNumber"},
		{Method: "eth_unknown"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(responses) != 2 {
		t.Fatalf("got %d responses, want 2", len(responses))
	}
	if responses[0].Result != "0x1" || responses[0].Error != nil {
		t.Fatalf("unexpected first response: %+v", responses[0])
	}
	if responses[1].Error == nil {
		t.Fatal("second response should carry the rpc error")
	}
}

func TestHTTPProvider_ContextCancellation(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server starts its background connection read;
		// without it the client disconnect is never noticed and r.Context()
		// is never cancelled, deadlocking server.Close.
		io.Copy(io.Discard, r.Body)
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	p := NewHTTPProvider("mock", server.URL, time.Minute)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := p.Call(ctx, "eth_blockNumber", nil)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}
