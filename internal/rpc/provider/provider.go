// Package provider implements RPC transports for blockchain nodes.
//
// This package contains:
//   - Provider interface: core abstraction for RPC endpoints
//   - HTTPProvider: JSON-RPC over HTTP implementation
//   - GRPCProvider: gRPC implementation
//
// Providers are deliberately dumb transports: retry, timeout and circuit
// breaking live in the resilience layer that wraps them. A provider's only
// resilience duty is to surface failures with enough detail (status codes,
// throttle text) for the classifier to act on.
package provider

import "context"

// Provider defines the core interface for any RPC provider.
type Provider interface {
	// Name returns the provider identifier (e.g., "alchemy", "infura")
	Name() string

	// Call makes a single JSON-RPC request
	Call(ctx context.Context, method string, params []any) (any, error)

	// Close cleans up resources
	Close() error
}

// BatchRequest represents a single request in a batch call.
type BatchRequest struct {
	Method string
	Params []any
}

// BatchResponse represents a single response from a batch call.
type BatchResponse struct {
	Result any
	Error  error
}
