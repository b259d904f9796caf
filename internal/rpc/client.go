// Package rpc provides a resilient RPC client for blockchain networks.
//
// A Client binds one provider (the transport) to one resilience executor
// (retry, timeout, circuit breaking, stats). Application layers should use
// Client rather than touching providers directly.
package rpc

import (
	"context"
	"fmt"
	"strings"

	"github.com/minhdao/shield/internal/resilience"
	"github.com/minhdao/shield/internal/rpc/provider"
)

// Client is the high-level interface for making RPC calls to one chain.
type Client struct {
	chainID  string
	provider provider.Provider
	exec     *resilience.Executor
}

// NewClient creates a new RPC client around the given provider.
func NewClient(chainID string, p provider.Provider, exec *resilience.Executor) *Client {
	return &Client{
		chainID:  chainID,
		provider: p,
		exec:     exec,
	}
}

// ChainID returns the chain this client serves.
func (c *Client) ChainID() string {
	return c.chainID
}

// ProviderName returns the underlying provider's name.
func (c *Client) ProviderName() string {
	return c.provider.Name()
}

// Call makes an RPC call under the method's operation name, with retry and
// circuit breaking applied.
func (c *Client) Call(ctx context.Context, method string, params []any) (any, error) {
	return c.exec.Execute(ctx, method, func(ctx context.Context) (any, error) {
		return c.provider.Call(ctx, method, params)
	})
}

// CallWith makes an RPC call with a caller-supplied failure classifier.
func (c *Client) CallWith(
	ctx context.Context,
	method string,
	params []any,
	classify resilience.Classifier,
) (any, error) {
	return c.exec.ExecuteWith(ctx, method, func(ctx context.Context) (any, error) {
		return c.provider.Call(ctx, method, params)
	}, classify)
}

// Execute runs an arbitrary operation (for gRPC generated clients or custom
// transports) under the client's resilience policy.
func (c *Client) Execute(ctx context.Context, name string, op resilience.Operation) (any, error) {
	return c.exec.Execute(ctx, name, op)
}

// CircuitSnapshot returns the breaker's current counters.
func (c *Client) CircuitSnapshot() resilience.BreakerSnapshot {
	return c.exec.Snapshot()
}

// ResetCircuit forces the breaker closed.
func (c *Client) ResetCircuit() {
	c.exec.ResetBreaker()
}

// Stats returns per-operation stats for one method.
func (c *Client) Stats(name string) (resilience.OperationStats, bool) {
	return c.exec.Stats(name)
}

// AllStats returns stats for every operation seen so far.
func (c *Client) AllStats() map[string]resilience.OperationStats {
	return c.exec.AllStats()
}

// ClearStats drops all per-operation stats.
func (c *Client) ClearStats() {
	c.exec.ClearStats()
}

// History returns up to limit attempt records, most recent last.
func (c *Client) History(limit int) []resilience.AttemptRecord {
	return c.exec.History(limit)
}

// Dispose releases the breaker timer and closes the provider.
func (c *Client) Dispose() error {
	c.exec.Dispose()
	return c.provider.Close()
}

// Describe returns a formatted status summary for dashboards and CLI output.
func (c *Client) Describe() string {
	var sb strings.Builder

	snap := c.CircuitSnapshot()
	sb.WriteString(fmt.Sprintf("Chain: %s (provider: %s)\n", c.chainID, c.provider.Name()))
	sb.WriteString(fmt.Sprintf("  Circuit: %s\n", snap.State))
	sb.WriteString(fmt.Sprintf("  Requests: %d (failures: %d, streak: %d)\n",
		snap.TotalRequests, snap.FailureCount, snap.ConsecutiveFailures))

	for name, stats := range c.AllStats() {
		sb.WriteString(fmt.Sprintf("  %s: %d/%d ok, avg %v\n",
			name, stats.SuccessfulAttempts, stats.TotalAttempts, stats.AverageResponseTime))
	}

	return sb.String()
}
