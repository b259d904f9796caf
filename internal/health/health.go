// Package health exposes HTTP endpoints reporting circuit and operation
// health for every registered chain client.
package health

import (
	"github.com/minhdao/shield/internal/resilience"
)

// Status is an aggregate health level.
type Status string

const (
	StatusHealthy  Status = "healthy"  // circuit closed
	StatusDegraded Status = "degraded" // circuit half-open, target being probed
	StatusCritical Status = "critical" // circuit open, calls rejected
)

// Checker is anything that can report resilience state for a chain.
// *rpc.Client satisfies it.
type Checker interface {
	ChainID() string
	ProviderName() string
	CircuitSnapshot() resilience.BreakerSnapshot
	AllStats() map[string]resilience.OperationStats
}

// ChainReport is the per-chain section of the detailed health response.
type ChainReport struct {
	Chain    string                               `json:"chain"`
	Provider string                               `json:"provider"`
	Status   Status                               `json:"status"`
	Circuit  resilience.BreakerSnapshot           `json:"circuit"`
	Stats    map[string]resilience.OperationStats `json:"stats"`
}

func statusOf(state resilience.CircuitState) Status {
	switch state {
	case resilience.StateOpen:
		return StatusCritical
	case resilience.StateHalfOpen:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}
