package executor

import (
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorType classifies a failure for retry purposes.
type ErrorType int

const (
	ErrorTransient   ErrorType = iota // Worth retrying (network blips, 5xx, rate limits)
	ErrorPermanent                    // Will never succeed on retry (bad request, auth)
	ErrorCircuitOpen                  // Rejected by the circuit breaker
)

// String returns a metric-friendly label for the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrorTransient:
		return "transient"
	case ErrorPermanent:
		return "permanent"
	case ErrorCircuitOpen:
		return "circuit_open"
	default:
		return "unknown"
	}
}

// Classifier maps a failure to an ErrorType. Callers may supply their own;
// the executor imposes no taxonomy beyond the three-way variant.
type Classifier func(error) ErrorType

// ErrCircuitOpen is returned when the breaker rejects an attempt.
var ErrCircuitOpen = errors.New("circuit breaker is open")

var transientPatterns = []string{
	"connection refused",
	"connection reset",
	"timed out",
	"timeout",
	"network",
	"429",
	"502",
	"503",
	"504",
}

var permanentPatterns = []string{
	"400",
	"401",
	"403",
	"invalid",
	"unauthorized",
	"forbidden",
}

// ClassifyError is the default heuristic classifier.
//
// It matches case-insensitive substrings of the error text, with gRPC status
// codes checked first when present. Unknown failures default to transient,
// biasing toward availability over fast-fail.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrorTransient // Should not happen
	}

	if errors.Is(err, ErrCircuitOpen) {
		return ErrorCircuitOpen
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		switch st.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
			return ErrorTransient
		case codes.InvalidArgument, codes.Unauthenticated, codes.PermissionDenied,
			codes.Unimplemented, codes.FailedPrecondition:
			return ErrorPermanent
		}
	}

	s := strings.ToLower(err.Error())

	// Matches re-surfaced breaker rejections that lost their wrapped sentinel
	// (e.g. messages rehydrated from history or a journal).
	if strings.Contains(s, "circuit breaker is open") {
		return ErrorCircuitOpen
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(s, pattern) {
			return ErrorTransient
		}
	}

	for _, pattern := range permanentPatterns {
		if strings.Contains(s, pattern) {
			return ErrorPermanent
		}
	}

	return ErrorTransient
}
