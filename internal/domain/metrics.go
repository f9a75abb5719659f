package domain

import "time"

// Metrics is the observability seam. Implementations must be safe for
// concurrent use; a nil Metrics is always allowed and means "don't record".
type Metrics interface {
	// ObserveRequest records one protocol request. errCode is 0 for
	// protocol-level success (tool-level failures still count as success
	// here) and the JSON-RPC error code otherwise.
	ObserveRequest(method string, duration time.Duration, errCode int64)

	// ObserveToolCall records one dispatched tool invocation.
	ObserveToolCall(tool string, duration time.Duration, ok bool)
}
