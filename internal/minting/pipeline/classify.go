package pipeline

import (
	"context"
	"errors"
	"strings"
)

// Mint failure classification. The reason is stored on the token row so the
// merchant can triage failed mints without reading raw RPC errors.
const (
	ReasonUserRejected       = "user-rejected"
	ReasonInsufficientFunds  = "insufficient-funds"
	ReasonNetworkUnreachable = "network-unreachable"
	ReasonContractRevert     = "contract-revert"
	ReasonUnknown            = "unknown"
)

// Classify maps a chain/RPC error onto the failure taxonomy.
func Classify(err error) string {
	if err == nil {
		return ReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ReasonNetworkUnreachable
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "user rejected"), strings.Contains(msg, "user denied"):
		return ReasonUserRejected
	case strings.Contains(msg, "insufficient funds"):
		return ReasonInsufficientFunds
	case strings.Contains(msg, "revert"):
		return ReasonContractRevert
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "network is unreachable"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "gave up waiting for receipt"),
		strings.Contains(msg, "eof"):
		return ReasonNetworkUnreachable
	default:
		return ReasonUnknown
	}
}
