package chain

import (
	"context"
	"time"
)

const receiptPollInterval = 2 * time.Second

// receiptPollDelay returns a channel that fires after the poll interval.
// Split out so tests can shrink the interval.
var receiptPollDelay = func(ctx context.Context) <-chan time.Time {
	return time.After(receiptPollInterval)
}
