package dispatch

import (
	"fmt"
	"time"

	"stockrelay/internal/stock"
	"stockrelay/internal/subscription"
)

// DeliveryError is one failed message inside a tick. It never aborts the tick.
type DeliveryError struct {
	Destination subscription.Destination
	Categories  []stock.Category
	Err         error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver %v to %d/%d: %v", e.Categories, e.Destination.ChatID, e.Destination.ThreadID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Report summarizes one tick.
type Report struct {
	TickID       string
	StartedAt    time.Time
	Took         time.Duration
	FetchErr     error
	Destinations int
	Skipped      int
	Sent         int
	Failed       int
	Errors       []*DeliveryError
}

// OK reports whether the tick fetched and delivered everything it attempted.
func (r Report) OK() bool { return r.FetchErr == nil && r.Failed == 0 }

func (r Report) String() string {
	if r.FetchErr != nil {
		return fmt.Sprintf("tick %s: fetch failed: %v", r.TickID, r.FetchErr)
	}
	return fmt.Sprintf("tick %s: %d destination(s), %d sent, %d failed, %d skipped in %s",
		r.TickID, r.Destinations, r.Sent, r.Failed, r.Skipped, r.Took.Round(time.Millisecond))
}
