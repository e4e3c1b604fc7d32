package gateway

import "context"

// Result is the outcome a delivery gateway reports for one send. Message
// is the gateway's own wording; callers pass it through verbatim.
type Result struct {
	Success   bool
	Message   string
	MessageID string
}

// Gateway delivers a one-time code to a recipient over a single channel.
type Gateway interface {
	Send(ctx context.Context, to, code string) (Result, error)
}
