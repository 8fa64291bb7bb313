package transport

import (
	"context"
	"time"
)

// Function serves a route. For ordinary routes the returned value becomes the
// body of the reply sent to the event's ReplyTo; returning an *Event also sets
// the reply status and headers. Interceptors reply on their own.
type Function func(ctx context.Context, evt *Event) (any, error)

type Transport interface {
	Send(ctx context.Context, evt *Event) error
	// SendLater delivers evt at the given time and returns a handle for Cancel.
	SendLater(evt *Event, at time.Time) (string, error)
	Cancel(handle string)
	// Request sends evt and waits for the reply addressed to a temporary inbox.
	Request(ctx context.Context, evt *Event, timeout time.Duration) (*Event, error)
}
