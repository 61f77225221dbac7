package shutdown

import (
	"context"
	"os/signal"
	"syscall"
)

// WithSignals derives a context that ends on SIGINT or SIGTERM. The returned
// cancel also releases the signal registration, so a second signal kills the
// process the default way.
func WithSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}
