package destination

import (
	"context"

	"tina/internal/router"
)

// Worker drains one router's delivery channel on its own goroutine,
// single-threaded per destination, until the supervisor cancels ctx.
type Worker interface {
	Run(ctx context.Context, deliveries <-chan router.Delivery)
}

// RunLoop is the shared drain loop every worker embeds: pull deliveries
// until ctx is cancelled or the channel closes, handing each one to
// deliver.
func RunLoop(ctx context.Context, deliveries <-chan router.Delivery, deliver func(context.Context, router.Delivery)) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			deliver(ctx, d)
		}
	}
}
