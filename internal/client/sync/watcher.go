package sync

import (
	"context"
	"time"
)

// RunPeriodic triggers a sync on a fixed interval while the advisory flag
// says online. A tick arriving mid-run is absorbed by the single-flight
// guard. Returns when ctx is cancelled.
func (c *Coordinator) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !c.gw.Online() {
				continue
			}
			_ = c.SyncAll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// WatchOnline probes the health endpoint on a ticker and maintains the
// advisory online flag. The flag is a hint only; its single hard use is
// triggering a sync on the offline-to-online transition. Returns when ctx
// is cancelled.
func (c *Coordinator) WatchOnline(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := c.gw.Ping(probeCtx)
			cancel()

			wasOnline := c.gw.Online()
			online := err == nil
			c.gw.SetOnline(online)

			if online && !wasOnline {
				c.log.Info(ctx, "connectivity restored, starting sync")
				_ = c.SyncAll(ctx)
			}
			if !online && wasOnline {
				c.log.Warn(ctx, "connectivity lost, switching to offline mode")
			}
		case <-ctx.Done():
			return
		}
	}
}
