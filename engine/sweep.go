package engine

import (
	"context"
	"log"
	"time"
)

// Sweep finalizes every listing that has reached a terminal status, emitting
// its auction_ended event. Bid and purchase validation never depend on it;
// it only makes the notification timely for listings nobody touches.
// Returns the number of listings finalized by this call.
func (e *Engine) Sweep() int {
	e.mu.RLock()
	entries := make([]*entry, 0, len(e.order))
	for _, id := range e.order {
		entries = append(entries, e.listings[id])
	}
	e.mu.RUnlock()

	finalized := 0
	for _, en := range entries {
		en.mu.Lock()
		if e.finalizeLocked(en, e.clock()) {
			finalized++
		}
		en.mu.Unlock()
	}
	return finalized
}

// StartExpirySweep runs Sweep every interval until ctx is cancelled.
func (e *Engine) StartExpirySweep(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Printf("INFO: Expiry sweep stopped")
				return
			case <-ticker.C:
				if n := e.Sweep(); n > 0 {
					log.Printf("INFO: Expiry sweep finalized %d listings", n)
				}
			}
		}
	}()
}
