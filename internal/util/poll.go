package util

import (
	"context"
	"time"
)

// Poll calls fn until it reports done or fails. The first call is immediate;
// later calls wait interval. Poll returns ctx.Err() if the context ends first.
func Poll(ctx context.Context, interval time.Duration, fn func() (bool, error)) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		done, err := fn()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
