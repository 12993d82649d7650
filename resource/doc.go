// Package resource bounds the work spatial joins may put on their stores.
//
// A Controller combines three budgets:
//
//   - Joins: a weighted semaphore capping concurrently running joins
//   - Cursor operations: a token bucket charged by every throttled Seek/Next
//   - Bytes: a token bucket for snapshot reads and writes
//
// Blocking acquisitions honour context cancellation, so a canceled join
// fails fast with ctx.Err() instead of waiting for tokens.
//
//	rc := resource.NewController(resource.Config{
//	    MaxConcurrentJoins: 4,
//	    OpsPerSecond:       50_000,
//	})
//	if err := rc.AcquireJoin(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseJoin()
package resource
