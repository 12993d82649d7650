package resource

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits. Zero values mean unlimited.
type Config struct {
	// MaxConcurrentJoins is the maximum number of joins running at once.
	MaxConcurrentJoins int64

	// OpsPerSecond limits cursor operations (Seek and Next) across all
	// throttled indexes.
	OpsPerSecond float64

	// OpsBurst is the number of cursor operations allowed in a burst.
	// If 0, defaults to max(1, OpsPerSecond).
	OpsBurst int

	// BytesPerSecond limits snapshot I/O throughput.
	BytesPerSecond int64
}

// Stats is a point-in-time view of controller usage.
type Stats struct {
	ActiveJoins int64
	TotalJoins  int64
	Ops         int64
	Bytes       int64
}

// Controller manages join concurrency and I/O budgets.
// A nil *Controller imposes no limits.
type Controller struct {
	cfg Config

	// Concurrency
	joinSem     *semaphore.Weighted // nil if unlimited
	activeJoins atomic.Int64
	totalJoins  atomic.Int64

	// IO
	opsLimiter   *rate.Limiter
	bytesLimiter *rate.Limiter
	ops          atomic.Int64
	bytes        atomic.Int64
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	c := &Controller{cfg: cfg}

	if cfg.MaxConcurrentJoins > 0 {
		c.joinSem = semaphore.NewWeighted(cfg.MaxConcurrentJoins)
	}

	if cfg.OpsPerSecond > 0 {
		burst := cfg.OpsBurst
		if burst <= 0 {
			burst = max(1, int(min(cfg.OpsPerSecond, math.MaxInt32)))
		}
		c.opsLimiter = rate.NewLimiter(rate.Limit(cfg.OpsPerSecond), burst)
	}

	if cfg.BytesPerSecond > 0 {
		c.bytesLimiter = rate.NewLimiter(rate.Limit(cfg.BytesPerSecond), int(min(cfg.BytesPerSecond, math.MaxInt)))
	}

	return c
}

// Config returns the configured limits.
func (c *Controller) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.cfg
}

// AcquireJoin reserves a join slot.
// Blocks if all slots are busy until one is released or ctx is canceled.
func (c *Controller) AcquireJoin(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if c.joinSem != nil {
		if err := c.joinSem.Acquire(ctx, 1); err != nil {
			return err
		}
	}
	c.activeJoins.Add(1)
	c.totalJoins.Add(1)
	return nil
}

// TryAcquireJoin reserves a join slot without blocking.
func (c *Controller) TryAcquireJoin() bool {
	if c == nil {
		return true
	}
	if c.joinSem != nil && !c.joinSem.TryAcquire(1) {
		return false
	}
	c.activeJoins.Add(1)
	c.totalJoins.Add(1)
	return true
}

// ReleaseJoin releases a join slot.
func (c *Controller) ReleaseJoin() {
	if c == nil {
		return
	}
	if c.joinSem != nil {
		c.joinSem.Release(1)
	}
	c.activeJoins.Add(-1)
}

// AcquireOps waits until the operation limit allows n cursor operations.
func (c *Controller) AcquireOps(ctx context.Context, n int) error {
	if c == nil {
		return nil
	}
	if c.opsLimiter != nil {
		if err := c.opsLimiter.WaitN(ctx, n); err != nil {
			return err
		}
	}
	c.ops.Add(int64(n))
	return nil
}

// TryAcquireOps attempts to acquire n operation tokens without blocking.
func (c *Controller) TryAcquireOps(n int) bool {
	if c == nil {
		return true
	}
	if c.opsLimiter != nil && !c.opsLimiter.AllowN(time.Now(), n) {
		return false
	}
	c.ops.Add(int64(n))
	return true
}

// AcquireIO waits until the byte limit allows the specified number of bytes.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil {
		return nil
	}
	if c.bytesLimiter != nil {
		// WaitN rejects requests larger than the burst.
		for bytes > 0 {
			n := min(bytes, c.bytesLimiter.Burst())
			if err := c.bytesLimiter.WaitN(ctx, n); err != nil {
				return err
			}
			c.bytes.Add(int64(n))
			bytes -= n
		}
		return nil
	}
	c.bytes.Add(int64(bytes))
	return nil
}

// Stats returns current usage counters.
func (c *Controller) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{
		ActiveJoins: c.activeJoins.Load(),
		TotalJoins:  c.totalJoins.Load(),
		Ops:         c.ops.Load(),
		Bytes:       c.bytes.Load(),
	}
}
