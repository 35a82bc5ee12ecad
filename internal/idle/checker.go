// Package idle samples server occupancy and requests a shutdown once the
// server has been empty for long enough.
package idle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/turtacn/nightowl/internal/console"
	"github.com/turtacn/nightowl/internal/monitor"
	"github.com/turtacn/nightowl/internal/notify"
	"github.com/turtacn/nightowl/pkg/logger"
)

// ShutdownRequester is triggered when the idle threshold is crossed.
type ShutdownRequester interface {
	RequestShutdown()
}

// Options configures a Checker.
type Options struct {
	Console   console.Executor
	Notifier  notify.Announcer
	Shutdown  ShutdownRequester
	Interval  time.Duration
	Threshold int // shutdown after more than Threshold consecutive empty samples
	Log       logger.Logger
}

// Checker guards the enabled flag and the consecutive-empty counter with one
// mutex. The lock is never held across the occupancy query.
type Checker struct {
	opts Options
	log  logger.Logger

	mu      sync.Mutex
	enabled bool
	empty   int
	// epoch changes on every enable/disable so a sample that straddles a
	// toggle is discarded.
	epoch uint64
}

// New returns a disabled Checker.
func New(opts Options) *Checker {
	if opts.Log == nil {
		opts.Log = logger.Discard()
	}
	return &Checker{opts: opts, log: opts.Log.With("component", "idle")}
}

// Enable turns sampling on.
func (c *Checker) Enable() {
	c.mu.Lock()
	if c.enabled {
		c.mu.Unlock()
		c.opts.Notifier.Announce("! Player count checker already running", notify.Warning, true)
		return
	}
	c.enabled = true
	c.epoch++
	c.mu.Unlock()

	monitor.CheckerEnabled.Set(1)
	c.log.Info("Idle checker enabled")
	c.opts.Notifier.Announce("| Starting player count checker", notify.Info, true)
}

// Disable turns sampling off and resets the counter.
func (c *Checker) Disable() {
	c.mu.Lock()
	if !c.enabled {
		c.mu.Unlock()
		c.opts.Notifier.Announce("! Player count checker is not running", notify.Warning, true)
		return
	}
	c.enabled = false
	c.empty = 0
	c.epoch++
	c.mu.Unlock()

	monitor.CheckerEnabled.Set(0)
	monitor.ConsecutiveEmpty.Set(0)
	c.log.Info("Idle checker disabled")
	c.opts.Notifier.Announce("| Pausing player count checker", notify.Info, true)
}

// Enabled reports whether sampling is on.
func (c *Checker) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// ConsecutiveEmpty returns the current consecutive-empty count.
func (c *Checker) ConsecutiveEmpty() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.empty
}

// Threshold returns the configured threshold.
func (c *Checker) Threshold() int {
	return c.opts.Threshold
}

// Interval returns the sampling period.
func (c *Checker) Interval() time.Duration {
	return c.opts.Interval
}

// Run samples once immediately and then on every interval until ctx is done.
// The cadence does not depend on Enable/Disable.
func (c *Checker) Run(ctx context.Context) {
	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()

	c.Sample(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sample(ctx)
		}
	}
}

// Sample performs one tick of the idle loop.
func (c *Checker) Sample(ctx context.Context) {
	c.mu.Lock()
	if !c.enabled {
		c.empty = 0
		c.mu.Unlock()
		return
	}
	epoch := c.epoch
	c.mu.Unlock()

	c.opts.Notifier.Announce("| Checking for players", notify.Info, false)
	players, err := console.PlayerCount(ctx, c.opts.Console)
	if err != nil {
		monitor.IdleSamples.WithLabelValues("error").Inc()
		c.log.Warn("Occupancy query failed", "err", err)
		c.opts.Notifier.Announce("! Player count check failed: "+err.Error(), notify.Warning, false)
		return
	}

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		c.log.Debug("Discarding sample taken across an enable/disable")
		return
	}
	if players == 0 {
		c.empty++
	} else {
		c.empty = 0
	}
	empty := c.empty
	trigger := empty > c.opts.Threshold
	if trigger {
		c.enabled = false
		c.empty = 0
		c.epoch++
	}
	c.mu.Unlock()

	if players == 0 {
		monitor.IdleSamples.WithLabelValues("empty").Inc()
		c.opts.Notifier.Announce(fmt.Sprintf("- No players found %d time(s) in a row", empty), notify.Progress, false)
	} else {
		monitor.IdleSamples.WithLabelValues("occupied").Inc()
		c.opts.Notifier.Announce(fmt.Sprintf("- Found %d players", players), notify.Progress, false)
	}

	if !trigger {
		monitor.ConsecutiveEmpty.Set(float64(empty))
		return
	}
	monitor.ConsecutiveEmpty.Set(0)
	monitor.CheckerEnabled.Set(0)
	c.log.Info("Idle threshold crossed", "empty_samples", empty, "threshold", c.opts.Threshold)
	c.opts.Notifier.Announce("| Server idle, pausing player count checker", notify.Info, true)
	c.opts.Shutdown.RequestShutdown()
}

// Personal.AI order the ending
