// Package shutdown owns the cancellable shutdown countdown.
package shutdown

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/turtacn/nightowl/internal/monitor"
	"github.com/turtacn/nightowl/internal/notify"
	"github.com/turtacn/nightowl/pkg/consts"
	"github.com/turtacn/nightowl/pkg/fsm"
	"github.com/turtacn/nightowl/pkg/logger"
)

const (
	evRequest fsm.Event = "request"
	evCancel  fsm.Event = "cancel"
	evExpire  fsm.Event = "expire"
)

// finalStepTimeout bounds the flush and stop command issued on expiry.
const finalStepTimeout = 30 * time.Second

// Executor issues console commands to the managed server.
type Executor interface {
	Execute(ctx context.Context, cmd string) (string, error)
}

// PowerScheduler schedules the host power-off.
type PowerScheduler interface {
	SchedulePowerOff(ctx context.Context, delay time.Duration) error
}

// Flusher waits for queued server notifications to be sent.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Options configures a Coordinator. Console, Notifier and Exit are required.
type Options struct {
	Context       context.Context // bounds countdown tasks; defaults to Background
	Console       Executor
	Notifier      notify.Announcer
	Flusher       Flusher        // optional
	Power         PowerScheduler // nil skips the power-off
	PowerOffDelay time.Duration
	Exit          func(code int)
	Log           logger.Logger

	Start int           // countdown start, defaults to consts.CountdownStart
	Tick  time.Duration // defaults to consts.CountdownTick
	// After returns a channel that fires once d has elapsed. Defaults to time.After.
	After func(d time.Duration) <-chan time.Time
}

// Coordinator runs at most one countdown at a time. Cancellation is
// observed by the countdown task on its next tick.
type Coordinator struct {
	opts Options
	log  logger.Logger

	mu    sync.Mutex // serializes transitions together with epoch
	sm    *fsm.StateMachine
	epoch uint64

	wg sync.WaitGroup
}

// New builds a Coordinator in the idle state.
func New(opts Options) *Coordinator {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Start <= 0 {
		opts.Start = consts.CountdownStart
	}
	if opts.Tick <= 0 {
		opts.Tick = consts.CountdownTick
	}
	if opts.After == nil {
		opts.After = time.After
	}
	if opts.Log == nil {
		opts.Log = logger.Discard()
	}

	c := &Coordinator{
		opts: opts,
		log:  opts.Log.With("component", "shutdown"),
		sm:   fsm.New(fsm.State(consts.StateIdle)),
	}
	c.sm.AddTransition(fsm.State(consts.StateIdle), fsm.State(consts.StateCountingDown), evRequest, c.onRequest)
	c.sm.AddTransition(fsm.State(consts.StateCountingDown), fsm.State(consts.StateIdle), evCancel, c.onCancel)
	c.sm.AddTransition(fsm.State(consts.StateCountingDown), fsm.State(consts.StateExecuting), evExpire, c.onExpire)
	return c
}

func (c *Coordinator) onRequest(fsm.Event, ...interface{}) error {
	monitor.Countdowns.WithLabelValues("started").Inc()
	monitor.ShutdownInProgress.Set(1)
	return nil
}

func (c *Coordinator) onCancel(fsm.Event, ...interface{}) error {
	monitor.Countdowns.WithLabelValues("cancelled").Inc()
	monitor.ShutdownInProgress.Set(0)
	return nil
}

func (c *Coordinator) onExpire(fsm.Event, ...interface{}) error {
	monitor.Countdowns.WithLabelValues("executed").Inc()
	return nil
}

// State returns the current countdown state.
func (c *Coordinator) State() consts.CountdownState {
	return consts.CountdownState(c.sm.Current())
}

// InProgress reports whether a countdown is active or executing.
func (c *Coordinator) InProgress() bool {
	return c.State() != consts.StateIdle
}

// RequestShutdown starts a countdown unless one is already in progress.
func (c *Coordinator) RequestShutdown() {
	c.mu.Lock()
	if err := c.sm.Fire(evRequest); err != nil {
		c.mu.Unlock()
		c.opts.Notifier.Announce("! Shutdown procedure already in progress", notify.Warning, true)
		return
	}
	c.epoch++
	epoch := c.epoch
	c.wg.Add(1)
	c.mu.Unlock()

	c.log.Info("Shutdown countdown started", "seconds", c.opts.Start)
	c.opts.Notifier.Announce("| Starting shutdown procedure", notify.Info, true)
	go c.countdown(epoch)
}

// CancelShutdown clears an active countdown.
func (c *Coordinator) CancelShutdown() {
	c.mu.Lock()
	err := c.sm.Fire(evCancel)
	state := c.State()
	c.mu.Unlock()

	switch {
	case err == nil:
		c.log.Info("Shutdown countdown cancelled")
		c.opts.Notifier.Announce("| Cancelling shutdown procedure", notify.Info, true)
	case state == consts.StateExecuting:
		c.opts.Notifier.Announce("! Shutdown already executing, too late to cancel", notify.Warning, true)
	default:
		c.opts.Notifier.Announce("! No shutdown to cancel", notify.Warning, true)
	}
}

// Wait blocks until every countdown task has returned. Used by tests.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func (c *Coordinator) active(epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch == epoch && c.sm.Is(fsm.State(consts.StateCountingDown))
}

func (c *Coordinator) countdown(epoch uint64) {
	defer c.wg.Done()

	for remaining := c.opts.Start; remaining > 0; remaining-- {
		// The cancel path already announced itself.
		if !c.active(epoch) {
			return
		}
		c.opts.Notifier.Announce(fmt.Sprintf("- %ds until shutdown", remaining), notify.Progress, true)
		select {
		case <-c.opts.After(c.opts.Tick):
		case <-c.opts.Context.Done():
			return
		}
	}

	c.mu.Lock()
	if c.epoch != epoch || c.sm.Fire(evExpire) != nil {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.execute()
}

func (c *Coordinator) execute() {
	c.opts.Notifier.Announce("| Executing shutdown", notify.Info, true)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.opts.Context), finalStepTimeout)
	defer cancel()

	if c.opts.Flusher != nil {
		if err := c.opts.Flusher.Flush(ctx); err != nil {
			c.log.Warn("Pending notifications not flushed before stop", "err", err)
		}
	}

	if _, err := c.opts.Console.Execute(ctx, consts.CmdStop); err != nil {
		c.log.Error("Stop command failed", "err", err)
		c.opts.Notifier.Announce("! Stop command failed: "+err.Error(), notify.Warning, false)
	} else {
		c.log.Info("Stop command issued")
	}

	if c.opts.Power != nil {
		if err := c.opts.Power.SchedulePowerOff(ctx, c.opts.PowerOffDelay); err != nil {
			c.log.Error("Power-off scheduling failed", "err", err)
			c.opts.Notifier.Announce("! Power-off scheduling failed: "+err.Error(), notify.Warning, false)
		}
	} else {
		c.log.Info("Power-off disabled, leaving host running")
	}

	c.opts.Exit(0)
}

// Personal.AI order the ending
