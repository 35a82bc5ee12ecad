package orchestrator

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/turtacn/nightowl/internal/console"
	"github.com/turtacn/nightowl/internal/dispatch"
	"github.com/turtacn/nightowl/internal/host"
	"github.com/turtacn/nightowl/internal/idle"
	"github.com/turtacn/nightowl/internal/monitor"
	"github.com/turtacn/nightowl/internal/notify"
	"github.com/turtacn/nightowl/internal/shutdown"
	"github.com/turtacn/nightowl/internal/status"
	"github.com/turtacn/nightowl/internal/tail"
	"github.com/turtacn/nightowl/pkg/logger"
	"github.com/turtacn/nightowl/pkg/protocol"
)

// Engine owns every supervisor component and the startup sequence.
type Engine struct {
	cfg   *protocol.Config
	runID string
	log   logger.Logger

	// Overridable collaborators
	dial          console.DialFunc
	stdout        io.Writer
	exit          func(int)
	power         shutdown.PowerScheduler
	countdownTick time.Duration
	countdownFrom int

	// runCtx bounds background tasks, including countdowns started by them.
	runCtx    context.Context
	runCancel context.CancelFunc

	console    *console.Client
	notifier   *notify.Notifier
	shutdown   *shutdown.Coordinator
	checker    *idle.Checker
	dispatcher *dispatch.Dispatcher
	tail       *tail.Watcher
	status     *status.Server
}

// Option overrides an Engine collaborator.
type Option func(*Engine)

// WithDialer replaces the remote console dialer.
func WithDialer(d console.DialFunc) Option { return func(e *Engine) { e.dial = d } }

// WithStdout replaces the operator console writer.
func WithStdout(w io.Writer) Option { return func(e *Engine) { e.stdout = w } }

// WithExit replaces the process exit used after a completed shutdown.
func WithExit(f func(int)) Option { return func(e *Engine) { e.exit = f } }

// WithPowerScheduler replaces the host power-off.
func WithPowerScheduler(p shutdown.PowerScheduler) Option { return func(e *Engine) { e.power = p } }

// WithCountdown replaces the countdown start and tick.
func WithCountdown(from int, tick time.Duration) Option {
	return func(e *Engine) {
		e.countdownFrom = from
		e.countdownTick = tick
	}
}

// WithLogger replaces the structured logger.
func WithLogger(l logger.Logger) Option { return func(e *Engine) { e.log = l } }

func NewEngine(cfg *protocol.Config, opts ...Option) *Engine {
	runCtx, runCancel := context.WithCancel(context.Background())
	e := &Engine{
		cfg:       cfg,
		runID:     uuid.NewString(),
		log:       logger.Log,
		stdout:    os.Stdout,
		exit:      os.Exit,
		runCtx:    runCtx,
		runCancel: runCancel,
	}
	for _, o := range opts {
		o(e)
	}
	e.log = e.log.With("run_id", e.runID)
	if e.power == nil && cfg.PowerOffEnabled() {
		e.power = host.NewPowerManager(cfg.PowerOff.Command, e.log)
	}
	e.build()
	return e
}

func (e *Engine) build() {
	e.console = console.NewClient(e.cfg.Addr(), e.cfg.Password, e.log)
	if e.dial != nil {
		e.console.WithDialer(e.dial)
	}
	e.notifier = notify.New(e.console, e.stdout, e.log, notify.DefaultQueueSize)
	e.shutdown = shutdown.New(shutdown.Options{
		Context:       e.runCtx,
		Console:       e.console,
		Notifier:      e.notifier,
		Flusher:       e.notifier,
		Power:         e.power,
		PowerOffDelay: e.cfg.PowerOffDelay(),
		Exit:          e.exit,
		Log:           e.log,
		Start:         e.countdownFrom,
		Tick:          e.countdownTick,
	})
	e.checker = idle.New(idle.Options{
		Console:   e.console,
		Notifier:  e.notifier,
		Shutdown:  e.shutdown,
		Interval:  e.cfg.Interval(),
		Threshold: e.cfg.IdleThreshold(),
		Log:       e.log,
	})
	e.dispatcher = dispatch.New(e.shutdown, e.checker, e.notifier, e.log)
	e.tail = tail.New(e.cfg.LogFile, e.log)
	if path := e.cfg.StatusSocketPath(); path != "" {
		e.status = status.NewServer(path, e.Snapshot, e.log)
	}
}

// Snapshot reports the current supervisor state.
func (e *Engine) Snapshot() status.Snapshot {
	return status.Snapshot{
		RunID:              e.runID,
		ShutdownInProgress: e.shutdown.InProgress(),
		ShutdownState:      string(e.shutdown.State()),
		CheckerEnabled:     e.checker.Enabled(),
		ConsecutiveEmpty:   e.checker.ConsecutiveEmpty(),
		Threshold:          e.checker.Threshold(),
		IntervalSeconds:    int64(e.checker.Interval() / time.Second),
	}
}

// Start connects, verifies the log file and runs the background loops
// until ctx is done. Errors returned before the loops start are fatal.
func (e *Engine) Start(ctx context.Context) error {
	defer e.runCancel()

	metrics := monitor.InitMetrics(e.cfg.Observability.MetricsAddr, e.log)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		metrics.Shutdown(sctx)
	}()

	e.log.Info("Connecting to RCON server", "addr", e.cfg.Addr())
	if err := e.console.Connect(ctx); err != nil {
		return err
	}
	defer e.console.Close()
	e.notifier.Announce("✓ RCON client connected", notify.Success, false)

	if err := e.tail.Check(); err != nil {
		return err
	}

	go e.notifier.Run(e.runCtx)

	tailErr := make(chan error, 1)
	go func() {
		tailErr <- e.tail.Run(e.runCtx, func(line string) { e.dispatcher.Dispatch(line) })
	}()
	select {
	case <-e.tail.Ready():
	case err := <-tailErr:
		return err
	case <-ctx.Done():
		return nil
	}
	e.notifier.Announce("✓ Setup logfile listener", notify.Success, false)

	if e.status != nil {
		if l, err := e.status.PrepareSocket(); err != nil {
			e.log.Warn("Status socket unavailable", "err", err)
		} else {
			go e.status.Serve(e.runCtx, l)
		}
	}

	e.checker.Enable()
	go e.checker.Run(e.runCtx)

	select {
	case <-ctx.Done():
		e.log.Info("Stop received. Shutting down supervisor.")
	case err := <-tailErr:
		if err != nil {
			e.log.Error("Log watcher stopped", "err", err)
		}
		<-ctx.Done()
	}
	return nil
}

// Personal.AI order the ending
