// Package dispatch turns operator commands found in the server log into
// supervisor actions.
package dispatch

import (
	"strings"

	"github.com/turtacn/nightowl/internal/monitor"
	"github.com/turtacn/nightowl/internal/notify"
	"github.com/turtacn/nightowl/pkg/consts"
	"github.com/turtacn/nightowl/pkg/logger"
)

// LogCommand is the operator intent recognized in a log line.
type LogCommand int

const (
	None LogCommand = iota
	Sleep
	Cancel
	Resume
	Pause
	Help
)

func (c LogCommand) String() string {
	switch c {
	case Sleep:
		return "sleep"
	case Cancel:
		return "cancel"
	case Resume:
		return "resume"
	case Pause:
		return "pause"
	case Help:
		return "help"
	default:
		return "none"
	}
}

// triggers is checked in order; the first match wins.
var triggers = []struct {
	phrase string
	cmd    LogCommand
}{
	{consts.TriggerSleep, Sleep},
	{consts.TriggerCancel, Cancel},
	{consts.TriggerResume, Resume},
	{consts.TriggerPause, Pause},
	{consts.TriggerHelp, Help},
}

// HelpLines is the listing emitted for the help trigger.
var HelpLines = []string{
	"| " + consts.TriggerSleep + " - start the shutdown countdown",
	"| " + consts.TriggerCancel + " - cancel the shutdown countdown",
	"| " + consts.TriggerResume + " - resume the player count checker",
	"| " + consts.TriggerPause + " - pause the player count checker",
	"| " + consts.TriggerHelp + " - show this help",
}

// Parse maps a log line to a command. Lines relayed from the web bridge and
// echoes of the supervisor's own chat messages always parse as None.
func Parse(line string) LogCommand {
	if strings.Contains(line, consts.WebRelayMarker) {
		return None
	}
	if strings.Contains(line, strings.TrimSpace(consts.SayTag)) {
		return None
	}
	for _, t := range triggers {
		if strings.Contains(line, t.phrase) {
			return t.cmd
		}
	}
	return None
}

// Coordinator is the shutdown side of the dispatcher.
type Coordinator interface {
	RequestShutdown()
	CancelShutdown()
}

// Checker is the idle-checker side of the dispatcher.
type Checker interface {
	Enable()
	Disable()
}

// Dispatcher invokes the action for each recognized line.
type Dispatcher struct {
	shutdown Coordinator
	checker  Checker
	notifier notify.Announcer
	log      logger.Logger
}

func New(shutdown Coordinator, checker Checker, notifier notify.Announcer, log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Discard()
	}
	return &Dispatcher{
		shutdown: shutdown,
		checker:  checker,
		notifier: notifier,
		log:      log.With("component", "dispatch"),
	}
}

// Dispatch acts on the last line of the log. Unrecognized lines are ignored
// silently.
func (d *Dispatcher) Dispatch(line string) LogCommand {
	cmd := Parse(line)
	if cmd == None {
		return None
	}

	monitor.LogCommands.WithLabelValues(cmd.String()).Inc()
	d.log.Info("Log command received", "command", cmd.String())

	switch cmd {
	case Sleep:
		d.shutdown.RequestShutdown()
	case Cancel:
		d.shutdown.CancelShutdown()
	case Resume:
		d.checker.Enable()
	case Pause:
		d.checker.Disable()
	case Help:
		for _, l := range HelpLines {
			d.notifier.Announce(l, notify.Info, true)
		}
	}
	return cmd
}

// Personal.AI order the ending
