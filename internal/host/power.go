package host

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/turtacn/nightowl/pkg/errors"
	"github.com/turtacn/nightowl/pkg/logger"
)

// PowerManager schedules the machine power-off once the game server has
// been stopped. The delay is passed to the command as "+<minutes>", the
// argument form understood by shutdown(8).
type PowerManager struct {
	command []string
	log     logger.Logger
}

// NewPowerManager returns a PowerManager running command, e.g. ["shutdown"]
// or ["sudo", "shutdown", "-h"].
func NewPowerManager(command []string, log logger.Logger) *PowerManager {
	if log == nil {
		log = logger.Discard()
	}
	return &PowerManager{command: command, log: log.With("component", "host")}
}

// Args returns the full argument vector for delay. Delays are rounded up
// to whole minutes.
func (pm *PowerManager) Args(delay time.Duration) []string {
	minutes := int((delay + time.Minute - 1) / time.Minute)
	if minutes < 0 {
		minutes = 0
	}
	args := append([]string(nil), pm.command...)
	return append(args, fmt.Sprintf("+%d", minutes))
}

// SchedulePowerOff runs the power-off command and waits for it to return.
// shutdown(8) returns once the power-off is scheduled.
func (pm *PowerManager) SchedulePowerOff(ctx context.Context, delay time.Duration) error {
	if len(pm.command) == 0 {
		return errors.New(errors.ErrCodePowerOffFailed, "SchedulePowerOff", "no power-off command configured", nil)
	}

	args := pm.Args(delay)
	pm.log.Info("Host: Scheduling power-off", "cmd", args)
	out, err := exec.CommandContext(ctx, args[0], args[1:]...).CombinedOutput()
	if msg := strings.TrimSpace(string(out)); msg != "" {
		pm.log.Info("Host: power-off command output", "output", msg)
	}
	if err != nil {
		return errors.New(errors.ErrCodePowerOffFailed, "SchedulePowerOff", strings.Join(args, " "), err)
	}
	return nil
}

// Personal.AI order the ending
