// Package notify writes supervisor status lines to the local console and,
// for state-changing events, to the managed server's chat.
package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/turtacn/nightowl/internal/monitor"
	"github.com/turtacn/nightowl/pkg/consts"
	"github.com/turtacn/nightowl/pkg/logger"
)

// Severity selects the console color of a message.
type Severity int

const (
	Info     Severity = iota // cyan
	Progress                 // yellow
	Warning                  // red
	Success                  // green
)

func (s Severity) String() string {
	switch s {
	case Progress:
		return "progress"
	case Warning:
		return "warning"
	case Success:
		return "success"
	default:
		return "info"
	}
}

// Announcer is what the other components depend on.
type Announcer interface {
	Announce(msg string, sev Severity, alsoToServer bool)
}

// Sender delivers a console command to the managed server.
type Sender interface {
	Execute(ctx context.Context, cmd string) (string, error)
}

// DefaultQueueSize bounds the number of server messages waiting to be sent.
const DefaultQueueSize = 64

type outgoing struct {
	text string
	done chan struct{} // non-nil for flush markers
}

// Notifier is safe for concurrent use. Console writes happen inline;
// server messages go through a FIFO outbox drained by Run.
type Notifier struct {
	mu     sync.Mutex
	out    io.Writer
	styles map[Severity]lipgloss.Style

	sender Sender
	outbox chan outgoing
	log    logger.Logger
}

// New returns a Notifier writing to out and sending through sender.
func New(sender Sender, out io.Writer, log logger.Logger, queueSize int) *Notifier {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	r := lipgloss.NewRenderer(out)
	return &Notifier{
		out: out,
		styles: map[Severity]lipgloss.Style{
			Info:     r.NewStyle().Foreground(lipgloss.Color("6")),
			Progress: r.NewStyle().Foreground(lipgloss.Color("3")),
			Warning:  r.NewStyle().Foreground(lipgloss.Color("1")),
			Success:  r.NewStyle().Foreground(lipgloss.Color("2")),
		},
		sender: sender,
		outbox: make(chan outgoing, queueSize),
		log:    log.With("component", "notifier"),
	}
}

// Announce always prints msg locally. With alsoToServer it queues a tagged
// say command. The caller's state change has already committed, so a full
// queue or a failed send is logged and counted but never returned.
func (n *Notifier) Announce(msg string, sev Severity, alsoToServer bool) {
	n.mu.Lock()
	fmt.Fprintln(n.out, n.styles[sev].Render(msg))
	n.mu.Unlock()

	if !alsoToServer {
		return
	}
	select {
	case n.outbox <- outgoing{text: msg}:
	default:
		monitor.NotificationFailures.WithLabelValues("dropped").Inc()
		n.log.Warn("Server notification queue full, dropping message", "msg", msg)
	}
}

// Run sends queued messages until ctx is done.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-n.outbox:
			if m.done != nil {
				close(m.done)
				continue
			}
			n.send(ctx, m.text)
		}
	}
}

func (n *Notifier) send(ctx context.Context, text string) {
	if _, err := n.sender.Execute(ctx, consts.CmdSay+" "+consts.SayTag+text); err != nil {
		monitor.NotificationFailures.WithLabelValues("send").Inc()
		n.log.Warn("Server notification failed", "msg", text, "err", err)
		return
	}
	n.log.Debug("Server notification sent", "msg", text)
}

// Flush blocks until every message queued before the call has been handled
// by Run, or ctx is done.
func (n *Notifier) Flush(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case n.outbox <- outgoing{done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Personal.AI order the ending
