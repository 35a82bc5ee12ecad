// Package console adapts the Source/Minecraft RCON protocol to the line
// command interface the supervisor components depend on.
package console

import (
	"context"
	"sync"
	"time"

	"github.com/leighmacdonald/rcon/rcon"
	"github.com/turtacn/nightowl/pkg/consts"
	"github.com/turtacn/nightowl/pkg/errors"
	"github.com/turtacn/nightowl/pkg/logger"
)

// Conn is one authenticated remote console session.
type Conn interface {
	Exec(cmd string) (string, error)
	Close() error
}

// DialFunc opens and authenticates a session.
type DialFunc func(ctx context.Context, addr, password string, timeout time.Duration) (Conn, error)

func dialRcon(ctx context.Context, addr, password string, timeout time.Duration) (Conn, error) {
	conn, err := rcon.Dial(ctx, addr, password, timeout)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Client serializes commands over a single session and re-dials lazily
// after a failed command.
type Client struct {
	mu       sync.Mutex
	addr     string
	password string
	timeout  time.Duration
	dial     DialFunc
	conn     Conn
	log      logger.Logger
}

// NewClient returns a Client for addr. Nothing is dialed until Connect or
// the first Execute.
func NewClient(addr, password string, log logger.Logger) *Client {
	return &Client{
		addr:     addr,
		password: password,
		timeout:  consts.DialTimeout,
		dial:     dialRcon,
		log:      log.With("component", "console", "addr", addr),
	}
}

// WithDialer replaces the dial function. Used by tests.
func (c *Client) WithDialer(d DialFunc) *Client {
	c.dial = d
	return c
}

// Connect dials and authenticates. A failure here is fatal at startup.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}
	conn, err := c.dial(ctx, c.addr, c.password, c.timeout)
	if err != nil {
		return errors.New(errors.ErrCodeConsoleConnect, "Connect", "RCON client failed to connect", err)
	}
	c.conn = conn
	c.log.Debug("Console session established")
	return nil
}

// Execute runs cmd and returns the server's textual response. After an
// error the session is dropped and the next call re-dials.
func (c *Client) Execute(ctx context.Context, cmd string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connectLocked(ctx); err != nil {
		return "", err
	}
	resp, err := c.conn.Exec(cmd)
	if err != nil {
		c.log.Warn("Console command failed, dropping session", "cmd", commandName(cmd), "err", err)
		_ = c.conn.Close()
		c.conn = nil
		return "", errors.New(errors.ErrCodeConsoleExec, "Execute", commandName(cmd)+" failed", err)
	}
	return resp, nil
}

// Close ends the session if one is open.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// commandName keeps chat text out of logs.
func commandName(cmd string) string {
	for i := 0; i < len(cmd); i++ {
		if cmd[i] == ' ' {
			return cmd[:i]
		}
	}
	return cmd
}

// Personal.AI order the ending
