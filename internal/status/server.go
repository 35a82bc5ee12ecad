package status

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"time"

	"github.com/turtacn/nightowl/pkg/errors"
	"github.com/turtacn/nightowl/pkg/logger"
)

// Snapshot is the supervisor state reported to `nightowl status`.
type Snapshot struct {
	RunID              string `json:"run_id"`
	ShutdownInProgress bool   `json:"shutdown_in_progress"`
	ShutdownState      string `json:"shutdown_state"`
	CheckerEnabled     bool   `json:"checker_enabled"`
	ConsecutiveEmpty   int    `json:"consecutive_empty"`
	Threshold          int    `json:"threshold"`
	IntervalSeconds    int64  `json:"interval_seconds"`
}

// Provider builds a fresh snapshot per request.
type Provider func() Snapshot

// Server answers every connection on a unix socket with one JSON snapshot.
type Server struct {
	socketPath string
	provider   Provider
	log        logger.Logger
}

func NewServer(path string, provider Provider, log logger.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}
	return &Server{socketPath: path, provider: provider, log: log.With("component", "status", "socket", path)}
}

// PrepareSocket creates the unix domain socket, replacing a stale one.
func (s *Server) PrepareSocket() (net.Listener, error) {
	if _, err := os.Stat(s.socketPath); err == nil {
		os.Remove(s.socketPath)
	}
	l, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return nil, errors.New(errors.ErrCodeStatusSocket, "PrepareSocket", "cannot listen on "+s.socketPath, err)
	}
	// Only the owning user may read supervisor state
	os.Chmod(s.socketPath, 0700)
	return l, nil
}

// Serve accepts connections on l until ctx is done, then removes the socket.
func (s *Server) Serve(ctx context.Context, l net.Listener) {
	defer os.Remove(s.socketPath)

	go func() {
		<-ctx.Done()
		l.Close()
	}()

	s.log.Info("Status socket listening")
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn("Status accept failed", "err", err)
			continue
		}
		go s.reply(conn)
	}
}

func (s *Server) reply(conn net.Conn) {
	defer conn.Close()
	conn.SetWriteDeadline(time.Now().Add(time.Second))
	if err := json.NewEncoder(conn).Encode(s.provider()); err != nil {
		s.log.Debug("Status reply failed", "err", err)
	}
}

// Query dials the socket at path and decodes one snapshot.
func Query(path string, timeout time.Duration) (Snapshot, error) {
	var snap Snapshot
	conn, err := net.DialTimeout("unix", path, timeout)
	if err != nil {
		return snap, errors.New(errors.ErrCodeStatusSocket, "QueryStatus", "nightowl is not running or "+path+" is unreachable", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(timeout))
	if err := json.NewDecoder(conn).Decode(&snap); err != nil {
		return snap, errors.New(errors.ErrCodeStatusSocket, "QueryStatus", "invalid status reply", err)
	}
	return snap, nil
}

// Personal.AI order the ending
