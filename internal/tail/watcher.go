// Package tail reports the last line of a log file every time it changes.
package tail

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/turtacn/nightowl/pkg/errors"
	"github.com/turtacn/nightowl/pkg/logger"
)

// maxLineBytes bounds how far back from EOF LastLine reads.
const maxLineBytes = 64 * 1024

// Handler receives the last line after each modification.
type Handler func(line string)

// Watcher follows a single file. It watches the parent directory so a log
// that is rotated and recreated under the same name keeps being followed.
type Watcher struct {
	path  string
	log   logger.Logger
	ready chan struct{}
	last  string
}

// New returns a Watcher for path.
func New(path string, log logger.Logger) *Watcher {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Watcher{
		path:  filepath.Clean(path),
		log:   log.With("component", "tail", "file", path),
		ready: make(chan struct{}),
	}
}

// Path returns the absolute path being followed.
func (w *Watcher) Path() string {
	return w.path
}

// Check fails when the file does not exist or is not a regular file.
func (w *Watcher) Check() error {
	fi, err := os.Stat(w.path)
	if err != nil {
		return errors.New(errors.ErrCodeLogFileMissing, "CheckLogFile", "Logfile "+w.path+" does not exist", err)
	}
	if !fi.Mode().IsRegular() {
		return errors.New(errors.ErrCodeLogFileMissing, "CheckLogFile", w.path+" is not a regular file", nil)
	}
	return nil
}

// Ready is closed once the watch is registered.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run delivers lines to h until ctx is done. h runs on the Run goroutine,
// one event at a time.
func (w *Watcher) Run(ctx context.Context, h Handler) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.New(errors.ErrCodeWatcherFailed, "WatchLogFile", "cannot create watcher", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return errors.New(errors.ErrCodeWatcherFailed, "WatchLogFile", "cannot watch "+filepath.Dir(w.path), err)
	}
	close(w.ready)
	w.log.Info("Log watcher started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				w.deliver(h)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("Log watcher error", "err", err)
		}
	}
}

// deliver skips a line identical to the previous one, since one append can
// raise several write events.
func (w *Watcher) deliver(h Handler) {
	line, err := LastLine(w.path)
	if err != nil {
		w.log.Debug("Cannot read last line", "err", err)
		return
	}
	if line == "" || line == w.last {
		return
	}
	w.last = line
	h(line)
}

// LastLine returns the final line of the file at path, without its line
// terminator. Only the trailing maxLineBytes are inspected.
func LastLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return "", err
	}
	size := fi.Size()
	off := size - maxLineBytes
	if off < 0 {
		off = 0
	}
	buf := make([]byte, size-off)
	if _, err := f.ReadAt(buf, off); err != nil && err != io.EOF {
		return "", err
	}

	buf = bytes.TrimSuffix(buf, []byte("\n"))
	buf = bytes.TrimSuffix(buf, []byte("\r"))
	if i := bytes.LastIndexByte(buf, '\n'); i >= 0 {
		buf = buf[i+1:]
	}
	return string(buf), nil
}

// Personal.AI order the ending
