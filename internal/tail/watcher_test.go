package tail

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/nightowl/pkg/errors"
)

func TestLastLine(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"one\ntwo\nthree\n": "three",
		"one\ntwo\nthree":   "three",
		"only":              "only",
		"crlf\r\nlast\r\n":  "last",
		"":                  "",
		"one\n\n":           "",
	}
	i := 0
	for body, want := range cases {
		path := filepath.Join(dir, "log"+string(rune('a'+i)))
		i++
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		got, err := LastLine(path)
		require.NoError(t, err)
		assert.Equal(t, want, got, "%q", body)
	}
}

func TestLastLine_LongFileReadsTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.log")
	body := strings.Repeat("filler line\n", 20000) + "nightowl sleep\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	got, err := LastLine(path)
	require.NoError(t, err)
	assert.Equal(t, "nightowl sleep", got)
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	w := New(filepath.Join(dir, "missing.log"), nil)
	err := w.Check()
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeLogFileMissing, errors.CodeOf(err))

	w = New(dir, nil)
	assert.Equal(t, errors.ErrCodeLogFileMissing, errors.CodeOf(w.Check()), "directories are rejected")

	path := filepath.Join(dir, "latest.log")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	assert.NoError(t, New(path, nil).Check())
}

type lines struct {
	mu  sync.Mutex
	got []string
}

func (l *lines) handle(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.got = append(l.got, s)
}

func (l *lines) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.got...)
}

func appendLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o600)
	require.NoError(t, err)
	_, err = f.WriteString(line + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func startWatcher(t *testing.T, path string) (*lines, func()) {
	t.Helper()
	w := New(path, nil)
	got := &lines{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, got.handle) }()

	select {
	case <-w.Ready():
	case err := <-done:
		t.Fatalf("watcher exited early: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher not ready")
	}
	return got, func() {
		cancel()
		assert.NoError(t, <-done)
	}
}

func TestRun_DeliversAppendedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "latest.log")
	other := filepath.Join(dir, "other.log")
	require.NoError(t, os.WriteFile(path, []byte("boot\n"), 0o600))

	got, stop := startWatcher(t, path)
	defer stop()

	appendLine(t, other, "nightowl sleep")
	appendLine(t, path, "[12:00:00] <bob> nightowl pause")
	require.Eventually(t, func() bool {
		s := got.snapshot()
		return len(s) > 0 && s[len(s)-1] == "[12:00:00] <bob> nightowl pause"
	}, 2*time.Second, 5*time.Millisecond)

	appendLine(t, path, "[12:00:05] <bob> nightowl resume")
	require.Eventually(t, func() bool {
		s := got.snapshot()
		return len(s) > 0 && s[len(s)-1] == "[12:00:05] <bob> nightowl resume"
	}, 2*time.Second, 5*time.Millisecond)

	for _, l := range got.snapshot() {
		assert.NotEqual(t, "nightowl sleep", l, "events for other files must be ignored")
	}
}

func TestRun_DeduplicatesRepeatedEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latest.log")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	got, stop := startWatcher(t, path)
	defer stop()

	appendLine(t, path, "line one")
	require.Eventually(t, func() bool { return len(got.snapshot()) == 1 }, 2*time.Second, 5*time.Millisecond)

	// Touching the file without a new line raises a write event.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, err = f.WriteString("")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, os.Chtimes(path, time.Now(), time.Now()))

	appendLine(t, path, "line two")
	require.Eventually(t, func() bool { return len(got.snapshot()) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"line one", "line two"}, got.snapshot())
}

func TestRun_FollowsRecreatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latest.log")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o600))

	got, stop := startWatcher(t, path)
	defer stop()

	require.NoError(t, os.Rename(path, path+".1"))
	require.NoError(t, os.WriteFile(path, []byte("fresh log\n"), 0o600))

	require.Eventually(t, func() bool {
		s := got.snapshot()
		return len(s) > 0 && s[len(s)-1] == "fresh log"
	}, 2*time.Second, 5*time.Millisecond)
}

func TestRun_MissingDirectory(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "nope", "latest.log"), nil)
	err := w.Run(context.Background(), func(string) {})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeWatcherFailed, errors.CodeOf(err))
}
