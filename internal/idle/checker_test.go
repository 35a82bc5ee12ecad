package idle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/nightowl/internal/notify"
)

type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) Announce(msg string, sev notify.Severity, alsoToServer bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

func (r *recorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		return ""
	}
	return r.msgs[len(r.msgs)-1]
}

// scriptedConsole answers "list" with the next player count in the script.
type scriptedConsole struct {
	mu      sync.Mutex
	counts  []int
	err     error
	queries int
	hook    func() // runs during the query, outside any checker lock
}

func (s *scriptedConsole) Execute(ctx context.Context, cmd string) (string, error) {
	s.mu.Lock()
	s.queries++
	hook := s.hook
	var n int
	if len(s.counts) > 0 {
		n, s.counts = s.counts[0], s.counts[1:]
	}
	err := s.err
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("There are %d of a max of 20 players online:", n), nil
}

type shutdownCounter struct{ n atomic.Int32 }

func (s *shutdownCounter) RequestShutdown() { s.n.Add(1) }

func newChecker(console *scriptedConsole, threshold int) (*Checker, *recorder, *shutdownCounter) {
	rec := &recorder{}
	sd := &shutdownCounter{}
	c := New(Options{
		Console:   console,
		Notifier:  rec,
		Shutdown:  sd,
		Interval:  time.Hour,
		Threshold: threshold,
	})
	return c, rec, sd
}

func sampleN(c *Checker, n int) {
	for i := 0; i < n; i++ {
		c.Sample(context.Background())
	}
}

func TestEnable_Idempotent(t *testing.T) {
	c, rec, _ := newChecker(&scriptedConsole{counts: []int{0}}, 5)

	c.Enable()
	c.Sample(context.Background())
	require.Equal(t, 1, c.ConsecutiveEmpty())

	c.Enable()
	assert.Equal(t, "! Player count checker already running", rec.last())
	assert.True(t, c.Enabled())
	assert.Equal(t, 1, c.ConsecutiveEmpty(), "second enable must not touch the counter")
}

func TestDisable_NotRunning(t *testing.T) {
	c, rec, _ := newChecker(&scriptedConsole{}, 1)

	c.Disable()
	assert.Equal(t, []string{"! Player count checker is not running"}, rec.messages())
	assert.False(t, c.Enabled())
}

func TestDisable_ResetsCounter(t *testing.T) {
	c, rec, _ := newChecker(&scriptedConsole{counts: []int{0, 0}}, 5)
	c.Enable()
	sampleN(c, 2)
	require.Equal(t, 2, c.ConsecutiveEmpty())

	c.Disable()
	assert.Equal(t, 0, c.ConsecutiveEmpty())
	assert.Equal(t, "| Pausing player count checker", rec.last())
}

func TestThresholdIsStrictlyGreater(t *testing.T) {
	console := &scriptedConsole{counts: []int{0, 0}}
	c, _, sd := newChecker(console, 2)
	c.Enable()

	sampleN(c, 2)
	assert.Equal(t, int32(0), sd.n.Load(), "[0,0] must not trigger with threshold 2")
	assert.Equal(t, 2, c.ConsecutiveEmpty())

	console.counts = []int{0}
	c.Sample(context.Background())
	assert.Equal(t, int32(1), sd.n.Load(), "[0,0,0] must trigger with threshold 2")
	assert.False(t, c.Enabled(), "checker disables itself on trigger")
	assert.Equal(t, 0, c.ConsecutiveEmpty())

	// Further ticks while disabled neither query nor re-trigger.
	queries := console.queries
	sampleN(c, 3)
	assert.Equal(t, queries, console.queries)
	assert.Equal(t, int32(1), sd.n.Load())
}

func TestThresholdZeroTriggersOnFirstEmpty(t *testing.T) {
	c, _, sd := newChecker(&scriptedConsole{counts: []int{0}}, 0)
	c.Enable()
	c.Sample(context.Background())
	assert.Equal(t, int32(1), sd.n.Load())
}

func TestCounterTracksTrailingEmptyRun(t *testing.T) {
	samples := []int{0, 0, 3, 0, 1, 0, 0, 0}
	c, rec, sd := newChecker(&scriptedConsole{counts: samples}, 100)
	c.Enable()

	want := 0
	for _, n := range samples {
		c.Sample(context.Background())
		if n == 0 {
			want++
			assert.Equal(t, fmt.Sprintf("- No players found %d time(s) in a row", want), rec.last())
		} else {
			want = 0
			assert.Equal(t, fmt.Sprintf("- Found %d players", n), rec.last())
		}
		assert.Equal(t, want, c.ConsecutiveEmpty())
	}
	assert.Equal(t, int32(0), sd.n.Load())
}

func TestQueryErrorLeavesCounterAndContinues(t *testing.T) {
	console := &scriptedConsole{counts: []int{0}}
	c, rec, _ := newChecker(console, 5)
	c.Enable()
	c.Sample(context.Background())

	console.err = errors.New("i/o timeout")
	c.Sample(context.Background())
	assert.Equal(t, 1, c.ConsecutiveEmpty())
	assert.Contains(t, rec.last(), "! Player count check failed")

	console.err = nil
	console.counts = []int{0}
	c.Sample(context.Background())
	assert.Equal(t, 2, c.ConsecutiveEmpty())
}

func TestDisabledTickSkipsQuery(t *testing.T) {
	console := &scriptedConsole{counts: []int{0}}
	c, _, _ := newChecker(console, 5)

	c.Sample(context.Background())
	assert.Equal(t, 0, console.queries)
	assert.Equal(t, 0, c.ConsecutiveEmpty())
}

func TestToggleDuringQueryDiscardsSample(t *testing.T) {
	console := &scriptedConsole{counts: []int{0, 0}}
	c, _, _ := newChecker(console, 5)
	c.Enable()
	c.Sample(context.Background())
	require.Equal(t, 1, c.ConsecutiveEmpty())

	console.hook = func() {
		c.Disable()
		c.Enable()
	}
	c.Sample(context.Background())

	assert.True(t, c.Enabled())
	assert.Equal(t, 0, c.ConsecutiveEmpty(), "re-enabling starts from a clean count")
}

func TestRunSamplesOnInterval(t *testing.T) {
	console := &scriptedConsole{counts: []int{0, 0, 0}}
	rec := &recorder{}
	sd := &shutdownCounter{}
	c := New(Options{
		Console:   console,
		Notifier:  rec,
		Shutdown:  sd,
		Interval:  5 * time.Millisecond,
		Threshold: 1,
	})
	c.Enable()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return sd.n.Load() == 1 }, 2*time.Second, time.Millisecond)
	cancel()
	<-done
	assert.Contains(t, rec.messages(), "| Server idle, pausing player count checker")
	assert.Equal(t, int32(1), sd.n.Load())
}

func TestConcurrentToggleNoLostUpdate(t *testing.T) {
	console := &scriptedConsole{}
	c, _, _ := newChecker(console, 1<<30)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var samplers sync.WaitGroup
	samplers.Add(1)
	go func() {
		defer samplers.Done()
		for ctx.Err() == nil {
			c.Sample(ctx)
		}
	}()

	for round := 0; round < 200; round++ {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Enable()
		}()
		go func() {
			defer wg.Done()
			c.Disable()
		}()
		wg.Wait()

		// A final serialized call must always win.
		if round%2 == 0 {
			c.Enable()
			assert.True(t, c.Enabled())
		} else {
			c.Disable()
			assert.False(t, c.Enabled())
			assert.Equal(t, 0, c.ConsecutiveEmpty())
		}
	}
	cancel()
	samplers.Wait()
}
