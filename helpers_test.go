package injector

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type logEntry struct {
	level string
	msg   string
	args  []any
}

// recordingLogger captures log calls for assertions.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *recordingLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *recordingLogger) Error(msg string, args ...any) { l.add("error", msg, args) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *recordingLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }

func (l *recordingLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

type thing struct {
	id int64
}

var thingSeq atomic.Int64

func newThing() *thing {
	return &thing{id: thingSeq.Add(1)}
}

// recorder collects an ordered trace from concurrent callers.
type recorder struct {
	mu    sync.Mutex
	trace []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trace = append(r.trace, s)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.trace...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trace = nil
}

func mustContainer(t *testing.T, name string, entries ...Entry) *Container {
	t.Helper()
	c, err := NewContainer(name, WithProviders(entries...))
	require.NoError(t, err)
	return c
}

func mustProvide(t *testing.T, p Provider, args ...any) any {
	t.Helper()
	v, err := p.Provide(context.Background(), args...)
	require.NoError(t, err)
	return v
}

func mustResolve(t *testing.T, c *Container, name string, args ...any) any {
	t.Helper()
	v, err := c.Resolve(context.Background(), name, args...)
	require.NoError(t, err)
	return v
}
