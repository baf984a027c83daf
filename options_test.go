package tunnelgate

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// logBuffer is a goroutine-safe sink for stumpy's JSON line output.
type logBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (x *logBuffer) Write(p []byte) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.buf.Write(p)
}

func (x *logBuffer) lines() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	s := strings.TrimSuffix(x.buf.String(), "\n")
	if s == `` {
		return nil
	}
	return strings.Split(s, "\n")
}

// collectLogs builds a stumpy-backed logger whose output can be inspected.
func collectLogs(t *testing.T) (*logiface.Logger[logiface.Event], func() []string) {
	t.Helper()
	var buf logBuffer
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(&buf), stumpy.WithTimeField(``)),
		stumpy.L.WithLevel(logiface.LevelDebug),
	).Logger()
	return logger, buf.lines
}

func TestWithLogger_malformedFrameDiagnostic(t *testing.T) {
	logger, logs := collectLogs(t)

	a, b := Pipe()
	gate := NewGate(b, WithLogger(logger))
	t.Cleanup(func() { _ = gate.Close() })

	require.NoError(t, a.Write([]byte(`not a frame`)))

	assert.Eventually(t, func() bool {
		return strings.Contains(strings.Join(logs(), "\n"), `malformed frame dropped`)
	}, time.Second*5, time.Millisecond*10, `malformed frame was not diagnosed`)
}

func TestWithLogger_nilLoggerDisablesOutput(t *testing.T) {
	a, b := Pipe()
	gate := NewGate(b, WithLogger(nil))
	t.Cleanup(func() { _ = gate.Close() })

	// must not panic on the logging paths
	require.NoError(t, a.Write([]byte(`not a frame`)))
	time.Sleep(time.Millisecond * 50)
}

func TestNewGate_nilTransportPanics(t *testing.T) {
	require.Panics(t, func() { NewGate(nil) })
}

func TestNewGate_invalidOptionPanics(t *testing.T) {
	a, _ := Pipe()
	defer a.Close()
	assert.PanicsWithValue(t, `tunnelgate: dispatch loop must not be nil`, func() {
		NewGate(a, WithDispatchLoop(nil))
	})
	b, _ := Pipe()
	defer b.Close()
	require.Panics(t, func() { NewGate(b, WithBaseContext(nil)) })
}

func TestNewGate_nilOptionSkipped(t *testing.T) {
	a, _ := Pipe()
	gate := NewGate(a, nil)
	t.Cleanup(func() { _ = gate.Close() })
	require.NotNil(t, gate)
}

type baseCtxKey struct{}

func TestWithBaseContext_valuesReachHandlers(t *testing.T) {
	ctx := testCtx(t)
	base := context.WithValue(context.Background(), baseCtxKey{}, `from-base`)

	a, b := Pipe()
	caller := NewGate(a)
	callee := NewGate(b, WithBaseContext(base))
	t.Cleanup(func() {
		_ = caller.Close()
		_ = callee.Close()
	})

	main := NewTunnel(`main`)
	require.NoError(t, callee.Register(main, MethodMap{
		`get`: func(ctx context.Context, args []any) (any, error) {
			v, _ := ctx.Value(baseCtxKey{}).(string)
			return v, nil
		},
	}))

	got, err := caller.Establish(main).Invoke(ctx, `get`)
	require.NoError(t, err)
	assert.Equal(t, `from-base`, got)
}

func TestErrorKinds_areDistinct(t *testing.T) {
	kinds := []ErrorKind{
		KindTransport,
		KindUnknownTunnel,
		KindUnknownMethod,
		KindHandler,
		KindMalformedFrame,
		KindConnectionClosed,
		KindSyncUnsupported,
	}
	seen := make(map[ErrorKind]bool, len(kinds))
	for _, k := range kinds {
		assert.False(t, seen[k], `duplicate kind %q`, k)
		seen[k] = true
	}
}
