package tunnelgate

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstablished_syncPing(t *testing.T) {
	ctx := testCtx(t)
	caller, callee := newGatePair(t)
	main := NewTunnel(`main`, WithSync(`ping`))
	require.NoError(t, callee.Register(main, MethodMap{
		`ping`: func(ctx context.Context, args []any) (any, error) {
			return `pong`, nil
		},
	}))

	got, err := caller.Establish(main).Invoke(ctx, `ping`)
	require.NoError(t, err)
	assert.Equal(t, `pong`, got)
}

func TestEstablished_syncError(t *testing.T) {
	ctx := testCtx(t)
	caller, callee := newGatePair(t)
	main := NewTunnel(`main`, WithSync(`f`))
	require.NoError(t, callee.Register(main, MethodMap{
		`f`: func(ctx context.Context, args []any) (any, error) {
			return nil, newError(KindHandler, `boom`)
		},
	}))

	_, err := caller.Establish(main).Invoke(ctx, `f`)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindHandler, e.Kind)
	assert.Equal(t, `boom`, e.Message)
}

// noPumpTransport wraps a transport, hiding its pump capability, like a host
// primitive that only delivers messages once the calling context returns to
// its event-processing point.
type noPumpTransport struct {
	Transport
}

func (x *noPumpTransport) PumpsWhileBlocked() bool { return false }

func TestEstablished_syncRequiresPumpingTransport(t *testing.T) {
	ctx := testCtx(t)
	a, b := Pipe()
	caller := NewGate(&noPumpTransport{Transport: a})
	callee := NewGate(b)
	t.Cleanup(func() {
		_ = caller.Close()
		_ = callee.Close()
	})

	main := NewTunnel(`main`, WithSync(`ping`))
	require.NoError(t, callee.Register(main, MethodMap{
		`ping`: func(ctx context.Context, args []any) (any, error) {
			return `pong`, nil
		},
	}))
	proxy := caller.Establish(main)

	// sync invocation fails fast, before anything is sent
	_, err := proxy.Invoke(ctx, `ping`)
	require.True(t, IsKind(err, KindSyncUnsupported), `unexpected error: %v`, err)

	// async invocation of the same method name is not affected
	c, err := proxy.Start(ctx, `ping`)
	require.NoError(t, err)
	got, err := c.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, `pong`, got)
}

func TestCall_resultWhilePending(t *testing.T) {
	ctx := testCtx(t)
	caller, callee := newGatePair(t)
	main := NewTunnel(`main`)

	release := make(chan struct{})
	require.NoError(t, callee.Register(main, MethodMap{
		`hang`: func(ctx context.Context, args []any) (any, error) {
			<-release
			return `late`, nil
		},
	}))

	c, err := caller.Establish(main).Start(ctx, `hang`)
	require.NoError(t, err)

	_, err = c.Result()
	assert.ErrorIs(t, err, ErrPending)

	close(release)
	got, err := c.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, `late`, got)

	got, err = c.Result()
	require.NoError(t, err)
	assert.Equal(t, `late`, got)
}

func TestCall_abandonedWaitLeavesCallOutstanding(t *testing.T) {
	ctx := testCtx(t)
	caller, callee := newGatePair(t)
	main := NewTunnel(`main`)

	release := make(chan struct{})
	require.NoError(t, callee.Register(main, MethodMap{
		`hang`: func(ctx context.Context, args []any) (any, error) {
			<-release
			return `eventually`, nil
		},
	}))

	c, err := caller.Establish(main).Start(ctx, `hang`)
	require.NoError(t, err)

	waitCtx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = c.Wait(waitCtx)
	require.ErrorIs(t, err, context.Canceled)

	// abandoning the wait sent nothing remote; the call still resolves
	close(release)
	got, err := c.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, `eventually`, got)
}

func TestEstablished_startFailsOnCancelledContext(t *testing.T) {
	caller, _ := newGatePair(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := caller.Establish(NewTunnel(`main`)).Start(ctx, `f`)
	require.ErrorIs(t, err, context.Canceled)
}

func TestEstablished_invokeAfterGateClose(t *testing.T) {
	ctx := testCtx(t)
	caller, _ := newGatePair(t)
	proxy := caller.Establish(NewTunnel(`main`, WithSync(`s`)))
	require.NoError(t, caller.Close())

	_, err := proxy.Invoke(ctx, `async`)
	assert.ErrorIs(t, err, net.ErrClosed)

	_, err = proxy.Invoke(ctx, `s`)
	assert.ErrorIs(t, err, net.ErrClosed)
}

func TestEstablished_accessors(t *testing.T) {
	caller, _ := newGatePair(t)
	main := NewTunnel(`main`)
	proxy := caller.Establish(main)
	assert.Same(t, main, proxy.Tunnel())
	assert.Same(t, caller, proxy.Gate())
}

func TestEstablished_emptyMethodName(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	caller, _ := newGatePair(t)
	_, err := caller.Establish(NewTunnel(`main`)).Start(ctx, ``)
	require.True(t, IsKind(err, KindUnknownMethod), `unexpected error: %v`, err)
}
