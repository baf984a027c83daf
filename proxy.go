package tunnelgate

import (
	"context"
	"errors"
	"sync"

	"github.com/joeycumines/go-tunnelgate/internal/envelope"
)

// ErrPending is returned by [Call.Result] while the call has not settled.
var ErrPending = errors.New(`tunnelgate: call pending`)

type (
	// Established is a local proxy bound to a (tunnel, gate) pair. Method
	// invocations become call envelopes sent on the gate; replies settle the
	// returned [Call], or the blocking wait for synchronous methods.
	//
	// An Established is stateless beyond its binding and has the same
	// lifetime as its gate: invocations after the gate closes fail with
	// [KindConnectionClosed].
	Established struct {
		gate   *Gate
		tunnel *Tunnel
	}

	// Call is the deferred result of one asynchronous invocation. It settles
	// exactly once, with the remote result, the remote failure, or a
	// [KindConnectionClosed] error if the gate closes first. Abandoning a
	// Call is permitted, and signals nothing to the remote handler.
	Call struct {
		result any
		err    error
		done   chan struct{}
		once   sync.Once
	}
)

// Tunnel returns the descriptor the proxy is bound to.
func (x *Established) Tunnel() *Tunnel { return x.tunnel }

// Gate returns the gate the proxy is bound to.
func (x *Established) Gate() *Gate { return x.gate }

// Start sends an asynchronous call, returning a deferred [Call] that settles
// when the matching reply arrives or the gate closes. Failures before the
// envelope is handed to the transport (unsupported argument values, closed
// gate, write failure) are returned immediately.
//
// Start ignores the method's call mode: it is the asynchronous primitive
// [Established.Invoke] builds on.
func (x *Established) Start(ctx context.Context, method string, args ...any) (*Call, error) {
	if method == `` {
		return nil, newError(KindUnknownMethod, `method name must not be empty`)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vals, err := envelope.EncodeArgs(args)
	if err != nil {
		return nil, wrapError(KindTransport, `unsupported argument`, err)
	}

	c := &Call{done: make(chan struct{})}
	id := x.gate.table.Register(c.settle)

	if err := x.gate.send(&envelope.Envelope{
		TunnelID: x.tunnel.ID(),
		CallID:   id,
		Kind:     envelope.KindCall,
		Method:   method,
		Args:     vals,
	}); err != nil {
		// settle and remove the entry; the reply will never come
		x.gate.table.Reject(id, err)
		return nil, err
	}
	return c, nil
}

// Invoke sends a call and waits for its outcome, honouring the method's call
// mode. Asynchronous methods (the default) suspend on ctx: cancellation
// abandons the call without affecting the remote handler. Synchronous
// methods block on the reply alone, with no context suspension, and require
// a transport that pumps inbound frames while the caller blocks; invoking
// one over any other transport fails fast with [KindSyncUnsupported].
//
// Remote failures are reconstructed as *[Error] carrying the original
// message and kind, regardless of call mode.
func (x *Established) Invoke(ctx context.Context, method string, args ...any) (any, error) {
	if x.tunnel.Sync(method) {
		return x.invokeSync(ctx, method, args)
	}
	c, err := x.Start(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	return c.Wait(ctx)
}

func (x *Established) invokeSync(ctx context.Context, method string, args []any) (any, error) {
	if p, ok := x.gate.transport.(Pumper); !ok || !p.PumpsWhileBlocked() {
		return nil, newError(KindSyncUnsupported,
			`transport does not pump inbound frames while the caller blocks`)
	}
	c, err := x.Start(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	<-c.done
	return c.result, c.err
}

// settle records the terminal outcome. Safe to call more than once; only the
// first outcome is observed.
func (c *Call) settle(result any, err error) {
	c.once.Do(func() {
		c.result = result
		c.err = err
		close(c.done)
	})
}

// Done is closed when the call has settled.
func (c *Call) Done() <-chan struct{} { return c.done }

// Result returns the settled outcome, or [ErrPending] if the call is still
// outstanding. Prefer [Call.Wait] unless Done is already known closed.
func (c *Call) Result() (any, error) {
	select {
	case <-c.done:
		return c.result, c.err
	default:
		return nil, ErrPending
	}
}

// Wait blocks until the call settles or ctx is done. Context cancellation
// abandons the call: the correlation entry remains until the reply arrives
// or the gate closes, and the eventual outcome is simply ignored.
func (c *Call) Wait(ctx context.Context) (any, error) {
	select {
	case <-c.done:
		return c.result, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
