package tunnelgate

import (
	"context"
	"fmt"
	"sync"

	bigbuff "github.com/joeycumines/go-bigbuff"
	"github.com/joeycumines/logiface"

	"github.com/joeycumines/go-tunnelgate/internal/correlation"
	"github.com/joeycumines/go-tunnelgate/internal/envelope"
)

// Gate is a side-specific endpoint over exactly one physical message channel.
// It multiplexes any number of tunnels: outbound calls from [Established]
// proxies, and inbound calls routed to handlers registered via
// [Gate.Register]. Two communicating contexts hold complementary Gate
// instances over the same channel.
//
// A Gate owns its correlation state and handler registry, but not the
// transport it wraps, which is injected via [NewGate]. Create instances with
// [NewGate]; the zero value is not usable.
//
// A Gate is safe for concurrent use from multiple goroutines. Multiple calls
// may be in flight simultaneously; replies correlate per call id and carry no
// ordering guarantee relative to unrelated calls.
type Gate struct {
	baseCtx   context.Context
	transport Transport
	logger    *logiface.Logger[logiface.Event]
	loop      Loop
	err       error
	done      chan struct{}
	notifier  bigbuff.Notifier
	table     correlation.Table
	handlers  handlerMap
	mu        sync.Mutex
	closed    bool
}

// NewGate wraps a transport in a gate and installs its receive path.
// NewGate panics on a nil transport or an invalid option (programming
// errors). The gate is live immediately: frames arriving on the transport
// are processed as soon as NewGate returns.
func NewGate(transport Transport, opts ...Option) *Gate {
	if transport == nil {
		panic(`tunnelgate: transport must not be nil`)
	}
	cfg, err := resolveOptions(opts)
	if err != nil {
		panic(fmt.Sprintf(`tunnelgate: %s`, err))
	}
	g := &Gate{
		transport: transport,
		logger:    cfg.logger,
		loop:      cfg.loop,
		baseCtx:   cfg.baseCtx,
		done:      make(chan struct{}),
	}
	transport.OnMessage(g.receive)
	return g
}

// Register exposes a handler for incoming calls on the tunnel's id.
// At most one handler per id: a duplicate registration is rejected.
func (g *Gate) Register(tunnel *Tunnel, handler Handler) error {
	if tunnel == nil {
		return fmt.Errorf(`tunnelgate: tunnel must not be nil`)
	}
	if handler == nil {
		return fmt.Errorf(`tunnelgate: handler must not be nil`)
	}
	return g.handlers.register(tunnel.ID(), handler)
}

// Unregister removes the handler for the given tunnel id, if any. Calls
// already dispatched continue to completion; subsequent calls for the id
// fail with [KindUnknownTunnel].
func (g *Gate) Unregister(id string) {
	g.handlers.unregister(id)
}

// Establish binds a tunnel descriptor to this gate, returning the local
// proxy used to invoke methods on the remote handler. The proxy is stateless
// beyond the binding; any number may share one gate.
func (g *Gate) Establish(tunnel *Tunnel) *Established {
	if tunnel == nil {
		panic(`tunnelgate: tunnel must not be nil`)
	}
	return &Established{gate: g, tunnel: tunnel}
}

// Close closes the underlying transport and fails every outstanding call
// with a [KindConnectionClosed] error, exactly once each. Subsequent sends
// fail, and subsequent Close calls are no-ops returning the original result.
func (g *Gate) Close() error {
	g.mu.Lock()
	if g.closed {
		err := g.err
		g.mu.Unlock()
		return err
	}
	g.closed = true
	g.err = g.transport.Close()
	err := g.err
	close(g.done)
	g.mu.Unlock()

	g.table.FailAll(newError(KindConnectionClosed, `gate closed`))

	g.logger.Debug().Log(`gate closed`)
	return err
}

// Done is closed when the gate has been closed.
func (g *Gate) Done() <-chan struct{} { return g.done }

// Err returns the transport close error, if the gate has been closed.
func (g *Gate) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

func (g *Gate) isClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// send serializes and writes one envelope, classifying failures.
func (g *Gate) send(e *envelope.Envelope) error {
	if g.isClosed() {
		return newError(KindConnectionClosed, `gate closed`)
	}
	frame, err := e.Marshal()
	if err != nil {
		return wrapError(KindTransport, `encode failed`, err)
	}
	if err := g.transport.Write(frame); err != nil {
		if g.isClosed() {
			return wrapError(KindConnectionClosed, `gate closed`, err)
		}
		return wrapError(KindTransport, `write failed`, err)
	}
	return nil
}

// receive is the transport's inbound entry point. It fans a frame out to the
// dispatcher (calls) or the correlation table (replies). Malformed frames
// and stale replies are absorbed here: they are diagnosed locally and never
// surface to unrelated callers.
func (g *Gate) receive(ctx context.Context, frame []byte) {
	if g.isClosed() {
		return
	}
	e, err := envelope.Unmarshal(frame)
	if err != nil {
		g.logger.Warning().
			Err(err).
			Int(`bytes`, len(frame)).
			Log(`malformed frame dropped`)
		return
	}

	g.publish(ctx, e)

	switch e.Kind {
	case envelope.KindCall:
		g.dispatch(ctx, e)
	case envelope.KindResponse:
		if !g.table.Resolve(e.CallID, e.Result.AsInterface()) {
			g.logStaleReply(e)
		}
	case envelope.KindError:
		kind := ErrorKind(e.Err.Kind)
		if kind == `` {
			kind = KindHandler
		}
		if !g.table.Reject(e.CallID, newError(kind, e.Err.Message)) {
			g.logStaleReply(e)
		}
	}
}

func (g *Gate) logStaleReply(e *envelope.Envelope) {
	g.logger.Debug().
		Str(`tunnel`, e.TunnelID).
		Uint64(`call`, e.CallID).
		Str(`kind`, string(e.Kind)).
		Log(`stale reply dropped`)
}
