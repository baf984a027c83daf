package tunnelgate

import (
	"context"
	"errors"

	"github.com/joeycumines/logiface"
)

// Loop is the interface required for event-loop-confined dispatch.
// It is satisfied by [github.com/joeycumines/go-eventloop.Loop].
type Loop interface {
	// Submit submits a task for execution on the loop.
	// Returns an error if the loop has been shut down.
	Submit(func()) error
}

// gateOptions holds configuration for a [Gate] instance.
type gateOptions struct {
	logger  *logiface.Logger[logiface.Event]
	loop    Loop
	baseCtx context.Context
}

// Option configures a [Gate] instance. Options are applied during
// construction.
type Option interface {
	applyOption(*gateOptions) error
}

// gateOptionImpl implements [Option] via a closure.
type gateOptionImpl struct {
	fn func(*gateOptions) error
}

func (o *gateOptionImpl) applyOption(opts *gateOptions) error {
	return o.fn(opts)
}

// WithLogger configures the logger used for the gate's local diagnostics
// (malformed frames, stale replies, handler failures). A nil logger is
// valid, and disables output.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &gateOptionImpl{fn: func(opts *gateOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithDispatchLoop configures a [Loop] on which incoming calls are dispatched,
// serializing all handler execution onto the loop goroutine. Without it, each
// incoming call is dispatched on its own goroutine.
//
// Use this for hosts whose handlers must run single-threaded. Note that a
// handler blocking on the loop blocks every subsequent call on that loop,
// including calls for other tunnels on the same gate.
func WithDispatchLoop(loop Loop) Option {
	return &gateOptionImpl{fn: func(opts *gateOptions) error {
		if loop == nil {
			return errors.New(`dispatch loop must not be nil`)
		}
		opts.loop = loop
		return nil
	}}
}

// WithBaseContext configures the context handler invocations derive from,
// defaulting to [context.Background]. The per-message context the transport
// supplies remains retrievable via [MessageContext].
func WithBaseContext(ctx context.Context) Option {
	return &gateOptionImpl{fn: func(opts *gateOptions) error {
		if ctx == nil {
			return errors.New(`base context must not be nil`)
		}
		opts.baseCtx = ctx
		return nil
	}}
}

// resolveOptions applies the given options to a default [gateOptions].
func resolveOptions(opts []Option) (*gateOptions, error) {
	cfg := &gateOptions{baseCtx: context.Background()}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyOption(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
