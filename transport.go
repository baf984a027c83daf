package tunnelgate

import "context"

type (
	// Transport is the narrow contract a gate consumes, implemented once per
	// host channel primitive (message port, inter-process pipe, etc.). The
	// gate owns neither the channel nor its lifecycle beyond [Transport.Close].
	//
	// Implementations must deliver frames reliably and in order, must invoke
	// the [Transport.OnMessage] callback serially (one frame at a time), and
	// must ensure no further callbacks fire after Close returns.
	Transport interface {
		// Write hands one serialized frame to the underlying channel.
		// It fails if the channel is closed or the write fails; [net.ErrClosed]
		// is the conventional closed-channel error.
		Write(frame []byte) error

		// OnMessage registers the callback invoked with each inbound frame.
		// The context is the opaque per-message value the host primitive
		// supplies (sender identity and the like); implementations with no
		// such metadata pass [context.Background]. At most one callback may
		// be registered, before any frames are delivered.
		OnMessage(fn func(ctx context.Context, frame []byte))

		// Close closes the underlying channel. Safe to call more than once.
		Close() error
	}

	// Pumper is an optional [Transport] capability reporting whether inbound
	// frames continue to be delivered while the calling goroutine blocks.
	// Synchronous call mode requires it: on a transport that needs the
	// calling context to return to its event-processing point before any
	// frame (including the awaited reply) can be delivered, a blocking wait
	// would deadlock. Transports that do not implement Pumper are assumed
	// not to pump.
	Pumper interface {
		PumpsWhileBlocked() bool
	}
)
