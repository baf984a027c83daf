package tunnelgate

import (
	"context"
	"net"
	"sync"
)

// Pipe returns a connected pair of in-memory transports. Frames written to
// one end are delivered, in order, to the other end's OnMessage callback on
// a dedicated pump goroutine per end, so the pair supports synchronous call
// mode. Closing either end stops delivery in both directions.
//
// The queue between the ends is unbounded; the pair never drops or reorders
// frames while open.
func Pipe() (Transport, Transport) {
	a := &pipeEnd{}
	b := &pipeEnd{}
	a.peer, b.peer = b, a
	a.cond.L = &a.mu
	b.cond.L = &b.mu
	return a, b
}

type pipeEnd struct {
	peer   *pipeEnd
	fn     func(ctx context.Context, frame []byte)
	queue  [][]byte
	cond   sync.Cond
	mu     sync.Mutex
	closed bool
}

func (x *pipeEnd) Write(frame []byte) error {
	x.mu.Lock()
	closed := x.closed
	x.mu.Unlock()
	if closed {
		return net.ErrClosed
	}
	return x.peer.deliver(frame)
}

func (x *pipeEnd) deliver(frame []byte) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return net.ErrClosed
	}
	buf := make([]byte, len(frame))
	copy(buf, frame)
	x.queue = append(x.queue, buf)
	x.cond.Signal()
	return nil
}

func (x *pipeEnd) OnMessage(fn func(ctx context.Context, frame []byte)) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.fn != nil {
		panic(`tunnelgate: pipe callback already registered`)
	}
	x.fn = fn
	go x.pump(fn)
}

// pump delivers queued frames until the end closes. Frames queued before
// OnMessage was registered are delivered first, preserving order.
func (x *pipeEnd) pump(fn func(ctx context.Context, frame []byte)) {
	for {
		x.mu.Lock()
		for !x.closed && len(x.queue) == 0 {
			x.cond.Wait()
		}
		if x.closed {
			x.mu.Unlock()
			return
		}
		frame := x.queue[0]
		x.queue = x.queue[1:]
		x.mu.Unlock()

		fn(context.Background(), frame)
	}
}

func (x *pipeEnd) Close() error {
	x.mu.Lock()
	if x.closed {
		x.mu.Unlock()
		return nil
	}
	x.closed = true
	x.queue = nil
	x.cond.Broadcast()
	x.mu.Unlock()

	// the peer stops accepting writes too, mirroring a torn-down channel
	x.peer.mu.Lock()
	if !x.peer.closed {
		x.peer.closed = true
		x.peer.queue = nil
		x.peer.cond.Broadcast()
	}
	x.peer.mu.Unlock()
	return nil
}

func (x *pipeEnd) PumpsWhileBlocked() bool { return true }
