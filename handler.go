package tunnelgate

import (
	"context"
	"fmt"
	"sync"
)

type (
	// Method executes one named operation of a tunnel. Args are the decoded
	// call arguments (null, bool, float64, string, []any, map[string]any).
	// The returned value must be representable in the same domain; returning
	// an error forwards its message (and nothing else) to the caller.
	//
	// The context carries the call detail (see [CallDetailFromContext]) and
	// any opaque per-message context the transport supplied (see
	// [MessageContext]).
	Method func(ctx context.Context, args []any) (any, error)

	// Handler is the receiving side of a tunnel: a dispatch-by-name method
	// set. A missing method is a routable condition (the caller receives a
	// [KindUnknownMethod] failure), not a programming error.
	Handler interface {
		// TunnelMethod returns the named method, or false if not exposed.
		TunnelMethod(name string) (Method, bool)
	}

	// MethodMap is the ready-made [Handler] for handlers assembled from
	// individual functions.
	MethodMap map[string]Method
)

// TunnelMethod implements [Handler].
func (m MethodMap) TunnelMethod(name string) (Method, bool) {
	fn, ok := m[name]
	return fn, ok
}

// handlerMap accumulates tunnel handlers into a map, at most one per id.
type handlerMap struct {
	handlers map[string]Handler
	mu       sync.RWMutex
}

func (m *handlerMap) register(id string, h Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handlers == nil {
		m.handlers = make(map[string]Handler)
	}
	if _, ok := m.handlers[id]; ok {
		return fmt.Errorf(`tunnelgate: tunnel %q already registered`, id)
	}
	m.handlers[id] = h
	return nil
}

func (m *handlerMap) unregister(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, id)
}

func (m *handlerMap) query(id string) (Handler, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.handlers[id]
	return h, ok
}
